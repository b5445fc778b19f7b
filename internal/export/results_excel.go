package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/quizmini/quiz-backend/internal/models"
	"github.com/xuri/excelize/v2"
)

// ResultsWorkbook — выгрузка результатов в один лист .xlsx:
// жирная шапка, автофильтр, эвристическая ширина колонок.
type ResultsWorkbook struct {
	File *excelize.File
}

var resultsHeader = []string{"ID", "Telegram ID", "Имя", "Тест", "Верно", "Всего", "Процент", "Дата"}

func NewResultsWorkbook(rows []models.ResultExportRow) (*ResultsWorkbook, error) {
	f := excelize.NewFile()
	const sheet = "Результаты"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	bold, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	for col, h := range resultsHeader {
		cell := fmt.Sprintf("%s1", colName(col+1))
		if err := f.SetCellStr(sheet, cell, h); err != nil {
			return nil, fmt.Errorf("set cell %s: %w", cell, err)
		}
	}
	end := colName(len(resultsHeader)) + "1"
	_ = f.SetCellStyle(sheet, "A1", end, bold)
	_ = f.AutoFilter(sheet, "A1:"+end, nil)

	cells := make([][]string, 0, len(rows))
	for _, r := range rows {
		cells = append(cells, []string{
			strconv.FormatInt(r.ResultID, 10),
			strconv.FormatInt(r.TelegramID, 10),
			r.Name,
			r.TestTitle,
			strconv.Itoa(r.Correct),
			strconv.Itoa(r.Total),
			strconv.Itoa(r.Percentage) + "%",
			r.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	for ri, row := range cells {
		for ci, val := range row {
			cell := fmt.Sprintf("%s%d", colName(ci+1), ri+2)
			if err := f.SetCellStr(sheet, cell, val); err != nil {
				return nil, fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}

	// ширина по длине заголовка и первых строк
	for c := 1; c <= len(resultsHeader); c++ {
		maxim := len(resultsHeader[c-1])
		for r := 0; r < minim(50, len(cells)); r++ {
			if l := len(cells[r][c-1]); l > maxim {
				maxim = l
			}
		}
		w := float64(maxim) * 0.9
		if w < 12 {
			w = 12
		}
		if w > 40 {
			w = 40
		}
		_ = f.SetColWidth(sheet, colName(c), colName(c), w)
	}

	return &ResultsWorkbook{File: f}, nil
}

func (w *ResultsWorkbook) WriteTo(dst io.Writer) (int64, error) {
	return w.File.WriteTo(dst)
}

// helpers
func colName(n int) string {
	s := ""
	for n > 0 {
		n--
		s = string(rune('A'+(n%26))) + s
		n /= 26
	}
	return s
}

func minim(a, b int) int {
	if a < b {
		return a
	}
	return b
}
