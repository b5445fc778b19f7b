package db

import (
	"context"

	"github.com/quizmini/quiz-backend/internal/ctxutil"
	"github.com/quizmini/quiz-backend/internal/models"
)

type NewResult struct {
	UserID      int64
	TestID      int64
	Correct     int
	Total       int
	Answered    int
	Percentage  int
	TimeSeconds *int
}

// InsertResult — результаты только добавляются, обновления и удаления нет.
func (s *Store) InsertResult(ctx context.Context, r NewResult) (*models.Result, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var res models.Result
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO results (user_id, test_id, correct, total, answered, percentage, time_seconds)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, user_id, test_id, correct, total, answered, percentage, time_seconds, created_at`,
		r.UserID, r.TestID, r.Correct, r.Total, r.Answered, r.Percentage, r.TimeSeconds).
		Scan(&res.ID, &res.UserID, &res.TestID, &res.Correct, &res.Total,
			&res.Answered, &res.Percentage, &res.TimeSeconds, &res.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ResultsForExport — все результаты с именем пользователя и названием теста.
func (s *Store) ResultsForExport(ctx context.Context) ([]models.ResultExportRow, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, `
SELECT r.id, u.telegram_id, u.first_name, u.last_name, COALESCE(t.title, ''),
       r.correct, r.total, r.percentage, r.created_at
FROM results r
JOIN users u ON u.id = r.user_id
LEFT JOIN tests t ON t.id = r.test_id
ORDER BY r.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ResultExportRow
	for rows.Next() {
		var row models.ResultExportRow
		var first, last *string
		if err := rows.Scan(&row.ResultID, &row.TelegramID, &first, &last,
			&row.TestTitle, &row.Correct, &row.Total, &row.Percentage, &row.CreatedAt); err != nil {
			return nil, err
		}
		row.Name = displayName(first, last)
		out = append(out, row)
	}
	return out, rows.Err()
}
