package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/quizmini/quiz-backend/internal/ctxutil"
	"github.com/quizmini/quiz-backend/internal/models"
)

func (s *Store) ListTests(ctx context.Context) ([]models.TestSummary, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, `
SELECT t.id, t.title, t.description, COUNT(q.id) AS question_count
FROM tests t
LEFT JOIN questions q ON q.test_id = t.id
GROUP BY t.id, t.title, t.description
ORDER BY t.id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TestSummary
	for rows.Next() {
		var t models.TestSummary
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.QuestionCount); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) GetTest(ctx context.Context, id int64) (*models.Test, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var t models.Test
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, title, description FROM tests WHERE id = $1`, id).
		Scan(&t.ID, &t.Title, &t.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListQuestions — вопросы теста с вложенными ответами. Порядок строгий:
// sort_order, затем id; вопрос без ответов возвращается с пустым списком.
func (s *Store) ListQuestions(ctx context.Context, testID int64) ([]models.Question, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, `
SELECT q.id, q.test_id, q.text, q.image_url,
       a.id, a.text, a.is_correct
FROM questions q
LEFT JOIN answers a ON a.question_id = q.id
WHERE q.test_id = $1
ORDER BY q.sort_order, q.id, a.sort_order, a.id`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Question
	byID := make(map[int64]int)
	for rows.Next() {
		var (
			q         models.Question
			answerID  *int64
			answerTxt *string
			isCorrect *bool
		)
		if err := rows.Scan(&q.ID, &q.TestID, &q.Text, &q.ImageURL, &answerID, &answerTxt, &isCorrect); err != nil {
			return nil, err
		}
		idx, ok := byID[q.ID]
		if !ok {
			q.Answers = []models.Answer{}
			out = append(out, q)
			idx = len(out) - 1
			byID[q.ID] = idx
		}
		if answerID != nil {
			out[idx].Answers = append(out[idx].Answers, models.Answer{
				ID: *answerID, Text: *answerTxt, IsCorrect: *isCorrect,
			})
		}
	}
	return out, rows.Err()
}
