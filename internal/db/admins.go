package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/quizmini/quiz-backend/internal/ctxutil"
	"github.com/quizmini/quiz-backend/internal/models"
)

func (s *Store) ListAdmins(ctx context.Context) ([]models.AdminEntry, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, `
SELECT id, telegram_id, added_by, created_at
FROM admins ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AdminEntry
	for rows.Next() {
		var a models.AdminEntry
		if err := rows.Scan(&a.ID, &a.TelegramID, &a.AddedBy, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AddAdmin — уникальность telegram_id держит вторая линия защиты:
// конфликт по constraint переводим в ErrDuplicate.
func (s *Store) AddAdmin(ctx context.Context, telegramID, addedBy int64) (*models.AdminEntry, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var a models.AdminEntry
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO admins (telegram_id, added_by) VALUES ($1, $2)
RETURNING id, telegram_id, added_by, created_at`, telegramID, addedBy).
		Scan(&a.ID, &a.TelegramID, &a.AddedBy, &a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return &a, nil
}

// isUniqueViolation — 23505 от pgx; в тестах коннект идёт через lib/pq,
// поэтому дополнительно смотрим на текст ошибки.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "duplicate key")
}

func (s *Store) RemoveAdmin(ctx context.Context, telegramID int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	res, err := s.DB.ExecContext(ctx, `DELETE FROM admins WHERE telegram_id = $1`, telegramID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) IsAllowlisted(ctx context.Context, telegramID int64) (bool, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var one int
	err := s.DB.QueryRowContext(ctx,
		`SELECT 1 FROM admins WHERE telegram_id = $1`, telegramID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
