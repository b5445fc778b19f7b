package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/quizmini/quiz-backend/internal/ctxutil"
	"github.com/quizmini/quiz-backend/internal/models"
)

// UserProfile — поля профиля из Telegram; пустые пишутся как NULL.
type UserProfile struct {
	TelegramID   int64
	Username     string
	FirstName    string
	LastName     string
	LanguageCode string
	PhotoURL     string
}

const userColumns = `id, telegram_id, username, first_name, last_name, language_code, photo_url,
subscription_status, subscription_expires_at, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.TelegramID, &u.Username, &u.FirstName, &u.LastName,
		&u.LanguageCode, &u.PhotoURL, &u.SubscriptionStatus, &u.SubscriptionExpiresAt,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpsertUser — вставка или полная перезапись профиля по telegram_id
// (last-write-wins, слияния со старыми значениями нет).
func (s *Store) UpsertUser(ctx context.Context, p UserProfile) (*models.User, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	row := s.DB.QueryRowContext(ctx, `
INSERT INTO users (telegram_id, username, first_name, last_name, language_code, photo_url)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (telegram_id) DO UPDATE SET
    username = EXCLUDED.username,
    first_name = EXCLUDED.first_name,
    last_name = EXCLUDED.last_name,
    language_code = EXCLUDED.language_code,
    photo_url = EXCLUDED.photo_url,
    updated_at = NOW()
RETURNING `+userColumns,
		p.TelegramID, nullStr(p.Username), nullStr(p.FirstName), nullStr(p.LastName),
		nullStr(p.LanguageCode), nullStr(p.PhotoURL))
	return scanUser(row)
}

func (s *Store) GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	row := s.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, telegramID)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

// GrantSubscription — включает подписку до expiresAt; создаёт минимальную
// запись, если пользователь ещё не авторизовывался.
func (s *Store) GrantSubscription(ctx context.Context, telegramID int64, expiresAt time.Time) (*models.User, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	row := s.DB.QueryRowContext(ctx, `
INSERT INTO users (telegram_id, subscription_status, subscription_expires_at)
VALUES ($1, 'active', $2)
ON CONFLICT (telegram_id) DO UPDATE SET
    subscription_status = 'active',
    subscription_expires_at = EXCLUDED.subscription_expires_at,
    updated_at = NOW()
RETURNING `+userColumns, telegramID, expiresAt)
	return scanUser(row)
}

// ActiveSubscriptions — активные и не истёкшие, ближайшие к истечению первыми.
func (s *Store) ActiveSubscriptions(ctx context.Context) ([]models.Subscriber, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, `
SELECT telegram_id, first_name, last_name, username, subscription_expires_at
FROM users
WHERE subscription_status = 'active' AND subscription_expires_at > NOW()
ORDER BY subscription_expires_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Subscriber
	for rows.Next() {
		var sub models.Subscriber
		var first, last *string
		if err := rows.Scan(&sub.TelegramID, &first, &last, &sub.Username, &sub.SubscriptionExpiresAt); err != nil {
			return nil, err
		}
		sub.Name = displayName(first, last)
		out = append(out, sub)
	}
	return out, rows.Err()
}

// AllTelegramIDs — получатели рассылки.
func (s *Store) AllTelegramIDs(ctx context.Context) ([]int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, `SELECT telegram_id FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func displayName(first, last *string) string {
	name := ""
	if first != nil {
		name = *first
	}
	if last != nil && *last != "" {
		if name != "" {
			name += " "
		}
		name += *last
	}
	return name
}
