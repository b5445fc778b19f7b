package db

import (
	"database/sql"
	"errors"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
)

// Store — все запросы к Postgres. Состояния в памяти нет, каждое чтение
// ходит в базу.
type Store struct {
	DB *sql.DB
}

func NewStore(database *sql.DB) *Store {
	return &Store{DB: database}
}

// nullStr: пустые/отсутствующие поля профиля пишем как NULL.
func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
