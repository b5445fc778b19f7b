package models

import "time"

type SubscriptionStatus string

const (
	SubscriptionInactive SubscriptionStatus = "inactive"
	SubscriptionActive   SubscriptionStatus = "active"
)

type User struct {
	ID                    int64              `json:"id"`
	TelegramID            int64              `json:"telegramId"`
	Username              *string            `json:"username"`
	FirstName             *string            `json:"firstName"`
	LastName              *string            `json:"lastName"`
	LanguageCode          *string            `json:"languageCode"`
	PhotoURL              *string            `json:"photoUrl"`
	SubscriptionStatus    SubscriptionStatus `json:"subscriptionStatus"`
	SubscriptionExpiresAt *time.Time         `json:"subscriptionExpiresAt"`
	CreatedAt             time.Time          `json:"createdAt"`
	UpdatedAt             time.Time          `json:"updatedAt"`
}

// DisplayName — имя плюс фамилия через пробел; пустая строка, если не заполнены.
func (u *User) DisplayName() string {
	name := ""
	if u.FirstName != nil {
		name = *u.FirstName
	}
	if u.LastName != nil && *u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += *u.LastName
	}
	return name
}

type TestSummary struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	Description   *string `json:"description"`
	QuestionCount int     `json:"question_count"`
}

type Test struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

type Question struct {
	ID       int64    `json:"id"`
	TestID   int64    `json:"-"`
	Text     string   `json:"text"`
	ImageURL *string  `json:"imageUrl"`
	Answers  []Answer `json:"answers"`
}

type Answer struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

type Result struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	TestID      int64     `json:"testId"`
	Correct     int       `json:"correct"`
	Total       int       `json:"total"`
	Answered    int       `json:"answered"`
	Percentage  int       `json:"percentage"`
	TimeSeconds *int      `json:"timeSeconds"`
	CreatedAt   time.Time `json:"createdAt"`
}

type AdminEntry struct {
	ID         int64     `json:"id"`
	TelegramID int64     `json:"telegramId"`
	AddedBy    int64     `json:"addedBy"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Subscriber — строка списка активных подписок в админке.
type Subscriber struct {
	TelegramID            int64     `json:"telegramId"`
	Name                  string    `json:"name"`
	Username              *string   `json:"username"`
	SubscriptionExpiresAt time.Time `json:"subscriptionExpiresAt"`
}

// ResultExportRow — строка выгрузки результатов в Excel.
type ResultExportRow struct {
	ResultID   int64
	TelegramID int64
	Name       string
	TestTitle  string
	Correct    int
	Total      int
	Percentage int
	CreatedAt  time.Time
}
