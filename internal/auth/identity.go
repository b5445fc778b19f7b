package auth

import (
	"encoding/base64"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
)

// Identity — кто пришёл из Mini App. Поля профиля опциональны,
// обязателен только числовой telegram id.
type Identity struct {
	ID           int64
	Username     string
	FirstName    string
	LastName     string
	LanguageCode string
	PhotoURL     string
}

// Заголовки, через которые WebApp передаёт пользователя.
const (
	HeaderTelegramID      = "X-Telegram-Id"
	HeaderTelegramUser    = "X-Telegram-User"
	HeaderTelegramUserB64 = "X-Telegram-User-B64"
)

type wireUser struct {
	ID           json.Number `json:"id"`
	Username     string      `json:"username"`
	FirstName    string      `json:"first_name"`
	LastName     string      `json:"last_name"`
	LanguageCode string      `json:"language_code"`
	PhotoURL     string      `json:"photo_url"`
}

// strategy пытается извлечь identity из запроса; ошибки парсинга
// глотаются внутри стратегии и означают «не нашли», дальше по цепочке.
type strategy func(header http.Header, body []byte) *Identity

var strategies = []strategy{
	fromBodyUser,
	fromIDHeader,
	fromUserHeader,
	fromInitData,
}

// Resolve перебирает стратегии по порядку, первая удачная побеждает.
// nil — личность не установлена.
func Resolve(header http.Header, body []byte) *Identity {
	for _, s := range strategies {
		if id := s(header, body); id != nil {
			return id
		}
	}
	return nil
}

func fromBodyUser(_ http.Header, body []byte) *Identity {
	if len(body) == 0 {
		return nil
	}
	var payload struct {
		User *wireUser `json:"user"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.User == nil {
		return nil
	}
	return payload.User.identity()
}

func fromIDHeader(header http.Header, _ []byte) *Identity {
	raw := header.Get(HeaderTelegramID)
	if raw == "" {
		return nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return nil
	}
	return &Identity{ID: n}
}

func fromUserHeader(header http.Header, _ []byte) *Identity {
	raw := header.Get(HeaderTelegramUser)
	if raw == "" {
		return nil
	}
	data := []byte(raw)
	if header.Get(HeaderTelegramUserB64) == "1" {
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil
		}
		data = decoded
	}
	var u wireUser
	if err := json.Unmarshal(data, &u); err != nil {
		return nil
	}
	return u.identity()
}

func fromInitData(_ http.Header, body []byte) *Identity {
	if len(body) == 0 {
		return nil
	}
	var payload struct {
		InitDataUnsafe struct {
			User *wireUser `json:"user"`
		} `json:"initDataUnsafe"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.InitDataUnsafe.User == nil {
		return nil
	}
	return payload.InitDataUnsafe.User.identity()
}

func (u *wireUser) identity() *Identity {
	id, ok := numericID(u.ID)
	if !ok {
		return nil
	}
	return &Identity{
		ID:           id,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		LanguageCode: u.LanguageCode,
		PhotoURL:     u.PhotoURL,
	}
}

// numericID принимает целое или целочисленный float, отбрасывает
// NaN/Inf и всё неположительное.
func numericID(n json.Number) (int64, bool) {
	if n.String() == "" {
		return 0, false
	}
	if v, err := n.Int64(); err == nil {
		if v <= 0 {
			return 0, false
		}
		return v, true
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}
