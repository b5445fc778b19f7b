package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	DatabaseURL  string
	HTTPAddr     string
	BotToken     string // пусто — рассылка и уведомления отвечают 500
	SuperAdminID int64  // главный админ задаётся окружением, не хардкодом
	NotifyChatID int64  // чат для уведомлений об оплатах
	LogLevel     string
	Env          string // dev|prod
	SentryDSN    string
}

func Load() (*Config, error) {
	superAdmin, err := parseID(os.Getenv("SUPER_ADMIN_ID"))
	if err != nil {
		return nil, fmt.Errorf("SUPER_ADMIN_ID: %w", err)
	}
	if superAdmin == 0 {
		return nil, fmt.Errorf("SUPER_ADMIN_ID не задан")
	}

	notifyChat, err := parseID(os.Getenv("NOTIFY_CHAT_ID"))
	if err != nil {
		return nil, fmt.Errorf("NOTIFY_CHAT_ID: %w", err)
	}

	cfg := &Config{
		DatabaseURL:  mustEnv("DATABASE_URL"),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		BotToken:     os.Getenv("BOT_TOKEN"),
		SuperAdminID: superAdmin,
		NotifyChatID: notifyChat,
		LogLevel:     getenv("LOG_LEVEL", "info"),
		Env:          getenv("ENV", "dev"),
		SentryDSN:    os.Getenv("SENTRY_DSN"),
	}
	return cfg, nil
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("required env " + k + " is empty")
	}
	return v
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func parseID(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad id %q: %w", s, err)
	}
	return n, nil
}
