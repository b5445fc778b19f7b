package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/quizmini/quiz-backend/internal/config"
	"github.com/quizmini/quiz-backend/internal/db"
	"github.com/quizmini/quiz-backend/internal/httpapi"
	"github.com/quizmini/quiz-backend/internal/logging"
	"github.com/quizmini/quiz-backend/internal/observability"
	"github.com/quizmini/quiz-backend/internal/tg"
)

var release = "dev"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("нет .env файла, используем переменные окружения")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("конфигурация: %v", err)
	}

	lg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("логгер: %v", err)
	}
	defer lg.Closer()

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, release)
	if err != nil {
		lg.Sugar.Warnw("sentry init", "err", err)
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		lg.Sugar.Fatalw("подключение к БД", "err", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		lg.Sugar.Fatalw("миграции", "err", err)
	}

	var sender tg.Sender
	if cfg.BotToken != "" {
		bs, err := tg.NewBotSender(cfg.BotToken)
		if err != nil {
			lg.Sugar.Fatalw("telegram bot", "err", err)
		}
		sender = bs
	} else {
		lg.Sugar.Warn("BOT_TOKEN не задан: рассылка и уведомления отключены")
	}

	api := httpapi.New(cfg, lg.Sugar, db.NewStore(database), sender, database)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: api.Engine}

	go func() {
		lg.Sugar.Infow("http server started", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Sugar.Fatalw("http server", "err", err)
		}
	}()

	<-ctx.Done()
	lg.Sugar.Info("останавливаемся...")

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		lg.Sugar.Errorw("http shutdown", "err", err)
	}
}
