package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quizmini/quiz-backend/internal/config"
	"github.com/quizmini/quiz-backend/internal/db"
	"github.com/quizmini/quiz-backend/internal/metrics"
	"github.com/quizmini/quiz-backend/internal/models"
	"github.com/quizmini/quiz-backend/internal/tg"
	"go.uber.org/zap"
)

// Store — всё, что хендлерам нужно от Postgres. Реализуется db.Store,
// в тестах — фейком.
type Store interface {
	UpsertUser(ctx context.Context, p db.UserProfile) (*models.User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	GrantSubscription(ctx context.Context, telegramID int64, expiresAt time.Time) (*models.User, error)
	ActiveSubscriptions(ctx context.Context) ([]models.Subscriber, error)
	AllTelegramIDs(ctx context.Context) ([]int64, error)
	ListTests(ctx context.Context) ([]models.TestSummary, error)
	GetTest(ctx context.Context, id int64) (*models.Test, error)
	ListQuestions(ctx context.Context, testID int64) ([]models.Question, error)
	InsertResult(ctx context.Context, r db.NewResult) (*models.Result, error)
	ListAdmins(ctx context.Context) ([]models.AdminEntry, error)
	AddAdmin(ctx context.Context, telegramID, addedBy int64) (*models.AdminEntry, error)
	RemoveAdmin(ctx context.Context, telegramID int64) error
	IsAllowlisted(ctx context.Context, telegramID int64) (bool, error)
	ResultsForExport(ctx context.Context) ([]models.ResultExportRow, error)
}

type Server struct {
	cfg    *config.Config
	log    *zap.SugaredLogger
	store  Store
	sender tg.Sender // nil, если BOT_TOKEN не задан
	dbConn *sql.DB   // только для /healthz

	// пауза между отправками рассылки; в тестах её обнуляем
	sendDelay time.Duration

	Engine *gin.Engine
}

func New(cfg *config.Config, log *zap.SugaredLogger, store Store, sender tg.Sender, dbConn *sql.DB) *Server {
	s := &Server{
		cfg:       cfg,
		log:       log,
		store:     store,
		sender:    sender,
		dbConn:    dbConn,
		sendDelay: tg.DefaultSendDelay,
	}

	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(s.requestLog(), s.recovery(), cors())

	r.GET("/healthz", s.handleHealthz)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	api.POST("/auth", s.requireIdentity(), s.handleAuth)
	api.GET("/tests", s.handleListTests)
	api.GET("/tests/:id", s.handleGetTest)
	api.POST("/results", s.requireIdentity(), s.handlePostResult)
	api.GET("/subscription/me", s.requireIdentity(), s.handleSubscriptionMe)

	// /admin/check доступен любому авторизованному, остальное — только админам
	api.GET("/admin/check", s.requireIdentity(), s.handleAdminCheck)

	admin := api.Group("/admin", s.requireIdentity(), s.requireAdmin())
	admin.GET("/admins", s.handleListAdmins)
	admin.POST("/admins", s.handleAddAdmin)
	admin.DELETE("/admins/:telegramId", s.handleRemoveAdmin)
	admin.GET("/subscriptions/active", s.handleActiveSubscriptions)
	admin.POST("/subscriptions/grant", s.handleGrantSubscription)
	admin.GET("/results/export", s.handleResultsExport)
	admin.POST("/broadcast", s.requireSuperAdmin(), s.handleBroadcast)

	notify := api.Group("/notify")
	notify.GET("/test", s.handleNotifyTest)
	notify.POST("/payment", s.handleNotifyPayment)

	s.Engine = r
	return s
}

func (s *Server) handleHealthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 800*time.Millisecond)
	defer cancel()
	t0 := time.Now()
	if err := s.dbConn.PingContext(ctx); err != nil {
		c.String(http.StatusServiceUnavailable, "db not ok: %s", err.Error())
		return
	}
	metrics.ObserveDBPing(time.Since(t0))
	c.String(http.StatusOK, "ok")
}
