package httpapi

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quizmini/quiz-backend/internal/auth"
	"github.com/quizmini/quiz-backend/internal/metrics"
	"github.com/quizmini/quiz-backend/internal/observability"
)

const ctxIdentity = "identity"

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		s.log.Infow("http",
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"dur", time.Since(start),
		)
	}
}

func (s *Server) recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				err := fmt.Errorf("panic: %v", rec)
				observability.CaptureErr(err)
				s.log.Errorw("panic in handler", "route", c.FullPath(), "err", rec)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}

// CORS для вебвью Mini App: фронт живёт на другом origin.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, "+
			auth.HeaderTelegramID+", "+auth.HeaderTelegramUser+", "+auth.HeaderTelegramUserB64)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

// requireIdentity читает тело целиком (и возвращает его на место, чтобы
// хендлер мог разобрать запрос), прогоняет цепочку стратегий из auth
// и кладёт identity в контекст. Без identity — 401.
func (s *Server) requireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}
		ident := auth.Resolve(c.Request.Header, body)
		if ident == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "не удалось определить пользователя"})
			return
		}
		c.Set(ctxIdentity, ident)
		c.Next()
	}
}

func identityFrom(c *gin.Context) *auth.Identity {
	v, ok := c.Get(ctxIdentity)
	if !ok {
		return nil
	}
	return v.(*auth.Identity)
}

func (s *Server) isAdmin(c *gin.Context, telegramID int64) (bool, error) {
	if telegramID == s.cfg.SuperAdminID {
		return true, nil
	}
	return s.store.IsAllowlisted(c.Request.Context(), telegramID)
}

func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := identityFrom(c)
		ok, err := s.isAdmin(c, ident.ID)
		if err != nil {
			s.internalError(c, err)
			c.Abort()
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "доступ только для админов"})
			return
		}
		c.Next()
	}
}

// requireSuperAdmin — только главный админ; членства в allow-list мало.
func (s *Server) requireSuperAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := identityFrom(c)
		if ident.ID != s.cfg.SuperAdminID {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "доступ только для главного админа"})
			return
		}
		c.Next()
	}
}
