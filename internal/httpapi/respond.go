package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quizmini/quiz-backend/internal/observability"
)

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func notFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, gin.H{"error": msg})
}

// internalError — деталей наружу не отдаём, только лог и Sentry.
func (s *Server) internalError(c *gin.Context, err error) {
	observability.CaptureErr(err)
	s.log.Errorw("internal error", "route", c.FullPath(), "err", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
