package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quizmini/quiz-backend/internal/db"
	"github.com/quizmini/quiz-backend/internal/models"
)

// GET /api/subscription/me — статус подписки вызывающего.
// Отсутствие записи о пользователе — не ошибка, а "inactive".
func (s *Server) handleSubscriptionMe(c *gin.Context) {
	ident := identityFrom(c)

	user, err := s.store.GetUserByTelegramID(c.Request.Context(), ident.ID)
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{
			"telegramId":            ident.ID,
			"subscriptionStatus":    models.SubscriptionInactive,
			"subscriptionExpiresAt": nil,
			"active":                false,
		})
		return
	}
	if err != nil {
		s.internalError(c, err)
		return
	}

	active := user.SubscriptionStatus == models.SubscriptionActive &&
		user.SubscriptionExpiresAt != nil &&
		user.SubscriptionExpiresAt.After(time.Now())
	c.JSON(http.StatusOK, gin.H{
		"telegramId":            user.TelegramID,
		"subscriptionStatus":    user.SubscriptionStatus,
		"subscriptionExpiresAt": user.SubscriptionExpiresAt,
		"active":                active,
	})
}
