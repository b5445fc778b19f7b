package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quizmini/quiz-backend/internal/auth"
	"github.com/quizmini/quiz-backend/internal/db"
)

// POST /api/auth — регистрирует или обновляет пользователя по identity
// из Mini App. Профиль перезаписывается целиком.
func (s *Server) handleAuth(c *gin.Context) {
	ident := identityFrom(c)
	user, err := s.store.UpsertUser(c.Request.Context(), profileOf(ident))
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func profileOf(ident *auth.Identity) db.UserProfile {
	return db.UserProfile{
		TelegramID:   ident.ID,
		Username:     ident.Username,
		FirstName:    ident.FirstName,
		LastName:     ident.LastName,
		LanguageCode: ident.LanguageCode,
		PhotoURL:     ident.PhotoURL,
	}
}
