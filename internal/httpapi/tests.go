package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/quizmini/quiz-backend/internal/db"
	"github.com/quizmini/quiz-backend/internal/models"
)

// GET /api/tests — каталог тестов с числом вопросов.
func (s *Server) handleListTests(c *gin.Context) {
	tests, err := s.store.ListTests(c.Request.Context())
	if err != nil {
		s.internalError(c, err)
		return
	}
	if tests == nil {
		tests = []models.TestSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"tests": tests})
}

// GET /api/tests/:id — тест плюс вопросы с вложенными ответами.
// isCorrect отдаётся всем: строгого экзаменационного режима нет.
func (s *Server) handleGetTest(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "некорректный id теста")
		return
	}

	test, err := s.store.GetTest(c.Request.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		notFound(c, "тест не найден")
		return
	}
	if err != nil {
		s.internalError(c, err)
		return
	}

	questions, err := s.store.ListQuestions(c.Request.Context(), id)
	if err != nil {
		s.internalError(c, err)
		return
	}
	if questions == nil {
		questions = []models.Question{}
	}
	c.JSON(http.StatusOK, gin.H{"test": test, "questions": questions})
}
