package httpapi

import (
	"encoding/json"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quizmini/quiz-backend/internal/db"
)

type resultRequest struct {
	TestID      *json.Number `json:"testId"`
	Correct     *json.Number `json:"correct"`
	Total       *json.Number `json:"total"`
	Answered    *json.Number `json:"answered"`
	TimeSeconds *json.Number `json:"timeSeconds"`
}

// POST /api/results — записывает пройденную попытку. Результат
// неизменяемый, процент считается на сервере.
func (s *Server) handlePostResult(c *gin.Context) {
	ident := identityFrom(c)

	var req resultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "некорректное тело запроса")
		return
	}

	testID, ok := asNumber(req.TestID)
	if !ok || testID == 0 {
		badRequest(c, "некорректный testId")
		return
	}
	correct, ok := asNumber(req.Correct)
	if !ok || correct < 0 {
		badRequest(c, "некорректное значение correct")
		return
	}
	total, ok := asNumber(req.Total)
	if !ok || total < 0 {
		badRequest(c, "некорректное значение total")
		return
	}
	answered := correct
	if req.Answered != nil {
		if answered, ok = asNumber(req.Answered); !ok || answered < 0 {
			badRequest(c, "некорректное значение answered")
			return
		}
	}
	var timeSeconds *int
	if req.TimeSeconds != nil {
		v, ok := asNumber(req.TimeSeconds)
		if !ok || v < 0 {
			badRequest(c, "некорректное значение timeSeconds")
			return
		}
		sec := int(math.Round(v))
		timeSeconds = &sec
	}

	user, err := s.store.UpsertUser(c.Request.Context(), profileOf(ident))
	if err != nil {
		s.internalError(c, err)
		return
	}

	percentage := 0
	if total > 0 {
		percentage = int(math.Round(correct / total * 100))
	}
	result, err := s.store.InsertResult(c.Request.Context(), db.NewResult{
		UserID:      user.ID,
		TestID:      int64(testID),
		Correct:     int(math.Round(correct)),
		Total:       int(math.Round(total)),
		Answered:    int(math.Round(answered)),
		Percentage:  percentage,
		TimeSeconds: timeSeconds,
	})
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"result": result})
}

// asNumber — число из JSON: конечное, не NaN.
func asNumber(n *json.Number) (float64, bool) {
	if n == nil {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
