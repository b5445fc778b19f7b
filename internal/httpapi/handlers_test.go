package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quizmini/quiz-backend/internal/auth"
	"github.com/quizmini/quiz-backend/internal/config"
	"github.com/quizmini/quiz-backend/internal/db"
	"github.com/quizmini/quiz-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const superAdminID int64 = 1

// fakeStore — Store в памяти, без Postgres.
type fakeStore struct {
	users     map[int64]*models.User
	admins    map[int64]models.AdminEntry
	tests     []models.TestSummary
	questions map[int64][]models.Question
	results   []models.Result
	nextID    int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     map[int64]*models.User{},
		admins:    map[int64]models.AdminEntry{},
		questions: map[int64][]models.Question{},
		nextID:    1,
	}
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (f *fakeStore) UpsertUser(_ context.Context, p db.UserProfile) (*models.User, error) {
	u, ok := f.users[p.TelegramID]
	if !ok {
		u = &models.User{ID: f.nextID, TelegramID: p.TelegramID,
			SubscriptionStatus: models.SubscriptionInactive, CreatedAt: time.Now()}
		f.nextID++
		f.users[p.TelegramID] = u
	}
	u.Username = strPtr(p.Username)
	u.FirstName = strPtr(p.FirstName)
	u.LastName = strPtr(p.LastName)
	u.LanguageCode = strPtr(p.LanguageCode)
	u.PhotoURL = strPtr(p.PhotoURL)
	u.UpdatedAt = time.Now()
	return u, nil
}

func (f *fakeStore) GetUserByTelegramID(_ context.Context, id int64) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) GrantSubscription(_ context.Context, id int64, expiresAt time.Time) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		u = &models.User{ID: f.nextID, TelegramID: id, CreatedAt: time.Now()}
		f.nextID++
		f.users[id] = u
	}
	u.SubscriptionStatus = models.SubscriptionActive
	u.SubscriptionExpiresAt = &expiresAt
	u.UpdatedAt = time.Now()
	return u, nil
}

func (f *fakeStore) ActiveSubscriptions(context.Context) ([]models.Subscriber, error) {
	var out []models.Subscriber
	for _, u := range f.users {
		if u.SubscriptionStatus == models.SubscriptionActive &&
			u.SubscriptionExpiresAt != nil && u.SubscriptionExpiresAt.After(time.Now()) {
			out = append(out, models.Subscriber{
				TelegramID: u.TelegramID, Name: u.DisplayName(),
				Username: u.Username, SubscriptionExpiresAt: *u.SubscriptionExpiresAt,
			})
		}
	}
	return out, nil
}

func (f *fakeStore) AllTelegramIDs(context.Context) ([]int64, error) {
	var ids []int64
	for id := range f.users {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeStore) ListTests(context.Context) ([]models.TestSummary, error) {
	return f.tests, nil
}

func (f *fakeStore) GetTest(_ context.Context, id int64) (*models.Test, error) {
	for _, t := range f.tests {
		if t.ID == id {
			return &models.Test{ID: t.ID, Title: t.Title, Description: t.Description}, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) ListQuestions(_ context.Context, testID int64) ([]models.Question, error) {
	return f.questions[testID], nil
}

func (f *fakeStore) InsertResult(_ context.Context, r db.NewResult) (*models.Result, error) {
	res := models.Result{
		ID: f.nextID, UserID: r.UserID, TestID: r.TestID,
		Correct: r.Correct, Total: r.Total, Answered: r.Answered,
		Percentage: r.Percentage, TimeSeconds: r.TimeSeconds, CreatedAt: time.Now(),
	}
	f.nextID++
	f.results = append(f.results, res)
	return &res, nil
}

func (f *fakeStore) ListAdmins(context.Context) ([]models.AdminEntry, error) {
	var out []models.AdminEntry
	for _, a := range f.admins {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeStore) AddAdmin(_ context.Context, telegramID, addedBy int64) (*models.AdminEntry, error) {
	if _, ok := f.admins[telegramID]; ok {
		return nil, db.ErrDuplicate
	}
	a := models.AdminEntry{ID: f.nextID, TelegramID: telegramID, AddedBy: addedBy, CreatedAt: time.Now()}
	f.nextID++
	f.admins[telegramID] = a
	return &a, nil
}

func (f *fakeStore) RemoveAdmin(_ context.Context, telegramID int64) error {
	if _, ok := f.admins[telegramID]; !ok {
		return db.ErrNotFound
	}
	delete(f.admins, telegramID)
	return nil
}

func (f *fakeStore) IsAllowlisted(_ context.Context, telegramID int64) (bool, error) {
	_, ok := f.admins[telegramID]
	return ok, nil
}

func (f *fakeStore) ResultsForExport(context.Context) ([]models.ResultExportRow, error) {
	var out []models.ResultExportRow
	for _, r := range f.results {
		out = append(out, models.ResultExportRow{
			ResultID: r.ID, Correct: r.Correct, Total: r.Total,
			Percentage: r.Percentage, CreatedAt: r.CreatedAt,
		})
	}
	return out, nil
}

type stubSender struct {
	sent    []int64
	failFor map[int64]string
}

func (s *stubSender) SendMessage(_ context.Context, chatID int64, _ string) error {
	if msg, ok := s.failFor[chatID]; ok {
		return &sendError{msg}
	}
	s.sent = append(s.sent, chatID)
	return nil
}

type sendError struct{ msg string }

func (e *sendError) Error() string { return e.msg }

func newTestServer(t *testing.T) (*Server, *fakeStore, *stubSender) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := newFakeStore()
	sender := &stubSender{}
	cfg := &config.Config{SuperAdminID: superAdminID, NotifyChatID: 500, Env: "dev"}
	s := New(cfg, zap.NewNop().Sugar(), store, sender, nil)
	s.sendDelay = 0
	return s, store, sender
}

func doJSON(s *Server, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.Engine.ServeHTTP(w, req)
	return w
}

func asID(id int64) map[string]string {
	return map[string]string{auth.HeaderTelegramID: jsonNum(id)}
}

func jsonNum(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	return m
}

func TestAuth_UpsertsUser(t *testing.T) {
	s, store, _ := newTestServer(t)

	w := doJSON(s, http.MethodPost, "/api/auth", gin.H{
		"user": gin.H{"id": 42, "username": "ivan", "first_name": "Иван"},
	}, nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	user := body["user"].(map[string]any)
	assert.Equal(t, float64(42), user["telegramId"])
	assert.Equal(t, "ivan", user["username"])
	require.Contains(t, store.users, int64(42))
}

func TestAuth_NoIdentity(t *testing.T) {
	s, _, _ := newTestServer(t)
	w := doJSON(s, http.MethodPost, "/api/auth", gin.H{}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_HeaderIdentity(t *testing.T) {
	s, store, _ := newTestServer(t)
	w := doJSON(s, http.MethodPost, "/api/auth", nil, asID(77))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, store.users, int64(77))
}

func TestListTests(t *testing.T) {
	s, store, _ := newTestServer(t)
	store.tests = []models.TestSummary{{ID: 1, Title: "Тест", QuestionCount: 2}}

	w := doJSON(s, http.MethodGet, "/api/tests", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	tests := body["tests"].([]any)
	require.Len(t, tests, 1)
	assert.Equal(t, float64(2), tests[0].(map[string]any)["question_count"])
}

func TestGetTest(t *testing.T) {
	s, store, _ := newTestServer(t)
	store.tests = []models.TestSummary{{ID: 3, Title: "Тест"}}
	store.questions[3] = []models.Question{
		{ID: 1, Text: "в1", Answers: []models.Answer{{ID: 1, Text: "а", IsCorrect: true}}},
	}

	w := doJSON(s, http.MethodGet, "/api/tests/3", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	questions := body["questions"].([]any)
	require.Len(t, questions, 1)
	answers := questions[0].(map[string]any)["answers"].([]any)
	// isCorrect отдаётся наружу — так задумано
	assert.Equal(t, true, answers[0].(map[string]any)["isCorrect"])

	assert.Equal(t, http.StatusNotFound, doJSON(s, http.MethodGet, "/api/tests/99", nil, nil).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(s, http.MethodGet, "/api/tests/abc", nil, nil).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(s, http.MethodGet, "/api/tests/-1", nil, nil).Code)
}

func TestPostResult_Percentage(t *testing.T) {
	cases := []struct {
		correct, total float64
		want           float64
	}{
		{1, 3, 33},
		{2, 3, 67},
		{2, 2, 100},
		{5, 0, 0}, // total=0 — всегда 0
		{0, 4, 0},
	}
	for _, tc := range cases {
		s, _, _ := newTestServer(t)
		w := doJSON(s, http.MethodPost, "/api/results", gin.H{
			"testId": 1, "correct": tc.correct, "total": tc.total,
		}, asID(10))
		require.Equal(t, http.StatusCreated, w.Code, "correct=%v total=%v", tc.correct, tc.total)
		result := decodeBody(t, w)["result"].(map[string]any)
		assert.Equal(t, tc.want, result["percentage"], "correct=%v total=%v", tc.correct, tc.total)
	}
}

func TestPostResult_AnsweredDefaultsToCorrect(t *testing.T) {
	s, store, _ := newTestServer(t)
	w := doJSON(s, http.MethodPost, "/api/results", gin.H{
		"testId": 1, "correct": 4, "total": 5,
	}, asID(10))
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, store.results, 1)
	assert.Equal(t, 4, store.results[0].Answered)
	assert.Nil(t, store.results[0].TimeSeconds)
}

func TestPostResult_Validation(t *testing.T) {
	s, store, _ := newTestServer(t)
	bad := []gin.H{
		{"correct": 1, "total": 2},                            // нет testId
		{"testId": 0, "correct": 1, "total": 2},               // testId = 0
		{"testId": "abc", "correct": 1, "total": 2},           // не число
		{"testId": 1, "correct": -1, "total": 2},              // correct < 0
		{"testId": 1, "correct": 1, "total": -2},              // total < 0
		{"testId": 1, "correct": 1, "total": 2, "answered": -1},
	}
	for i, body := range bad {
		w := doJSON(s, http.MethodPost, "/api/results", body, asID(10))
		assert.Equal(t, http.StatusBadRequest, w.Code, "case %d", i)
	}
	assert.Empty(t, store.results)
}

// Без identity результат не пишется вовсе.
func TestPostResult_Unauthenticated(t *testing.T) {
	s, store, _ := newTestServer(t)
	w := doJSON(s, http.MethodPost, "/api/results", gin.H{
		"testId": 1, "correct": 1, "total": 1,
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, store.results)
	assert.Empty(t, store.users)
}

func TestPostResult_CreatesUser(t *testing.T) {
	s, store, _ := newTestServer(t)
	w := doJSON(s, http.MethodPost, "/api/results", gin.H{
		"user":   gin.H{"id": 42, "first_name": "Иван"},
		"testId": 1, "correct": 2, "total": 2,
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, store.users, 1)
	require.Len(t, store.results, 1)
	assert.Equal(t, store.users[42].ID, store.results[0].UserID)
}

func TestSubscriptionMe(t *testing.T) {
	s, store, _ := newTestServer(t)

	// пользователя нет — не ошибка
	w := doJSON(s, http.MethodGet, "/api/subscription/me", nil, asID(10))
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "inactive", body["subscriptionStatus"])
	assert.Equal(t, false, body["active"])

	// активная и не истёкшая
	future := time.Now().Add(24 * time.Hour)
	store.users[10] = &models.User{ID: 1, TelegramID: 10,
		SubscriptionStatus: models.SubscriptionActive, SubscriptionExpiresAt: &future}
	body = decodeBody(t, doJSON(s, http.MethodGet, "/api/subscription/me", nil, asID(10)))
	assert.Equal(t, true, body["active"])

	// истёкшая
	past := time.Now().Add(-time.Hour)
	store.users[10].SubscriptionExpiresAt = &past
	body = decodeBody(t, doJSON(s, http.MethodGet, "/api/subscription/me", nil, asID(10)))
	assert.Equal(t, false, body["active"])

	// статус active, но срока нет
	store.users[10].SubscriptionExpiresAt = nil
	body = decodeBody(t, doJSON(s, http.MethodGet, "/api/subscription/me", nil, asID(10)))
	assert.Equal(t, false, body["active"])
}

func TestAdminGate(t *testing.T) {
	s, store, _ := newTestServer(t)

	// обычный пользователь — 403
	assert.Equal(t, http.StatusForbidden,
		doJSON(s, http.MethodGet, "/api/admin/admins", nil, asID(10)).Code)
	// без identity — 401
	assert.Equal(t, http.StatusUnauthorized,
		doJSON(s, http.MethodGet, "/api/admin/admins", nil, nil).Code)
	// главный админ проходит без allow-list
	assert.Equal(t, http.StatusOK,
		doJSON(s, http.MethodGet, "/api/admin/admins", nil, asID(superAdminID)).Code)
	// из allow-list — тоже
	store.admins[10] = models.AdminEntry{TelegramID: 10}
	assert.Equal(t, http.StatusOK,
		doJSON(s, http.MethodGet, "/api/admin/admins", nil, asID(10)).Code)
}

func TestAdminCheck_AnyAuthenticated(t *testing.T) {
	s, store, _ := newTestServer(t)

	body := decodeBody(t, doJSON(s, http.MethodGet, "/api/admin/check", nil, asID(10)))
	assert.Equal(t, false, body["isAdmin"])

	store.admins[10] = models.AdminEntry{TelegramID: 10}
	body = decodeBody(t, doJSON(s, http.MethodGet, "/api/admin/check", nil, asID(10)))
	assert.Equal(t, true, body["isAdmin"])

	body = decodeBody(t, doJSON(s, http.MethodGet, "/api/admin/check", nil, asID(superAdminID)))
	assert.Equal(t, true, body["isAdmin"])
}

func TestAddAdmin(t *testing.T) {
	s, store, _ := newTestServer(t)

	w := doJSON(s, http.MethodPost, "/api/admin/admins", gin.H{"telegramId": 20}, asID(superAdminID))
	require.Equal(t, http.StatusCreated, w.Code)
	entry := decodeBody(t, w)["admin"].(map[string]any)
	assert.Equal(t, float64(superAdminID), entry["addedBy"])

	// самому себе — нельзя
	store.admins[30] = models.AdminEntry{TelegramID: 30}
	assert.Equal(t, http.StatusBadRequest,
		doJSON(s, http.MethodPost, "/api/admin/admins", gin.H{"telegramId": 30}, asID(30)).Code)
	// дубликат
	assert.Equal(t, http.StatusBadRequest,
		doJSON(s, http.MethodPost, "/api/admin/admins", gin.H{"telegramId": 20}, asID(superAdminID)).Code)
	// главный админ и так админ
	assert.Equal(t, http.StatusBadRequest,
		doJSON(s, http.MethodPost, "/api/admin/admins", gin.H{"telegramId": superAdminID}, asID(superAdminID)).Code)
	// мусор на входе
	assert.Equal(t, http.StatusBadRequest,
		doJSON(s, http.MethodPost, "/api/admin/admins", gin.H{"telegramId": -5}, asID(superAdminID)).Code)
	assert.Equal(t, http.StatusBadRequest,
		doJSON(s, http.MethodPost, "/api/admin/admins", gin.H{}, asID(superAdminID)).Code)
}

func TestRemoveAdmin(t *testing.T) {
	s, store, _ := newTestServer(t)
	store.admins[20] = models.AdminEntry{TelegramID: 20}
	store.admins[30] = models.AdminEntry{TelegramID: 30}

	// главного админа снять нельзя, каким бы ни был вызывающий
	assert.Equal(t, http.StatusBadRequest,
		doJSON(s, http.MethodDelete, "/api/admin/admins/"+jsonNum(superAdminID), nil, asID(superAdminID)).Code)
	assert.Equal(t, http.StatusBadRequest,
		doJSON(s, http.MethodDelete, "/api/admin/admins/"+jsonNum(superAdminID), nil, asID(20)).Code)
	// себя — тоже нельзя
	assert.Equal(t, http.StatusBadRequest,
		doJSON(s, http.MethodDelete, "/api/admin/admins/20", nil, asID(20)).Code)
	// несуществующего — 404
	assert.Equal(t, http.StatusNotFound,
		doJSON(s, http.MethodDelete, "/api/admin/admins/999", nil, asID(superAdminID)).Code)

	w := doJSON(s, http.MethodDelete, "/api/admin/admins/30", nil, asID(superAdminID))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, store.admins, int64(30))
}

func TestGrantSubscription(t *testing.T) {
	s, store, _ := newTestServer(t)

	w := doJSON(s, http.MethodPost, "/api/admin/subscriptions/grant",
		gin.H{"telegramId": 50}, asID(superAdminID))
	require.Equal(t, http.StatusOK, w.Code)
	u := store.users[50]
	require.NotNil(t, u)
	assert.Equal(t, models.SubscriptionActive, u.SubscriptionStatus)
	// по умолчанию 30 дней
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), *u.SubscriptionExpiresAt, time.Minute)

	// дробные дни — floor; мусор — 30
	w = doJSON(s, http.MethodPost, "/api/admin/subscriptions/grant",
		gin.H{"telegramId": 51, "days": 7.9}, asID(superAdminID))
	require.Equal(t, http.StatusOK, w.Code)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), *store.users[51].SubscriptionExpiresAt, time.Minute)

	w = doJSON(s, http.MethodPost, "/api/admin/subscriptions/grant",
		gin.H{"telegramId": 52, "days": 0}, asID(superAdminID))
	require.Equal(t, http.StatusOK, w.Code)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), *store.users[52].SubscriptionExpiresAt, time.Minute)

	assert.Equal(t, http.StatusBadRequest,
		doJSON(s, http.MethodPost, "/api/admin/subscriptions/grant", gin.H{}, asID(superAdminID)).Code)
}

func TestBroadcast(t *testing.T) {
	s, store, sender := newTestServer(t)
	for _, id := range []int64{10, 20, 30} {
		store.users[id] = &models.User{TelegramID: id}
	}
	sender.failFor = map[int64]string{20: "Forbidden: bot was blocked by the user"}

	// допуск только у главного админа, allow-list недостаточно
	store.admins[10] = models.AdminEntry{TelegramID: 10}
	assert.Equal(t, http.StatusForbidden,
		doJSON(s, http.MethodPost, "/api/admin/broadcast", gin.H{"message": "hi"}, asID(10)).Code)

	// пустое сообщение
	assert.Equal(t, http.StatusBadRequest,
		doJSON(s, http.MethodPost, "/api/admin/broadcast", gin.H{"message": "   "}, asID(superAdminID)).Code)

	w := doJSON(s, http.MethodPost, "/api/admin/broadcast", gin.H{"message": "привет"}, asID(superAdminID))
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(2), body["sent"])
	assert.Equal(t, float64(1), body["failed"])
	assert.Equal(t, float64(3), body["total"])
	failures := body["failures"].([]any)
	require.Len(t, failures, 1)
	assert.Equal(t, float64(20), failures[0].(map[string]any)["telegramId"])
}

func TestBroadcast_BotNotConfigured(t *testing.T) {
	s, _, _ := newTestServer(t)
	s.sender = nil
	w := doJSON(s, http.MethodPost, "/api/admin/broadcast", gin.H{"message": "hi"}, asID(superAdminID))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// Релей оплат никогда не валит клиентский флоу: всегда 200.
func TestNotifyPayment_Always200(t *testing.T) {
	s, _, sender := newTestServer(t)

	w := doJSON(s, http.MethodPost, "/api/notify/payment", gin.H{
		"amount": "990", "tariffName": "Месяц", "userInfo": "@ivan", "userId": 42,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["delivered"])
	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(500), sender.sent[0])

	// сломанная доставка — всё равно 200
	sender.failFor = map[int64]string{500: "timeout"}
	w = doJSON(s, http.MethodPost, "/api/notify/payment", gin.H{"amount": "990"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["delivered"])

	// бот не настроен — тоже 200
	s.sender = nil
	w = doJSON(s, http.MethodPost, "/api/notify/payment", gin.H{"amount": "990"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["delivered"])
}

func TestNotifyTest(t *testing.T) {
	s, _, _ := newTestServer(t)
	body := decodeBody(t, doJSON(s, http.MethodGet, "/api/notify/test", nil, nil))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, true, body["botConfigured"])
	assert.Equal(t, true, body["chatConfigured"])
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t)
	w := doJSON(s, http.MethodGet, "/api/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["ok"])
}

func TestResultsExport(t *testing.T) {
	s, store, _ := newTestServer(t)
	store.results = []models.Result{{ID: 1, Correct: 2, Total: 2, Percentage: 100, CreatedAt: time.Now()}}

	w := doJSON(s, http.MethodGet, "/api/admin/results/export", nil, asID(superAdminID))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	assert.NotZero(t, w.Body.Len())
}
