package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quizmini/quiz-backend/internal/db"
	"github.com/quizmini/quiz-backend/internal/export"
	"github.com/quizmini/quiz-backend/internal/models"
	"github.com/quizmini/quiz-backend/internal/tg"
)

// GET /api/admin/check — любой авторизованный может узнать, админ ли он.
func (s *Server) handleAdminCheck(c *gin.Context) {
	ident := identityFrom(c)
	ok, err := s.isAdmin(c, ident.ID)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"isAdmin": ok})
}

func (s *Server) handleListAdmins(c *gin.Context) {
	admins, err := s.store.ListAdmins(c.Request.Context())
	if err != nil {
		s.internalError(c, err)
		return
	}
	if admins == nil {
		admins = []models.AdminEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"admins": admins})
}

type addAdminRequest struct {
	TelegramID *json.Number `json:"telegramId"`
}

// POST /api/admin/admins — выдача прав. Себе выдать нельзя; дубликат
// ловим и явной проверкой, и уникальным constraint.
func (s *Server) handleAddAdmin(c *gin.Context) {
	ident := identityFrom(c)

	var req addAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "некорректное тело запроса")
		return
	}
	target, ok := asNumber(req.TelegramID)
	if !ok || target <= 0 || target != math.Trunc(target) {
		badRequest(c, "некорректный telegramId")
		return
	}
	targetID := int64(target)

	if targetID == ident.ID {
		badRequest(c, "нельзя выдать права самому себе")
		return
	}
	if targetID == s.cfg.SuperAdminID {
		badRequest(c, "пользователь уже админ")
		return
	}
	exists, err := s.store.IsAllowlisted(c.Request.Context(), targetID)
	if err != nil {
		s.internalError(c, err)
		return
	}
	if exists {
		badRequest(c, "пользователь уже админ")
		return
	}

	addedBy := ident.ID
	if addedBy == 0 {
		addedBy = s.cfg.SuperAdminID
	}
	entry, err := s.store.AddAdmin(c.Request.Context(), targetID, addedBy)
	if errors.Is(err, db.ErrDuplicate) {
		badRequest(c, "пользователь уже админ")
		return
	}
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"admin": entry})
}

// DELETE /api/admin/admins/:telegramId — главный админ защищён,
// самого себя снять нельзя.
func (s *Server) handleRemoveAdmin(c *gin.Context) {
	ident := identityFrom(c)

	targetID, err := strconv.ParseInt(c.Param("telegramId"), 10, 64)
	if err != nil || targetID <= 0 {
		badRequest(c, "некорректный telegramId")
		return
	}
	if targetID == s.cfg.SuperAdminID {
		badRequest(c, "главного админа удалить нельзя")
		return
	}
	if targetID == ident.ID {
		badRequest(c, "нельзя снять права с самого себя")
		return
	}

	err = s.store.RemoveAdmin(c.Request.Context(), targetID)
	if errors.Is(err, db.ErrNotFound) {
		notFound(c, "админ не найден")
		return
	}
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleActiveSubscriptions(c *gin.Context) {
	subs, err := s.store.ActiveSubscriptions(c.Request.Context())
	if err != nil {
		s.internalError(c, err)
		return
	}
	if subs == nil {
		subs = []models.Subscriber{}
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": subs})
}

type grantRequest struct {
	TelegramID *json.Number `json:"telegramId"`
	Days       *json.Number `json:"days"`
}

// POST /api/admin/subscriptions/grant — продлевает подписку на days
// (по умолчанию 30) от текущего момента.
func (s *Server) handleGrantSubscription(c *gin.Context) {
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "некорректное тело запроса")
		return
	}
	target, ok := asNumber(req.TelegramID)
	if !ok || target <= 0 || target != math.Trunc(target) {
		badRequest(c, "некорректный telegramId")
		return
	}

	days := 30
	if req.Days != nil {
		if v, ok := asNumber(req.Days); ok && math.Floor(v) >= 1 {
			days = int(math.Floor(v))
		}
	}

	expiresAt := time.Now().Add(time.Duration(days) * 24 * time.Hour)
	user, err := s.store.GrantSubscription(c.Request.Context(), int64(target), expiresAt)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

type broadcastRequest struct {
	Message string `json:"message"`
}

// POST /api/admin/broadcast — последовательная рассылка всем
// пользователям, одна отправка за другой с паузой. Отмены нет:
// начатая рассылка дорабатывает до конца запроса.
func (s *Server) handleBroadcast(c *gin.Context) {
	var req broadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "некорректное тело запроса")
		return
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		badRequest(c, "пустое сообщение")
		return
	}
	if s.sender == nil {
		s.internalError(c, errors.New("BOT_TOKEN не задан, рассылка недоступна"))
		return
	}

	ids, err := s.store.AllTelegramIDs(c.Request.Context())
	if err != nil {
		s.internalError(c, err)
		return
	}

	report := tg.Broadcast(c.Request.Context(), s.sender, ids, msg, s.sendDelay)
	s.log.Infow("broadcast done", "sent", report.Sent, "failed", report.Failed, "total", report.Total)
	c.JSON(http.StatusOK, report)
}

// GET /api/admin/results/export — выгрузка результатов в .xlsx.
func (s *Server) handleResultsExport(c *gin.Context) {
	rows, err := s.store.ResultsForExport(c.Request.Context())
	if err != nil {
		s.internalError(c, err)
		return
	}
	wb, err := export.NewResultsWorkbook(rows)
	if err != nil {
		s.internalError(c, err)
		return
	}
	name := fmt.Sprintf("results_%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if _, err := wb.WriteTo(c.Writer); err != nil {
		s.log.Errorw("results export write", "err", err)
	}
}
