package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// GET /api/notify/test — диагностика: видно, что настроено.
func (s *Server) handleNotifyTest(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":             true,
		"botConfigured":  s.sender != nil,
		"chatConfigured": s.cfg.NotifyChatID != 0,
	})
}

type paymentNotifyRequest struct {
	Amount     string `json:"amount"`
	TariffName string `json:"tariffName"`
	UserInfo   string `json:"userInfo"`
	UserID     int64  `json:"userId"`
}

// POST /api/notify/payment — пересылает сообщение об оплате в служебный
// чат. Всегда 200: сбой доставки не должен ломать оплату на клиенте.
func (s *Server) handleNotifyPayment(c *gin.Context) {
	var req paymentNotifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, gin.H{"ok": true, "delivered": false})
		return
	}

	if s.sender == nil || s.cfg.NotifyChatID == 0 {
		s.log.Warnw("payment notify skipped: bot or chat not configured")
		c.JSON(http.StatusOK, gin.H{"ok": true, "delivered": false})
		return
	}

	text := fmt.Sprintf("💰 Оплата\nТариф: %s\nСумма: %s\nПользователь: %s (id %d)",
		req.TariffName, req.Amount, req.UserInfo, req.UserID)
	if err := s.sender.SendMessage(c.Request.Context(), s.cfg.NotifyChatID, text); err != nil {
		s.log.Errorw("payment notify send", "err", err)
		c.JSON(http.StatusOK, gin.H{"ok": true, "delivered": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "delivered": true})
}
