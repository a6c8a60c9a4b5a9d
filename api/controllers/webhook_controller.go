package controllers

import (
	"crypto/subtle"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/moyoez/sora-history-bot/tool"
	"github.com/moyoez/sora-history-bot/types"
)

const (
	SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"
	maxWebhookBody    = 1 << 20
)

type WebhookController struct {
	secret   string
	dispatch func(types.Update)
}

func NewWebhookController(secret string, dispatch func(types.Update)) *WebhookController {
	return &WebhookController{secret: secret, dispatch: dispatch}
}

// HandleUpdate accepts one update pushed by Telegram. Processing happens after the response, Telegram only
// needs the 200 to stop redelivering.
// POST /api/telegram/webhook
func (w *WebhookController) HandleUpdate(c *gin.Context) {
	if w.secret != "" && subtle.ConstantTimeCompare([]byte(c.GetHeader(SecretTokenHeader)), []byte(w.secret)) != 1 {
		tool.DefaultLogger.Warnf("[Webhook] Rejected request from %s: bad secret token", c.ClientIP())
		c.JSON(http.StatusUnauthorized, tool.FastReturnError("Invalid secret token"))
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Failed to read body"))
		return
	}
	var upd types.Update
	if err := sonic.Unmarshal(body, &upd); err != nil {
		tool.DefaultLogger.Debugf("[Webhook] Invalid update body: %v", err)
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid update"))
		return
	}

	w.dispatch(upd)
	c.Status(http.StatusOK)
}
