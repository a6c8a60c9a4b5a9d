package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/moyoez/sora-history-bot/tool"
	"github.com/skip2/go-qrcode"
)

const (
	defaultQRSize = 200
	maxQRSize     = 512
)

type QRCodeController struct {
	botLink string
}

// NewQRCodeController takes the t.me link of the bot, empty while the bot username is unknown.
func NewQRCodeController(botLink string) *QRCodeController {
	return &QRCodeController{botLink: botLink}
}

// HandleBotQR returns a PNG QR code that opens a chat with the bot.
// GET /api/self/v1/bot-qr?size=200x200
func (q *QRCodeController) HandleBotQR(c *gin.Context) {
	if q.botLink == "" {
		c.JSON(http.StatusServiceUnavailable, tool.FastReturnError("Bot username not known yet"))
		return
	}

	size := parseSize(c.Query("size"))
	if size <= 0 {
		size = defaultQRSize
	}
	if size > maxQRSize {
		size = maxQRSize
	}

	png, err := qrcode.Encode(q.botLink, qrcode.Medium, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, tool.FastReturnError("Failed to encode QR code: "+err.Error()))
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// parseSize parses size from "200x200" or "200" and returns the pixel dimension.
func parseSize(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if idx := strings.Index(s, "x"); idx > 0 {
		s = strings.TrimSpace(s[:idx])
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
