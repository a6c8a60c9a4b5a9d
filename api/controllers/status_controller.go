package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/moyoez/sora-history-bot/catalog"
	"github.com/moyoez/sora-history-bot/notify"
	"github.com/moyoez/sora-history-bot/selection"
)

type StatusController struct {
	catalog  *catalog.Store
	registry *selection.Registry
	hub      *notify.Hub
	mode     string
}

// NewStatusController reports on the given parts. hub may be nil. mode is "polling" or "webhook".
func NewStatusController(store *catalog.Store, registry *selection.Registry, hub *notify.Hub, mode string) *StatusController {
	return &StatusController{catalog: store, registry: registry, hub: hub, mode: mode}
}

// HandleStatus
// GET /api/self/v1/status
func (s *StatusController) HandleStatus(c *gin.Context) {
	videos := -1
	if entries, err := s.catalog.List(); err == nil {
		videos = len(entries)
	}
	clients := 0
	if s.hub != nil {
		clients = s.hub.Len()
	}
	c.JSON(http.StatusOK, gin.H{
		"running":           true,
		"mode":              s.mode,
		"videos":            videos,
		"registered_tokens": s.registry.Len(),
		"notify_ws_enabled": s.hub != nil,
		"notify_ws_clients": clients,
	})
}
