package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/moyoez/sora-history-bot/api/controllers"
	"github.com/moyoez/sora-history-bot/api/middlewares"
	"github.com/moyoez/sora-history-bot/catalog"
	"github.com/moyoez/sora-history-bot/notify"
	"github.com/moyoez/sora-history-bot/selection"
	"github.com/moyoez/sora-history-bot/tool"
	"github.com/moyoez/sora-history-bot/types"
)

const WebhookPath = "/api/telegram/webhook"

type Options struct {
	Port          int
	Catalog       *catalog.Store
	Codec         *selection.Codec
	Hub           *notify.Hub        // nil disables /notify-ws
	Dispatch      func(types.Update) // nil disables the webhook route
	WebhookSecret string
	BotLink       string
}

// Server represents the HTTP API server: the Telegram webhook plus a localhost-only management API.
type Server struct {
	opts   Options
	engine *gin.Engine
	server *http.Server
	mu     sync.RWMutex
}

func NewServer(opts Options) *Server {
	return &Server{opts: opts}
}

// Handler builds the routes once and returns them.
func (s *Server) Handler() http.Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil {
		s.engine = s.setupRoutes()
	}
	return s.engine
}

func (s *Server) setupRoutes() *gin.Engine {
	if tool.DefaultLogger.GetLevel() == log.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	// No reverse proxy sits in front, so forwarded headers are never trusted for the client address.
	if err := engine.SetTrustedProxies(nil); err != nil {
		tool.DefaultLogger.Warnf("[API] Failed to reset trusted proxies: %v", err)
	}
	engine.Use(gin.Logger(), gin.Recovery())

	mode := "polling"
	if s.opts.Dispatch != nil {
		mode = "webhook"
		webhookCtrl := controllers.NewWebhookController(s.opts.WebhookSecret, s.opts.Dispatch)
		engine.POST(WebhookPath, webhookCtrl.HandleUpdate)
	}

	videoCtrl := controllers.NewVideoController(s.opts.Catalog, s.opts.Codec)
	statusCtrl := controllers.NewStatusController(s.opts.Catalog, s.opts.Codec.Registry(), s.opts.Hub, mode)
	qrCtrl := controllers.NewQRCodeController(s.opts.BotLink)

	self := engine.Group("/api/self/v1", middlewares.OnlyAllowLocal)
	{
		self.GET("/status", statusCtrl.HandleStatus)           // Running state, catalog and registry size
		self.GET("/videos", videoCtrl.HandleList)              // Catalog listing with selection tokens
		self.GET("/videos/download", videoCtrl.HandleDownload) // Stream a video by selection token
		self.GET("/bot-qr", qrCtrl.HandleBotQR)                // QR code PNG linking to the bot
		if s.opts.Hub != nil {
			self.GET("/notify-ws", notify.HandleWS(s.opts.Hub))
		}
	}
	return engine
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	handler := s.Handler()

	s.mu.Lock()
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.opts.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	tool.DefaultLogger.Infof("Starting API server on http://0.0.0.0:%d", s.opts.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
