package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/moyoez/sora-history-bot/api"
	"github.com/moyoez/sora-history-bot/bot"
	"github.com/moyoez/sora-history-bot/catalog"
	"github.com/moyoez/sora-history-bot/notify"
	"github.com/moyoez/sora-history-bot/selection"
	"github.com/moyoez/sora-history-bot/telegram"
	"github.com/moyoez/sora-history-bot/tool"
	"github.com/moyoez/sora-history-bot/types"
	"github.com/moyoez/sora-history-bot/upload"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg := tool.SetFlags()

	// initialize logger
	tool.InitLogger()
	tool.SetLogMode(cfg.Log)

	appCfg, err := tool.LoadConfig(cfg.UseConfigPath)
	if err != nil {
		tool.DefaultLogger.Fatalf("%v", err)
	}
	tool.ApplyFlags(&appCfg, cfg)

	creds, err := tool.LoadCredentials()
	if err != nil {
		tool.DefaultLogger.Fatalf("%v", err)
	}
	if appCfg.WebhookURL != "" && cfg.SkipHttp {
		tool.DefaultLogger.Fatalf("webhook mode needs the HTTP API, drop -skipHttp or unset webhookURL")
	}

	store, err := catalog.New(appCfg.VideoDir, appCfg.VideoExtension)
	if err != nil {
		tool.DefaultLogger.Fatalf("%v", err)
	}
	registry := selection.NewRegistry()
	codec := selection.NewCodec(registry, appCfg.CallbackDataLimit)
	if entries, err := store.List(); err != nil {
		tool.DefaultLogger.Warnf("Failed to warm selection registry: %v", err)
	} else {
		n := codec.Warm(entries)
		tool.DefaultLogger.Infof("Catalog %s holds %d videos, %d need hashed tokens", store.Dir(), len(entries), n)
	}

	client := telegram.New(telegram.Config{
		Token:       creds.BotToken,
		BaseURL:     appCfg.APIBaseURL,
		RateLimit:   appCfg.APIRateLimit,
		PollTimeout: appCfg.PollTimeout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	botLink := ""
	if me, err := client.GetMe(ctx); err != nil {
		tool.DefaultLogger.Warnf("getMe failed, bot QR code disabled: %v", err)
	} else {
		botLink = "https://t.me/" + me.Username
		tool.DefaultLogger.Infof("Authorized as @%s (%d)", me.Username, me.ID)
	}

	var hub *notify.Hub
	if !cfg.SkipHttp {
		hub = notify.NewHub()
	}
	b := bot.New(bot.Options{
		Transport: client,
		Catalog:   store,
		Codec:     codec,
		Uploads: upload.NewMachine(upload.Config{
			AdminID:    creds.AdminID,
			Extension:  appCfg.VideoExtension,
			MaxBytes:   appCfg.MaxUploadBytes,
			SessionTTL: appCfg.SessionTTL,
		}, store),
		Notifier:     notify.New(hub, appCfg.NotifySocket),
		MaxSendBytes: appCfg.MaxSendBytes,
	})

	var apiServer *api.Server
	if !cfg.SkipHttp {
		opts := api.Options{
			Port:    appCfg.HTTPPort,
			Catalog: store,
			Codec:   codec,
			Hub:     hub,
			BotLink: botLink,
		}
		if appCfg.WebhookURL != "" {
			if appCfg.WebhookSecret == "" {
				appCfg.WebhookSecret = tool.GenerateSecret()
			}
			opts.Dispatch = b.Dispatch
			opts.WebhookSecret = appCfg.WebhookSecret
		}
		apiServer = api.NewServer(opts)
		go func() {
			if err := apiServer.Start(); err != nil {
				tool.DefaultLogger.Fatalf("API server startup failed: %v", err)
			}
		}()
	}

	if err := receive(ctx, client, b, appCfg); err != nil && !errors.Is(err, context.Canceled) {
		tool.DefaultLogger.Errorf("Receiving updates stopped: %v", err)
	}

	tool.DefaultLogger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if apiServer != nil {
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			tool.DefaultLogger.Errorf("API server shutdown: %v", err)
		}
	}
	if err := b.Shutdown(shutdownCtx); err != nil {
		tool.DefaultLogger.Errorf("Bot shutdown: %v", err)
	}
}

// receive feeds updates into the bot until ctx is done, by long polling or by registering the webhook and
// waiting for the HTTP API to deliver them.
func receive(ctx context.Context, client *telegram.Client, b *bot.Bot, appCfg types.AppConfig) error {
	if appCfg.WebhookURL == "" {
		if err := client.DeleteWebhook(ctx); err != nil {
			tool.DefaultLogger.Warnf("deleteWebhook failed: %v", err)
		}
		tool.DefaultLogger.Info("Receiving updates by long polling")
		return client.Poll(ctx, b.Dispatch)
	}

	if err := client.SetWebhook(ctx, appCfg.WebhookURL, appCfg.WebhookSecret); err != nil {
		return err
	}
	tool.DefaultLogger.Infof("Receiving updates through webhook %s", appCfg.WebhookURL)
	<-ctx.Done()
	return ctx.Err()
}
