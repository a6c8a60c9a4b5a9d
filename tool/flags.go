package tool

import (
	"flag"

	"github.com/moyoez/sora-history-bot/types"
)

// SetFlags parses CLI flags and returns the override config.
func SetFlags() types.Config {
	var cfg types.Config
	flag.StringVar(&cfg.Log, "log", "", "log mode: dev|prod|none")
	flag.StringVar(&cfg.UseConfigPath, "useConfigPath", "", "override config file path")
	flag.StringVar(&cfg.UseVideoDir, "useVideoDir", "", "override video directory")
	flag.StringVar(&cfg.UseWebhookURL, "useWebhookURL", "", "receive updates through this public webhook URL instead of long polling")
	flag.IntVar(&cfg.UseHttpPort, "useHttpPort", 0, "override HTTP API port")
	flag.BoolVar(&cfg.SkipHttp, "skipHttp", false, "do not start the HTTP API (long polling only)")
	flag.Parse()
	return cfg
}

// ApplyFlags overlays non-empty flag values onto cfg.
func ApplyFlags(cfg *types.AppConfig, flags types.Config) {
	if flags.UseVideoDir != "" {
		cfg.VideoDir = flags.UseVideoDir
	}
	if flags.UseWebhookURL != "" {
		cfg.WebhookURL = flags.UseWebhookURL
	}
	if flags.UseHttpPort > 0 {
		cfg.HTTPPort = flags.UseHttpPort
	}
}
