package tool

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/moyoez/sora-history-bot/types"
)

const (
	EnvBotToken = "BOT_TOKEN"
	EnvAdminID  = "ADMIN_ID"
)

var (
	ConfigPath    = "config.yaml" // be aware that it can be changed, default to ./config.yaml
	CurrentConfig types.AppConfig

	botTokenPattern = regexp.MustCompile(`^\d+:[A-Za-z0-9_-]+$`)
)

func DefaultConfig() types.AppConfig {
	return types.AppConfig{
		VideoDir:          "videos",
		VideoExtension:    ".mp4",
		CallbackDataLimit: 60,
		MaxUploadBytes:    50 * 1024 * 1024,
		MaxSendBytes:      50 * 1024 * 1024, // bots cannot send files above 50MB
		PollTimeout:       30 * time.Second,
		SessionTTL:        24 * time.Hour,
		APIRateLimit:      25, // Telegram allows about 30 messages per second per bot
		APIBaseURL:        "https://api.telegram.org",
		HTTPPort:          53318,
	}
}

// LoadConfig reads path (config.yaml when empty), writing a default file when it does not exist yet.
// Keys missing from the file keep their defaults.
func LoadConfig(path string) (types.AppConfig, error) {
	if path == "" {
		path = ConfigPath
	}
	ConfigPath = path

	cfg := DefaultConfig()

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			if writeErr := writeDefaultConfig(path, cfg); writeErr != nil {
				return cfg, fmt.Errorf("config file not found, and failed to generate default config: %v", writeErr)
			}
			DefaultLogger.Infof("Created new config file at %s", path)
			CurrentConfig = cfg
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %v", err)
	}
	if info.IsDir() {
		return cfg, fmt.Errorf("config file path is a directory: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %v", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %v", err)
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	if err := ValidateConfig(cfg); err != nil {
		return cfg, err
	}

	CurrentConfig = cfg
	return cfg, nil
}

// ValidateConfig rejects settings the selection protocol cannot work with.
func ValidateConfig(cfg types.AppConfig) error {
	if !strings.HasPrefix(cfg.VideoExtension, ".") {
		return fmt.Errorf("videoExtension must start with a dot: %q", cfg.VideoExtension)
	}
	// "H:" plus a 32 character digest has to fit, otherwise long names cannot be selected at all.
	if cfg.CallbackDataLimit < 34 || cfg.CallbackDataLimit > 64 {
		return fmt.Errorf("callbackDataLimit must be between 34 and 64, got %d", cfg.CallbackDataLimit)
	}
	if cfg.MaxUploadBytes <= 0 {
		return fmt.Errorf("maxUploadBytes must be positive, got %d", cfg.MaxUploadBytes)
	}
	if cfg.MaxSendBytes <= 0 {
		return fmt.Errorf("maxSendBytes must be positive, got %d", cfg.MaxSendBytes)
	}
	return nil
}

func writeDefaultConfig(path string, cfg types.AppConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadCredentials reads BOT_TOKEN and ADMIN_ID from the environment.
func LoadCredentials() (types.Credentials, error) {
	return ParseCredentials(os.Getenv(EnvBotToken), os.Getenv(EnvAdminID))
}

func ParseCredentials(token, adminID string) (types.Credentials, error) {
	token = strings.TrimSpace(token)
	adminID = strings.TrimSpace(adminID)
	if token == "" {
		return types.Credentials{}, fmt.Errorf("environment variable %s is not set", EnvBotToken)
	}
	if !botTokenPattern.MatchString(token) {
		return types.Credentials{}, fmt.Errorf("%s is malformed", EnvBotToken)
	}
	if adminID == "" {
		return types.Credentials{}, fmt.Errorf("environment variable %s is not set", EnvAdminID)
	}
	id, err := strconv.ParseInt(adminID, 10, 64)
	if err != nil {
		return types.Credentials{}, fmt.Errorf("%s must be an integer: %v", EnvAdminID, err)
	}
	return types.Credentials{BotToken: token, AdminID: id}, nil
}
