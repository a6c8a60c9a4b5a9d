package types

import "time"

// AppConfig represents the application configuration loaded from config file
type AppConfig struct {
	VideoDir          string        `yaml:"videoDir"`
	VideoExtension    string        `yaml:"videoExtension"`
	CallbackDataLimit int           `yaml:"callbackDataLimit"` // Telegram caps callback_data at 64 bytes, keep some headroom
	MaxUploadBytes    int64         `yaml:"maxUploadBytes"`
	MaxSendBytes      int64         `yaml:"maxSendBytes"`
	PollTimeout       time.Duration `yaml:"pollTimeout"`
	SessionTTL        time.Duration `yaml:"sessionTTL"` // 0 keeps upload sessions until the process exits
	APIRateLimit      float64       `yaml:"apiRateLimit"`
	APIBaseURL        string        `yaml:"apiBaseURL"`
	HTTPPort          int           `yaml:"httpPort"`
	WebhookURL        string        `yaml:"webhookURL,omitempty"` // empty means long polling
	WebhookSecret     string        `yaml:"webhookSecret,omitempty"`
	NotifySocket      string        `yaml:"notifySocket,omitempty"` // Unix socket listener for bot events, empty disables
}

// Credentials are read from the environment only, never from config.yaml.
type Credentials struct {
	BotToken string
	AdminID  int64
}

// Config holds runtime overrides from CLI flags
type Config struct {
	Log           string
	UseConfigPath string
	UseVideoDir   string
	UseWebhookURL string
	UseHttpPort   int
	SkipHttp      bool // if true, do not start the HTTP API; webhook mode requires it.
}
