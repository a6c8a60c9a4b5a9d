package tool

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("default config was not written: %v", err)
	}

	again, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("reloading the written defaults failed: %v", err)
	}
	if again != cfg {
		t.Errorf("reloaded config differs: %+v", again)
	}
}

func TestLoadConfigKeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "videoDir: /srv/videos\nsessionTTL: 10m\napiBaseURL: http://localhost:8081/\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.VideoDir != "/srv/videos" || cfg.SessionTTL != 10*time.Minute {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.APIBaseURL != "http://localhost:8081" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.APIBaseURL)
	}
	if cfg.MaxUploadBytes != 50*1024*1024 || cfg.CallbackDataLimit != 60 || cfg.VideoExtension != ".mp4" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadConfigRejectsBadLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("callbackDataLimit: 20\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected an error for a limit below the hashed token length")
	}
}

func TestLoadConfigRejectsDisabledSizeLimits(t *testing.T) {
	for _, body := range []string{"maxUploadBytes: 0\n", "maxSendBytes: -1\n"} {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfig(path); err == nil {
			t.Errorf("expected an error for %q", body)
		}
	}
}

func TestParseCredentials(t *testing.T) {
	creds, err := ParseCredentials("123456:ABC-def_1", " 42 ")
	if err != nil {
		t.Fatalf("ParseCredentials failed: %v", err)
	}
	if creds.BotToken != "123456:ABC-def_1" || creds.AdminID != 42 {
		t.Errorf("unexpected credentials %+v", creds)
	}

	bad := [][2]string{
		{"", "42"},
		{"not-a-token", "42"},
		{"123:abc", ""},
		{"123:abc", "admin"},
	}
	for _, tc := range bad {
		if _, err := ParseCredentials(tc[0], tc[1]); err == nil {
			t.Errorf("ParseCredentials(%q, %q) should fail", tc[0], tc[1])
		}
	}
}

func TestApplyFlags(t *testing.T) {
	cfg := DefaultConfig()
	ApplyFlags(&cfg, typesConfig("/tmp/v", "https://example.org/hook", 8080))
	if cfg.VideoDir != "/tmp/v" || cfg.WebhookURL != "https://example.org/hook" || cfg.HTTPPort != 8080 {
		t.Errorf("flags not applied: %+v", cfg)
	}
}
