package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ADMIN_PASSWORD_HASH", "$2a$10$abcdefghijklmnopqrstuv")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("APP_TIMEZONE", "UTC")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Admin.SessionTimeout != 5*time.Minute {
		t.Errorf("SessionTimeout = %v, want 5m", cfg.Admin.SessionTimeout)
	}
	if cfg.EventLog.Capacity != 1000 {
		t.Errorf("EventLog.Capacity = %d, want 1000", cfg.EventLog.Capacity)
	}
	if cfg.EventLog.Retention != 30*24*time.Hour {
		t.Errorf("EventLog.Retention = %v, want 720h", cfg.EventLog.Retention)
	}
	if cfg.Images.MaxDocumentSize != 900*1024 {
		t.Errorf("Images.MaxDocumentSize = %d, want %d", cfg.Images.MaxDocumentSize, 900*1024)
	}
	if cfg.Database.URL == "" {
		t.Error("Database.URL should be built from parts")
	}
	if loc, _ := cfg.Location(); loc != time.UTC {
		t.Errorf("Location() = %v, want UTC", loc)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ADMIN_PASSWORD_HASH", "hash")
	t.Setenv("ADMIN_SESSION_TIMEOUT", "90")
	t.Setenv("EVENT_LOG_CAPACITY", "50")
	t.Setenv("ANALYTICS_REFRESH_INTERVAL", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Admin.SessionTimeout != 90*time.Second {
		t.Errorf("SessionTimeout = %v, want 90s", cfg.Admin.SessionTimeout)
	}
	if cfg.EventLog.Capacity != 50 {
		t.Errorf("EventLog.Capacity = %d, want 50", cfg.EventLog.Capacity)
	}
	if cfg.Analytics.RefreshInterval != 30*time.Second {
		t.Errorf("RefreshInterval = %v, want 30s", cfg.Analytics.RefreshInterval)
	}
}

func TestLoad_RequiresSecrets(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		hash   string
	}{
		{name: "missing jwt secret", secret: "", hash: "hash"},
		{name: "missing admin hash", secret: "secret", hash: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", tt.secret)
			t.Setenv("ADMIN_PASSWORD_HASH", tt.hash)
			if _, err := Load(); err == nil {
				t.Error("Load() expected error, got nil")
			}
		})
	}
}

func TestLoad_StreamTimeout(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ADMIN_PASSWORD_HASH", "hash")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTP.StreamTimeout != time.Hour {
		t.Errorf("StreamTimeout = %v, want 1h", cfg.HTTP.StreamTimeout)
	}

	t.Setenv("SERVER_STREAM_TIMEOUT", "2m")
	if _, err := Load(); err == nil {
		t.Error("Load() expected error for a stream timeout shorter than the admin session")
	}
}
