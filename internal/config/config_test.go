package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("port = %q, want 8080", cfg.Port)
	}
	if cfg.DBPath != "courtside.db" {
		t.Errorf("db path = %q, want courtside.db", cfg.DBPath)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("log level = %q, want info", cfg.LogLevel)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("COURTSIDE_PORT", "9999")
	t.Setenv("COURTSIDE_BASE_URL", "https://courtside.example")
	t.Setenv("COURTSIDE_POSTMARK_TOKEN", "pm-token")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9999" {
		t.Errorf("port = %q, want 9999", cfg.Port)
	}
	if cfg.BaseURL != "https://courtside.example" {
		t.Errorf("base url = %q", cfg.BaseURL)
	}
	if cfg.PostmarkToken != "pm-token" {
		t.Errorf("postmark token = %q", cfg.PostmarkToken)
	}
}
