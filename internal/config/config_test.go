package config

import (
	"os"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	os.Setenv("IDENTITY_URL", "https://project.example.co/auth/v1")
	os.Setenv("IDENTITY_API_KEY", "anon-key")
	os.Setenv("MONGODB_URI", "mongodb://localhost:27017/testdb")
	os.Setenv("REDIS_HOST", "localhost")
	os.Setenv("REDIS_PORT", "6379")
	os.Setenv("SITE_URL", "https://app.pulseops.test")
	defer func() {
		for _, k := range []string{"IDENTITY_URL", "IDENTITY_API_KEY", "MONGODB_URI", "REDIS_HOST", "REDIS_PORT", "SITE_URL"} {
			os.Unsetenv(k)
		}
	}()

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Identity.URL == "" || cfg.MongoDB.URI == "" || cfg.Redis.Host == "" {
		t.Fatalf("unexpected empty config values: %+v", cfg)
	}
	if got := cfg.CallbackURL(); got != "https://app.pulseops.test/auth/callback" {
		t.Fatalf("CallbackURL() = %q", got)
	}
}
