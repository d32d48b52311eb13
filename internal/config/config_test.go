package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadConfig_Defaults(t *testing.T) {
	// Empty legacy variables are ignored.
	t.Setenv("PORT", "")
	t.Setenv("LOG_PATH", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != "3006" {
		t.Fatalf("port = %q", cfg.Server.Port)
	}
	if cfg.Log.Path != "logs/api.log" || cfg.Log.Name != "returnAll-api" || !cfg.Log.Console {
		t.Fatalf("log config = %+v", cfg.Log)
	}
	if !cfg.Body.Decompress {
		t.Fatal("decompression should default to on")
	}
	if cfg.Observability.ServiceName != "returnall" || cfg.Observability.Environment != "development" {
		t.Fatalf("observability = %+v", cfg.Observability)
	}
}

func TestLoadConfig_PrefixedEnv(t *testing.T) {
	t.Setenv("RETURNALL_SERVER__PORT", "8080")
	t.Setenv("RETURNALL_SERVER__READ_TIMEOUT", "5")
	t.Setenv("RETURNALL_SERVER__CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("RETURNALL_LOG__CONSOLE", "false")
	t.Setenv("RETURNALL_PRIMARY__ENV", "production")
	t.Setenv("RETURNALL_OBSERVABILITY__LOGGING__LEVEL", "debug")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != "8080" || cfg.Server.ReadTimeout != 5 {
		t.Fatalf("server = %+v", cfg.Server)
	}
	want := []string{"https://a.example", "https://b.example"}
	if !reflect.DeepEqual(cfg.Server.CORSAllowedOrigins, want) {
		t.Fatalf("cors origins = %q", cfg.Server.CORSAllowedOrigins)
	}
	if cfg.Log.Console {
		t.Fatal("console logging should be off")
	}
	if !cfg.IsProduction() || cfg.Observability.Environment != "production" {
		t.Fatalf("env not applied: %+v", cfg.Primary)
	}
	if cfg.Observability.Logging.Level != "debug" {
		t.Fatalf("log level = %q", cfg.Observability.Logging.Level)
	}
}

func TestLoadConfig_LegacyEnvLosesToPrefixed(t *testing.T) {
	t.Setenv("PORT", "4000")
	t.Setenv("LOG_PATH", "/tmp/legacy.log")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != "4000" || cfg.Log.Path != "/tmp/legacy.log" {
		t.Fatalf("legacy variables ignored: port=%q path=%q", cfg.Server.Port, cfg.Log.Path)
	}

	t.Setenv("RETURNALL_SERVER__PORT", "5000")
	cfg, err = LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != "5000" {
		t.Fatalf("prefixed port should win, got %q", cfg.Server.Port)
	}
}

func TestLoadConfig_RejectsInvalid(t *testing.T) {
	t.Setenv("RETURNALL_OBSERVABILITY__LOGGING__FORMAT", "xml")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected validation error for unknown log format")
	}
}

func TestObservabilityConfig_Validate(t *testing.T) {
	c := DefaultObservabilityConfig()
	c.Logging.Level = "loud"
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for unknown log level")
	}

	c = DefaultObservabilityConfig()
	c.Metrics.Path = "metrics"
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for relative metrics path")
	}
}

func TestLoadDotEnv(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing file should be ignored: %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("RETURNALL_TEST_DOTENV=loaded\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("RETURNALL_TEST_DOTENV") })
	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("RETURNALL_TEST_DOTENV"); got != "loaded" {
		t.Fatalf("env not loaded, got %q", got)
	}
}
