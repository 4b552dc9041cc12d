package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"HOST", "PORT", "ENVIRONMENT", "MCP_PATH", "MCP_STATELESS", "MCP_JSON_RESPONSE",
		"CORS_ALLOW_ORIGINS", "RATE_LIMIT_RPS", "LOG_DEVELOPMENT", "SHUTDOWN_TIMEOUT"} {
		t.Setenv(k, "") // restores the original value on cleanup
		os.Unsetenv(k)
	}
}

func TestLoad_defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr() != "0.0.0.0:8000" {
		t.Errorf("expected 0.0.0.0:8000, got %s", cfg.Addr())
	}
	if cfg.Environment() != "production" {
		t.Errorf("expected production, got %q", cfg.Environment())
	}
	if cfg.MCPPath != "/mcp" || !cfg.MCPStateless || cfg.MCPJSONResponse {
		t.Errorf("unexpected mcp settings: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.CORSOrigins, []string{"*"}) {
		t.Errorf("expected wildcard CORS, got %v", cfg.CORSOrigins)
	}
	if cfg.RateLimitRPS != 0 {
		t.Errorf("expected rate limiting disabled, got %d", cfg.RateLimitRPS)
	}
	if cfg.ShutdownTimeout != 15*time.Second {
		t.Errorf("expected 15s shutdown timeout, got %s", cfg.ShutdownTimeout)
	}
}

func TestLoad_envOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9001")
	t.Setenv("MCP_PATH", "/rpc/")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("RATE_LIMIT_RPS", "5")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9001 {
		t.Errorf("expected port 9001, got %d", cfg.Port)
	}
	if cfg.MCPPath != "/rpc" {
		t.Errorf("expected trailing slash trimmed, got %q", cfg.MCPPath)
	}
	want := []string{"https://a.example", "https://b.example"}
	if !reflect.DeepEqual(cfg.CORSOrigins, want) {
		t.Errorf("expected %v, got %v", want, cfg.CORSOrigins)
	}
	if cfg.RateLimitRPS != 5 {
		t.Errorf("expected 5 rps, got %d", cfg.RateLimitRPS)
	}
}

func TestEnvironment_readsLiveValue(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Environment(); got != "production" {
		t.Fatalf("expected production, got %q", got)
	}

	t.Setenv("ENVIRONMENT", "staging")
	if got := cfg.Environment(); got != "staging" {
		t.Errorf("expected staging after env change, got %q", got)
	}
}

func TestEnvironment_emptyValueIsKept(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Environment(); got != "" {
		t.Errorf("expected empty environment, got %q", got)
	}
}

func TestLoad_emptyPortIsInvalid(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "")

	if _, err := Load(""); err == nil {
		t.Error("expected error for empty PORT")
	}
}

func TestLoad_file(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "server.yaml")
	body := "port: 7000\nenvironment: development\nmcp:\n  json_response: true\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 7000 || cfg.Environment() != "development" || !cfg.MCPJSONResponse {
		t.Errorf("file values not applied: port=%d env=%s json=%v", cfg.Port, cfg.Environment(), cfg.MCPJSONResponse)
	}
	if cfg.UsedFile != path {
		t.Errorf("expected UsedFile %q, got %q", path, cfg.UsedFile)
	}
}

func TestLoad_invalid(t *testing.T) {
	for name, env := range map[string][2]string{
		"port out of range": {"PORT", "70000"},
		"root mcp path":     {"MCP_PATH", "/"},
		"relative mcp path": {"MCP_PATH", "mcp"},
		"negative rps":      {"RATE_LIMIT_RPS", "-1"},
	} {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(env[0], env[1])
			if _, err := Load(""); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestOverride(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Override("port", 8123)
	cfg.Override("host", "127.0.0.1")
	if cfg.Addr() != "127.0.0.1:8123" {
		t.Errorf("expected overridden addr, got %s", cfg.Addr())
	}
}
