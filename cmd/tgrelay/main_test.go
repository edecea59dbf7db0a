package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testToken = "123456789:AAGupQg3jBQc9a_RgBprzLXUvQN-TaxA9MY"

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "TELEGRAM_BOT_TOKEN", "TELEGRAM_API_URL", "NODE_ENV", "RELAY_MODE",
		"RELAY_AUTH_TOKEN", "LOG_LEVEL", "LOG_FORMAT", "LOG_FILE",
		"OTEL_EXPORTER_OTLP_ENDPOINT", "PROBE_SCHEDULE",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tgrelay.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "tgrelay dev") {
		t.Errorf("output = %q, want tgrelay dev prefix", out)
	}
}

func TestConfigCheck_RedactsSecrets(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `version: "1"
telegram:
  token: "`+testToken+`"
server:
  auth:
    bearer_token: relay-secret-value
`)

	out, err := execute(t, "config", "check", path)
	if err != nil {
		t.Fatalf("config check: %v", err)
	}
	if !strings.Contains(out, "Configuration OK") {
		t.Errorf("output missing OK line:\n%s", out)
	}
	for _, secret := range []string{testToken, "relay-secret-value"} {
		if strings.Contains(out, secret) {
			t.Errorf("output leaks %q:\n%s", secret, out)
		}
	}
	if !strings.Contains(out, "mode: typed") {
		t.Errorf("output missing effective relay mode:\n%s", out)
	}
}

func TestConfigCheck_Invalid(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "version: \"1\"\nrelay:\n  mode: sideways\n")

	if _, err := execute(t, "config", "check", path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestConfigCheck_InvalidProbeSchedule(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "version: \"1\"\nprobe:\n  schedule: \"@sometimes\"\n")

	if _, err := execute(t, "config", "check", path); err == nil {
		t.Fatal("expected schedule error")
	}
}

func TestConfigCheck_EnvOnly(t *testing.T) {
	clearEnv(t)

	out, err := execute(t, "config", "check")
	if err != nil {
		t.Fatalf("config check: %v", err)
	}
	if !strings.Contains(out, "environment only") {
		t.Errorf("output = %q, want environment only", out)
	}
}

func TestProbeCmd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bot"+testToken+"/getMe" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok":true,"result":{"id":42,"is_bot":true,"first_name":"Relay","username":"relay_bot"}}`)
	}))
	defer srv.Close()

	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", testToken)
	t.Setenv("TELEGRAM_API_URL", srv.URL)

	out, err := execute(t, "probe")
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if !strings.Contains(out, "@relay_bot") {
		t.Errorf("output = %q, want @relay_bot", out)
	}
}

func TestProbeCmd_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"ok":false,"error_code":401,"description":"Unauthorized"}`)
	}))
	defer srv.Close()

	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", testToken)
	t.Setenv("TELEGRAM_API_URL", srv.URL)

	_, err := execute(t, "probe")
	if err == nil {
		t.Fatal("expected probe failure")
	}
	if strings.Contains(err.Error(), testToken) {
		t.Errorf("error leaks token: %v", err)
	}
}

func TestProbeCmd_NoToken(t *testing.T) {
	clearEnv(t)

	_, err := execute(t, "probe")
	if err == nil || !strings.Contains(err.Error(), "not configured") {
		t.Fatalf("error = %v, want not configured", err)
	}
}
