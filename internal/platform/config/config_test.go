package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("CAMSTREAM_TEST_STR", "value")
	if got := GetEnv("CAMSTREAM_TEST_STR", "fallback"); got != "value" {
		t.Errorf("GetEnv: got %q", got)
	}
	if got := GetEnv("CAMSTREAM_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("GetEnv unset: got %q", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("CAMSTREAM_TEST_INT", "12")
	if got := GetEnvInt("CAMSTREAM_TEST_INT", 3); got != 12 {
		t.Errorf("GetEnvInt: got %d", got)
	}
	t.Setenv("CAMSTREAM_TEST_INT", "twelve")
	if got := GetEnvInt("CAMSTREAM_TEST_INT", 3); got != 3 {
		t.Errorf("GetEnvInt invalid should fall back: got %d", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	cases := []struct {
		val  string
		want bool
	}{
		{"", true},
		{"false", false},
		{"0", false},
		{"no", false},
		{"YES", true},
		{"garbage", true},
	}
	for _, c := range cases {
		t.Setenv("CAMSTREAM_TEST_BOOL", c.val)
		if got := GetEnvBool("CAMSTREAM_TEST_BOOL", true); got != c.want {
			t.Errorf("GetEnvBool(%q): got %v want %v", c.val, got, c.want)
		}
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("CAMSTREAM_TEST_DUR", "250ms")
	if got := GetEnvDuration("CAMSTREAM_TEST_DUR", time.Second); got != 250*time.Millisecond {
		t.Errorf("got %v", got)
	}
	t.Setenv("CAMSTREAM_TEST_DUR", "7")
	if got := GetEnvDuration("CAMSTREAM_TEST_DUR", time.Second); got != 7*time.Second {
		t.Errorf("bare integer should be seconds, got %v", got)
	}
	t.Setenv("CAMSTREAM_TEST_DUR", "soon")
	if got := GetEnvDuration("CAMSTREAM_TEST_DUR", time.Second); got != time.Second {
		t.Errorf("invalid should fall back, got %v", got)
	}
}

func TestLoad_dotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("CAMSTREAM_TEST_DOTENV=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CAMSTREAM_TEST_DOTENV", "")
	os.Unsetenv("CAMSTREAM_TEST_DOTENV")

	if err := Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := os.Getenv("CAMSTREAM_TEST_DOTENV"); got != "from-file" {
		t.Errorf("expected value from .env, got %q", got)
	}
}

func TestFromEnv_defaults(t *testing.T) {
	for _, k := range []string{"PORT", "CONFIG_FILE", "OUTPUT_DIR", "MAX_WORKERS", "PUBLIC_BASE_URL"} {
		t.Setenv(k, "")
	}
	s := FromEnv()
	if s.Port != "8000" || s.RegistryFile != "config/cameras.json" || s.OutputDir != "streams" {
		t.Errorf("unexpected defaults: %+v", s)
	}
	if s.MaxWorkers != 32 {
		t.Errorf("MaxWorkers default: got %d", s.MaxWorkers)
	}
	if got := s.LocalBaseURL(); got != "http://localhost:8000" {
		t.Errorf("LocalBaseURL: got %q", got)
	}
}
