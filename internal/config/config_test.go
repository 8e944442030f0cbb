package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	for _, key := range []string{
		"DEEPGRAM_API_KEY",
		"FORYOU_DEEPGRAM_API_KEY",
		"FORYOU_DEEPGRAM_MODEL",
		"FORYOU_SERVER_PORT",
		"FORYOU_SPEECH_LOCALE",
		"FORYOU_SPEECH_INTERIM_RESULTS",
		"FORYOU_FEED_TIMEOUT",
		"FORYOU_FEED_UPDATES_URL",
	} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	envFile := isolateEnv(t)
	t.Setenv("LANG", "de_DE.UTF-8")

	cfg, err := Load(WithEnvFile(envFile))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.Port != 8080 || cfg.Server.Addr() != "127.0.0.1:8080" || cfg.Server.ReadHeaderTimeout != 15*time.Second {
		t.Fatalf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Speech.Locale != "de-DE" {
		t.Fatalf("expected locale from LANG, got %q", cfg.Speech.Locale)
	}
	if cfg.Speech.FallbackLocale != "en-US" {
		t.Fatalf("unexpected fallback locale %q", cfg.Speech.FallbackLocale)
	}
	if !cfg.Speech.InterimResults {
		t.Fatalf("expected interim results by default: %+v", cfg.Speech)
	}
	if cfg.Deepgram.Model != "nova-2" || cfg.Deepgram.ChunkSize != 4096 || cfg.Deepgram.DrainTimeout != 4*time.Second {
		t.Fatalf("unexpected deepgram defaults: %+v", cfg.Deepgram)
	}
	if cfg.Feed.Timeout != 3*time.Second {
		t.Fatalf("unexpected feed timeout %v", cfg.Feed.Timeout)
	}
	if cfg.Audio.RecorderCommand != "ffmpeg" || cfg.Audio.SampleRate != 16000 || cfg.Audio.Channels != 1 {
		t.Fatalf("unexpected audio defaults: %+v", cfg.Audio)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("unexpected log level %q", cfg.Logging.Level)
	}
}

func TestLoadFallsBackToDefaultLocale(t *testing.T) {
	envFile := isolateEnv(t)
	t.Setenv("LANG", "C")

	cfg, err := Load(WithEnvFile(envFile))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Speech.Locale != "en-US" {
		t.Fatalf("expected en-US, got %q", cfg.Speech.Locale)
	}
}

func TestLoadRespectsEnvironmentOverrides(t *testing.T) {
	envFile := isolateEnv(t)
	t.Setenv("LANG", "de_DE.UTF-8")
	t.Setenv("DEEPGRAM_API_KEY", " test-key ")
	t.Setenv("FORYOU_SERVER_PORT", "9090")
	t.Setenv("FORYOU_SPEECH_LOCALE", "fr_FR")
	t.Setenv("FORYOU_SPEECH_INTERIM_RESULTS", "false")
	t.Setenv("FORYOU_FEED_TIMEOUT", "500ms")

	cfg, err := Load(WithEnvFile(envFile))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Deepgram.APIKey != "test-key" {
		t.Fatalf("expected trimmed legacy api key, got %q", cfg.Deepgram.APIKey)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port override, got %d", cfg.Server.Port)
	}
	if cfg.Speech.Locale != "fr-FR" {
		t.Fatalf("expected configured locale to win over LANG, got %q", cfg.Speech.Locale)
	}
	if cfg.Speech.InterimResults {
		t.Fatalf("expected interim results override")
	}
	if cfg.Feed.Timeout != 500*time.Millisecond {
		t.Fatalf("expected feed timeout override, got %v", cfg.Feed.Timeout)
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	envFile := isolateEnv(t)
	t.Setenv("FORYOU_SERVER_PORT", "7070")

	path := filepath.Join(t.TempDir(), "config.yml")
	contents := strings.Join([]string{
		"server:",
		"  port: 3000",
		"nav:",
		"  file: /srv/nav.html",
		"speech:",
		"  locale: es-MX",
		"deepgram:",
		"  model: nova-3",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg, err := Load(WithConfigFile(path), WithEnvFile(envFile))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Fatalf("expected env to override file, got %d", cfg.Server.Port)
	}
	if cfg.Nav.File != "/srv/nav.html" || cfg.Speech.Locale != "es-MX" || cfg.Deepgram.Model != "nova-3" {
		t.Fatalf("unexpected file values: %+v", cfg)
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	isolateEnv(t)

	envFile := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envFile, []byte("FORYOU_DEEPGRAM_MODEL=nova-3\nDEEPGRAM_API_KEY=from-dotenv\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg, err := Load(WithEnvFile(envFile))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Deepgram.Model != "nova-3" || cfg.Deepgram.APIKey != "from-dotenv" {
		t.Fatalf("expected .env values, got %+v", cfg.Deepgram)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	envFile := isolateEnv(t)
	t.Setenv("FORYOU_SERVER_PORT", "70000")

	if _, err := Load(WithEnvFile(envFile)); err == nil {
		t.Fatalf("expected invalid port error")
	}

	t.Setenv("FORYOU_SERVER_PORT", "8080")
	t.Setenv("FORYOU_FEED_UPDATES_URL", "not a url")
	if _, err := Load(WithEnvFile(envFile)); err == nil {
		t.Fatalf("expected invalid updates url error")
	}
}

func TestLoadMissingExplicitConfigFile(t *testing.T) {
	envFile := isolateEnv(t)

	if _, err := Load(WithConfigFile(filepath.Join(t.TempDir(), "nope.yml")), WithEnvFile(envFile)); err == nil {
		t.Fatalf("expected missing config file error")
	}
}
