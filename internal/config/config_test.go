package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// isolate points every lookup location at empty temp dirs.
func isolate(t *testing.T) string {
	t.Helper()
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	for _, key := range []string{"KAIWA_API_BASE_URL", "KAIWA_API_TIMEOUT", "KAIWA_SESSION_DISPLAY_LANGUAGE", "KAIWA_LOGGING_LEVEL"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	return xdg
}

func TestResolvePathPrecedence(t *testing.T) {
	explicit := "/tmp/custom.yaml"
	resolved, err := ResolvePath(explicit)
	require.NoError(t, err)
	require.Equal(t, explicit, resolved)

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdg, "kaiwa", "config.yaml"), resolved)

	t.Setenv("XDG_CONFIG_HOME", "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config", "kaiwa", "config.yaml"), resolved)
}

func TestLoadMissingConfigUsesDefaultsWithWarning(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "missing.yaml")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, path, loaded.Path)
	require.False(t, loaded.Exists)
	require.Equal(t, Default(), loaded.Config)
	require.NotEmpty(t, loaded.Warnings)
	require.Contains(t, loaded.Warnings[0].Message, "not found")
}

func TestLoadImplicitPathReadsXDGConfig(t *testing.T) {
	xdg := isolate(t)
	path := filepath.Join(xdg, "kaiwa", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	contents := `
api:
  base_url: https://assistant.example.com
  timeout: 15s
  system_prompt: Be brief.
session:
  display_language: ja
translation:
  concurrency: 2
tts:
  container: wav
audio:
  cues: false
clipboard:
  command: [xclip, -selection, clipboard]
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	loaded, err := Load("")
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, path, loaded.Path)
	require.Equal(t, "https://assistant.example.com", loaded.Config.API.BaseURL)
	require.Equal(t, 15*time.Second, loaded.Config.API.Timeout)
	require.Equal(t, "Be brief.", loaded.Config.API.SystemPrompt)
	require.Equal(t, "ja", loaded.Config.Session.DisplayLanguage)
	require.Equal(t, 2, loaded.Config.Translation.Concurrency)
	require.Equal(t, "wav", loaded.Config.TTS.Container)
	require.Equal(t, 16000, loaded.Config.Audio.SampleRate)
	require.False(t, loaded.Config.Audio.Cues)
	require.Equal(t, []string{"xclip", "-selection", "clipboard"}, loaded.Config.Clipboard.Command)
}

func TestLoadImplicitPathAcceptsJSON(t *testing.T) {
	xdg := isolate(t)
	path := filepath.Join(xdg, "kaiwa", "config.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(`{"audio": {"input": "usb-mic"}}`), 0o600))

	loaded, err := Load("")
	require.NoError(t, err)
	require.Equal(t, path, loaded.Path)
	require.Equal(t, "usb-mic", loaded.Config.Audio.Input)
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api:\n  base_url: http://file.example\n"), 0o600))
	t.Setenv("KAIWA_API_BASE_URL", "http://env.example:9000")
	t.Setenv("KAIWA_API_TIMEOUT", "5s")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "http://env.example:9000", loaded.Config.API.BaseURL)
	require.Equal(t, 5*time.Second, loaded.Config.API.Timeout)
}

func TestLoadReadsDotEnv(t *testing.T) {
	isolate(t)
	t.Cleanup(func() { _ = os.Unsetenv("KAIWA_LOGGING_LEVEL") })
	require.NoError(t, os.WriteFile(".env", []byte("KAIWA_LOGGING_LEVEL=debug\n"), 0o600))

	loaded, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, "debug", loaded.Config.Logging.Level)
}

func TestLoadParseErrorIncludesPath(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: [unterminated\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), path)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("translation:\n  concurrency: 0\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "translation.concurrency")
}

func TestValidateRejectsInvalidCoreFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "empty base url", mutate: func(c *Config) { c.API.BaseURL = " " }, wantErr: "api.base_url"},
		{name: "relative base url", mutate: func(c *Config) { c.API.BaseURL = "/api" }, wantErr: "absolute"},
		{name: "non-http scheme", mutate: func(c *Config) { c.API.BaseURL = "ftp://host" }, wantErr: "absolute"},
		{name: "zero timeout", mutate: func(c *Config) { c.API.Timeout = 0 }, wantErr: "api.timeout"},
		{name: "unknown primary", mutate: func(c *Config) { c.Session.PrimaryLanguage = "fr" }, wantErr: "primary_language"},
		{name: "unknown secondary", mutate: func(c *Config) { c.Session.SecondaryLanguage = "de" }, wantErr: "secondary_language"},
		{name: "same languages", mutate: func(c *Config) { c.Session.SecondaryLanguage = "en" }, wantErr: "must differ"},
		{name: "display outside pair", mutate: func(c *Config) { c.Session.DisplayLanguage = "fr" }, wantErr: "display_language"},
		{name: "zero concurrency", mutate: func(c *Config) { c.Translation.Concurrency = 0 }, wantErr: "translation.concurrency"},
		{name: "zero sample rate", mutate: func(c *Config) { c.Audio.SampleRate = 0 }, wantErr: "audio.sample_rate"},
		{name: "negative rotation", mutate: func(c *Config) { c.Logging.MaxBackups = -1 }, wantErr: "rotation"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			_, err := Validate(cfg)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateWarnings(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "verbose"
	cfg.Session.Greeting = ""

	warnings, err := Validate(cfg)
	require.NoError(t, err)
	require.Len(t, warnings, 2)
	require.Contains(t, warnings[0].Message, "greeting")
	require.Contains(t, warnings[1].Message, "logging.level")
}

func TestDefaultIsValid(t *testing.T) {
	warnings, err := Validate(Default())
	require.NoError(t, err)
	require.Empty(t, warnings)
}
