package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rbright/kaiwa/internal/conversation"
)

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	base := strings.TrimSpace(cfg.API.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("api.base_url must not be empty")
	}
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("api.base_url must be an absolute http(s) URL, got %q", base)
	}
	if cfg.API.Timeout <= 0 {
		return nil, fmt.Errorf("api.timeout must be > 0")
	}

	primary, err := conversation.ParseLanguage(cfg.Session.PrimaryLanguage)
	if err != nil {
		return nil, fmt.Errorf("session.primary_language: %w", err)
	}
	secondary, err := conversation.ParseLanguage(cfg.Session.SecondaryLanguage)
	if err != nil {
		return nil, fmt.Errorf("session.secondary_language: %w", err)
	}
	if primary == secondary {
		return nil, fmt.Errorf("session.primary_language and session.secondary_language must differ")
	}
	display := conversation.Language(cfg.Session.DisplayLanguage)
	if display != primary && display != secondary {
		return nil, fmt.Errorf("session.display_language must be %s or %s", primary, secondary)
	}
	if strings.TrimSpace(cfg.Session.Greeting) == "" {
		warnings = append(warnings, Warning{Message: "session.greeting is empty; conversations start without a greeting"})
	}

	if cfg.Translation.Concurrency <= 0 {
		return nil, fmt.Errorf("translation.concurrency must be > 0")
	}
	if cfg.Audio.SampleRate <= 0 {
		return nil, fmt.Errorf("audio.sample_rate must be > 0")
	}

	if !logLevels[strings.ToLower(strings.TrimSpace(cfg.Logging.Level))] {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("logging.level %q is not recognized; using info", cfg.Logging.Level)})
	}
	if cfg.Logging.MaxSizeMB < 0 || cfg.Logging.MaxBackups < 0 || cfg.Logging.MaxAgeDays < 0 {
		return nil, fmt.Errorf("logging rotation limits must be >= 0")
	}

	return warnings, nil
}
