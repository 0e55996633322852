// Package config resolves, loads, validates, and defaults kaiwa configuration.
package config

import "time"

// Config is the fully materialized runtime configuration used by kaiwa.
type Config struct {
	API         APIConfig         `mapstructure:"api"`
	Session     SessionConfig     `mapstructure:"session"`
	Translation TranslationConfig `mapstructure:"translation"`
	Audio       AudioConfig       `mapstructure:"audio"`
	TTS         TTSConfig         `mapstructure:"tts"`
	Export      ExportConfig      `mapstructure:"export"`
	Clipboard   ClipboardConfig   `mapstructure:"clipboard"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// APIConfig locates the assistant backend.
type APIConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	SystemPrompt string        `mapstructure:"system_prompt"`
}

// SessionConfig seeds a new conversation.
type SessionConfig struct {
	Greeting          string `mapstructure:"greeting"`
	PrimaryLanguage   string `mapstructure:"primary_language"`
	SecondaryLanguage string `mapstructure:"secondary_language"`
	DisplayLanguage   string `mapstructure:"display_language"`
}

// TranslationConfig bounds concurrent backfill calls.
type TranslationConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// AudioConfig controls input-source selection and the recording cues played by chat.
type AudioConfig struct {
	Input      string `mapstructure:"input"`
	Fallback   string `mapstructure:"fallback"`
	SampleRate int    `mapstructure:"sample_rate"`
	Cues       bool   `mapstructure:"cues"`
}

// TTSConfig is forwarded to the text-to-speech endpoint. Empty fields are omitted.
type TTSConfig struct {
	Model     string `mapstructure:"model"`
	Encoding  string `mapstructure:"encoding"`
	Container string `mapstructure:"container"`
}

// ExportConfig controls where history downloads land.
type ExportConfig struct {
	Dir string `mapstructure:"dir"`
}

// LoggingConfig controls the JSONL log sink.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Warning is a non-fatal load/validation message.
type Warning struct {
	Message string
}

// ClipboardConfig is the command that receives /copy text on stdin.
type ClipboardConfig struct {
	Command []string `mapstructure:"command"`
}
