package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/rbright/kaiwa/internal/conversation"
)

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 60 * time.Second,
		},
		Session: SessionConfig{
			Greeting:          conversation.DefaultGreeting,
			PrimaryLanguage:   string(conversation.LanguageEnglish),
			SecondaryLanguage: string(conversation.LanguageJapanese),
			DisplayLanguage:   string(conversation.LanguageEnglish),
		},
		Translation: TranslationConfig{Concurrency: 4},
		Audio: AudioConfig{
			Input:      "default",
			Fallback:   "default",
			SampleRate: 16000,
			Cues:       true,
		},
		Export:    ExportConfig{Dir: "."},
		Clipboard: ClipboardConfig{Command: []string{"wl-copy"}},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// setDefaults registers every key so environment overrides apply to all of them.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.system_prompt", d.API.SystemPrompt)

	v.SetDefault("session.greeting", d.Session.Greeting)
	v.SetDefault("session.primary_language", d.Session.PrimaryLanguage)
	v.SetDefault("session.secondary_language", d.Session.SecondaryLanguage)
	v.SetDefault("session.display_language", d.Session.DisplayLanguage)

	v.SetDefault("translation.concurrency", d.Translation.Concurrency)

	v.SetDefault("audio.input", d.Audio.Input)
	v.SetDefault("audio.fallback", d.Audio.Fallback)
	v.SetDefault("audio.sample_rate", d.Audio.SampleRate)
	v.SetDefault("audio.cues", d.Audio.Cues)

	v.SetDefault("tts.model", d.TTS.Model)
	v.SetDefault("tts.encoding", d.TTS.Encoding)
	v.SetDefault("tts.container", d.TTS.Container)

	v.SetDefault("export.dir", d.Export.Dir)
	v.SetDefault("clipboard.command", d.Clipboard.Command)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", d.Logging.MaxAgeDays)
}
