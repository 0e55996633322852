package app

import (
	"log/slog"

	"github.com/rbright/kaiwa/internal/api"
	"github.com/rbright/kaiwa/internal/audio"
	"github.com/rbright/kaiwa/internal/config"
	"github.com/rbright/kaiwa/internal/conversation"
	"github.com/rbright/kaiwa/internal/pipeline"
	"github.com/rbright/kaiwa/internal/recording"
	"github.com/rbright/kaiwa/internal/session"
)

func newClient(cfg config.Config, logger *slog.Logger) (*api.Client, error) {
	return api.New(api.Options{
		BaseURL:      cfg.API.BaseURL,
		Timeout:      cfg.API.Timeout,
		SystemPrompt: cfg.API.SystemPrompt,
		Logger:       logger,
	})
}

func speechOptions(cfg config.Config) api.SpeechOptions {
	return api.SpeechOptions{
		Model:     cfg.TTS.Model,
		Encoding:  cfg.TTS.Encoding,
		Container: cfg.TTS.Container,
	}
}

// newSession wires one controller against the configured backend. withDevice
// selects whether recording is available.
func (r Runner) newSession(cfg config.Config, logger *slog.Logger, withDevice bool, onTurn func(pipeline.Result)) (*session.Controller, error) {
	client, err := newClient(cfg, logger)
	if err != nil {
		return nil, err
	}

	deps := session.Deps{
		Assistant:  client,
		Weather:    client,
		Translator: client,
		Speaker:    client,
	}
	if withDevice {
		deps.Device = r.device(cfg, logger)
		deps.Encoder = audio.WAVEncoder(cfg.Audio.SampleRate)
	}

	return session.NewController(session.Options{
		Greeting:    cfg.Session.Greeting,
		Primary:     conversation.Language(cfg.Session.PrimaryLanguage),
		Secondary:   conversation.Language(cfg.Session.SecondaryLanguage),
		Concurrency: cfg.Translation.Concurrency,
		ExportDir:   cfg.Export.Dir,
		Speech:      speechOptions(cfg),
		OnTurn:      onTurn,
	}, deps, logger), nil
}

func (r Runner) device(cfg config.Config, logger *slog.Logger) recording.Device {
	if r.Device != nil {
		return r.Device
	}
	return audio.PulseDevice{
		Input:      cfg.Audio.Input,
		Fallback:   cfg.Audio.Fallback,
		SampleRate: cfg.Audio.SampleRate,
		Logger:     logger,
	}
}
