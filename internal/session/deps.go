package session

import (
	"context"
	"errors"

	"github.com/rbright/kaiwa/internal/api"
	"github.com/rbright/kaiwa/internal/conversation"
	"github.com/rbright/kaiwa/internal/pipeline"
	"github.com/rbright/kaiwa/internal/recording"
	"github.com/rbright/kaiwa/internal/translation"
)

var (
	// ErrBusy is returned when recording or a turn is already in progress.
	ErrBusy = errors.New("session busy")
	// ErrNotRecording is returned by stop requests while no capture is active.
	ErrNotRecording = errors.New("not recording")
	// ErrEmptyText rejects blank typed input.
	ErrEmptyText = errors.New("message is empty")
	// ErrNoSuchMessage is returned for an out-of-range message number.
	ErrNoSuchMessage = errors.New("no such message")
	// ErrSpeechUnavailable indicates no text-to-speech collaborator is wired.
	ErrSpeechUnavailable = errors.New("text to speech unavailable")
)

// Speaker synthesizes speech for assistant replies.
type Speaker interface {
	TextToSpeech(ctx context.Context, text string, opts api.SpeechOptions) (api.Speech, error)
}

// Deps are the collaborators one session drives. Only Assistant is required.
type Deps struct {
	Device     recording.Device
	Encoder    recording.Encoder
	Assistant  pipeline.Assistant
	Weather    pipeline.WeatherLookup
	Translator translation.Translator
	Speaker    Speaker
}

// Options shape one session.
type Options struct {
	Greeting    string
	Primary     conversation.Language
	Secondary   conversation.Language
	Concurrency int
	ExportDir   string
	Speech      api.SpeechOptions

	// OnTurn observes every settled turn, including failed and cancelled ones.
	OnTurn func(pipeline.Result)
}

// Line is one rendered message.
type Line struct {
	Number int
	ID     string
	Role   conversation.Role
	Text   string
}
