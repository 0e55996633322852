// Package pipeline runs one text or audio turn at a time against the assistant.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/kaiwa/internal/api"
	"github.com/rbright/kaiwa/internal/conversation"
	"github.com/rbright/kaiwa/internal/intent"
	"github.com/rbright/kaiwa/internal/recording"
	"github.com/rbright/kaiwa/internal/translation"
)

var (
	// ErrBusy is returned when a turn is submitted while another is active.
	ErrBusy = errors.New("a turn is already in progress")
	// ErrCancelled marks an audio turn aborted through Cancel.
	ErrCancelled = errors.New("turn cancelled")
)

// Assistant is the chat/assist collaborator.
type Assistant interface {
	Chat(ctx context.Context, message string, history []conversation.Entry) (api.ChatResponse, error)
	Assist(ctx context.Context, req api.AssistRequest) (api.AssistResponse, error)
}

// WeatherLookup fetches facts used to augment weather questions.
type WeatherLookup interface {
	Weather(ctx context.Context, location string) (intent.Weather, error)
}

// RequestState is the terminal state of one processing request.
type RequestState string

const (
	StatePending   RequestState = "pending"
	StateCancelled RequestState = "cancelled"
	StateCompleted RequestState = "completed"
	StateFailed    RequestState = "failed"
)

// Kind identifies the input path of a turn.
type Kind string

const (
	KindText  Kind = "text"
	KindAudio Kind = "audio"
)

// Result is the complete outcome of one turn.
type Result struct {
	Kind       Kind
	State      RequestState
	Appended   []conversation.Message
	Location   string
	Augmented  bool
	Translated bool
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Reply returns the assistant message appended by the turn, if any.
func (r Result) Reply() (conversation.Message, bool) {
	for i := len(r.Appended) - 1; i >= 0; i-- {
		if r.Appended[i].Role == conversation.RoleAssistant {
			return r.Appended[i], true
		}
	}
	return conversation.Message{}, false
}

// IsCancelled reports whether err marks a cancelled turn rather than a failure.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// Pipeline orchestrates turns against one conversation store.
type Pipeline struct {
	store     *conversation.Store
	assistant Assistant
	weather   WeatherLookup
	cache     *translation.Cache
	logger    *slog.Logger

	mu     sync.Mutex
	active bool
	turn   *AudioTurn
}

// New constructs a pipeline. weather and cache may be nil.
func New(store *conversation.Store, assistant Assistant, weather WeatherLookup, cache *translation.Cache, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		store:     store,
		assistant: assistant,
		weather:   weather,
		cache:     cache,
		logger:    logger,
	}
}

// Active reports whether a turn is in flight.
func (p *Pipeline) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// SubmitText runs one typed turn. The user message is appended before any
// backend call and stays appended when the call fails.
func (p *Pipeline) SubmitText(ctx context.Context, text string) Result {
	result := Result{Kind: KindText, State: StatePending, StartedAt: time.Now()}
	if err := p.begin(); err != nil {
		return p.finish(result, StateFailed, err)
	}
	defer p.end()

	history := conversation.Entries(p.store.Snapshot())
	user := p.store.Append(conversation.NewMessage(conversation.RoleUser, text))
	result.Appended = append(result.Appended, user)

	outgoing := text
	if loc, ok := intent.WeatherLocation(text); ok {
		result.Location = loc
		if augmented, ok := p.augment(ctx, text, loc); ok {
			outgoing = augmented
			result.Augmented = true
		}
	}

	resp, err := p.assistant.Chat(ctx, outgoing, history)
	if err != nil {
		p.logger.Error("chat turn failed", "error", err.Error(), "status", api.StatusCode(err))
		return p.finish(result, StateFailed, err)
	}

	reply := p.store.Append(conversation.NewMessage(conversation.RoleAssistant, resp.Response))
	result.Appended = append(result.Appended, reply)
	result.Translated = p.fillTranslation(ctx, reply)
	return p.finish(result, StateCompleted, nil)
}

// SubmitAudio runs one recorded turn. Only Cancel aborts it; a cancelled turn
// appends nothing and reports ErrCancelled.
func (p *Pipeline) SubmitAudio(ctx context.Context, artifact recording.Artifact) Result {
	turn, err := p.BeginAudio(ctx)
	if err != nil {
		return p.finish(Result{Kind: KindAudio, StartedAt: time.Now()}, StateFailed, err)
	}
	return turn.Run(artifact)
}

// AudioTurn is a reserved audio request. Cancel applies to it from the moment
// BeginAudio returns, before Run starts.
type AudioTurn struct {
	p         *Pipeline
	parent    context.Context
	ctx       context.Context
	cancel    context.CancelFunc
	cancelled bool
	startedAt time.Time
}

// BeginAudio reserves the pipeline for one audio turn. The caller must call Run
// exactly once.
func (p *Pipeline) BeginAudio(ctx context.Context) (*AudioTurn, error) {
	turnCtx, cancel := context.WithCancel(ctx)
	turn := &AudioTurn{p: p, parent: ctx, ctx: turnCtx, cancel: cancel, startedAt: time.Now()}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active {
		cancel()
		return nil, ErrBusy
	}
	p.active = true
	p.turn = turn
	return turn, nil
}

// Run uploads the artifact and appends the transcript and reply.
func (t *AudioTurn) Run(artifact recording.Artifact) Result {
	p := t.p
	result := Result{Kind: KindAudio, State: StatePending, StartedAt: t.startedAt}
	defer t.cancel()
	defer p.end()

	p.mu.Lock()
	cancelled := t.cancelled
	p.mu.Unlock()

	var (
		resp api.AssistResponse
		err  error
	)
	if !cancelled {
		history := conversation.Entries(p.store.Snapshot())
		resp, err = p.assistant.Assist(t.ctx, api.AssistRequest{
			Audio:     artifact.Data,
			AudioName: artifact.Filename(),
			History:   history,
		})
	}

	// Appends happen under the token lock so a concurrent Cancel either wins
	// entirely or arrives after the turn is settled.
	p.mu.Lock()
	if t.cancelled {
		p.turn = nil
		p.mu.Unlock()
		p.logger.Debug("audio turn cancelled")
		return p.finish(result, StateCancelled, ErrCancelled)
	}
	if err != nil {
		p.turn = nil
		p.mu.Unlock()
		p.logger.Error("assist turn failed", "error", err.Error(), "status", api.StatusCode(err), "audio_bytes", len(artifact.Data))
		return p.finish(result, StateFailed, err)
	}
	if strings.TrimSpace(resp.TranscribedText) != "" {
		result.Appended = append(result.Appended, p.store.Append(conversation.NewMessage(conversation.RoleUser, resp.TranscribedText)))
	}
	reply := p.store.Append(conversation.NewMessage(conversation.RoleAssistant, resp.Response))
	result.Appended = append(result.Appended, reply)
	p.turn = nil
	p.mu.Unlock()

	result.Translated = p.fillTranslation(t.parent, reply)
	return p.finish(result, StateCompleted, nil)
}

// Cancel triggers the token of the in-flight audio turn. It reports false when
// no audio turn is cancellable.
func (p *Pipeline) Cancel() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.turn == nil || p.turn.cancelled {
		return false
	}
	p.turn.cancelled = true
	p.turn.cancel()
	return true
}

func (p *Pipeline) begin() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active {
		return ErrBusy
	}
	p.active = true
	return nil
}

func (p *Pipeline) end() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = false
	p.turn = nil
}

// augment looks up weather facts for loc. Lookup failures degrade silently.
func (p *Pipeline) augment(ctx context.Context, text, loc string) (string, bool) {
	if p.weather == nil {
		return "", false
	}
	facts, err := p.weather.Weather(ctx, loc)
	if err != nil {
		p.logger.Warn("weather lookup failed", "location", loc, "error", err.Error())
		return "", false
	}
	return intent.Augment(text, facts), true
}

// fillTranslation renders msg in the secondary language when that is on display.
func (p *Pipeline) fillTranslation(ctx context.Context, msg conversation.Message) bool {
	if p.cache == nil || !p.store.ShowingSecondary() {
		return false
	}
	text, ok := p.cache.Get(ctx, msg)
	if !ok {
		return false
	}
	return p.store.SetSecondary(msg.ID, text)
}

func (p *Pipeline) finish(result Result, state RequestState, err error) Result {
	result.State = state
	result.Err = err
	result.FinishedAt = time.Now()
	return result
}
