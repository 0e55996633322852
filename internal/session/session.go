// Package session owns one conversation: its message log, capture device,
// processing pipeline and translation cache.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/kaiwa/internal/api"
	"github.com/rbright/kaiwa/internal/conversation"
	"github.com/rbright/kaiwa/internal/fsm"
	"github.com/rbright/kaiwa/internal/pipeline"
	"github.com/rbright/kaiwa/internal/recording"
	"github.com/rbright/kaiwa/internal/translation"
)

// Controller serializes recording and turns for one session.
type Controller struct {
	opts    Options
	logger  *slog.Logger
	speaker Speaker

	store    *conversation.Store
	cache    *translation.Cache
	pipeline *pipeline.Pipeline
	recorder *recording.Controller

	// Audio turns outlive the request that stopped recording.
	base     context.Context
	stopBase context.CancelFunc

	mu        sync.RWMutex
	state     fsm.State
	closing   bool
	audioDone chan struct{}
	turns     sync.WaitGroup
}

// NewController builds a session seeded with the greeting.
func NewController(opts Options, deps Deps, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Primary == "" {
		opts.Primary = conversation.LanguageEnglish
	}
	if opts.Secondary == "" {
		opts.Secondary = conversation.LanguageJapanese
	}

	base, stopBase := context.WithCancel(context.Background())
	c := &Controller{
		opts:     opts,
		logger:   logger,
		speaker:  deps.Speaker,
		store:    conversation.NewStore(opts.Greeting, opts.Primary),
		base:     base,
		stopBase: stopBase,
		state:    fsm.StateIdle,
	}
	if deps.Translator != nil {
		c.cache = translation.New(deps.Translator, opts.Secondary, opts.Concurrency, logger)
	}
	c.pipeline = pipeline.New(c.store, deps.Assistant, deps.Weather, c.cache, logger)
	c.recorder = recording.NewController(deps.Device, deps.Encoder, c.handleArtifact, logger)
	return c
}

// State returns the current phase.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Controller) transition(event fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transitionLocked(event)
}

func (c *Controller) transitionLocked(event fsm.Event) error {
	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// SubmitText runs one typed turn and returns once it settles.
func (c *Controller) SubmitText(ctx context.Context, text string) (pipeline.Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return pipeline.Result{}, ErrEmptyText
	}
	if err := c.claim(fsm.EventSubmit); err != nil {
		return pipeline.Result{}, err
	}

	result := c.pipeline.SubmitText(ctx, text)
	c.settle(result)
	return result, result.Err
}

// StartRecording acquires the capture device.
func (c *Controller) StartRecording(ctx context.Context) error {
	if err := c.claim(fsm.EventRecord); err != nil {
		return err
	}
	if _, err := c.recorder.Start(ctx); err != nil {
		c.logger.Warn("recording unavailable", "error", err.Error())
		_ = c.transition(fsm.EventAbort)
		return err
	}
	c.logger.Info("recording started")
	return nil
}

// StopRecording finalizes the capture and starts its audio turn in the
// background. OnTurn reports the outcome.
func (c *Controller) StopRecording() error {
	if c.State() != fsm.StateRecording || !c.recorder.Stop() {
		return ErrNotRecording
	}
	return nil
}

// DeviceInactive is the event-ingestion hook for embedders that observe the end
// of recording themselves, such as a host UI whose device widget stopped. It
// behaves like StopRecording and is a no-op once the capture already stopped.
// Streams that end on their own are handled by the recorder without it.
func (c *Controller) DeviceInactive() bool {
	return c.recorder.DeviceInactive()
}

// Cancel aborts the in-flight audio turn and waits for it to settle. Recording
// in progress is not affected.
func (c *Controller) Cancel() bool {
	c.mu.RLock()
	done := c.audioDone
	c.mu.RUnlock()

	if done == nil || !c.pipeline.Cancel() {
		return false
	}
	<-done
	return true
}

// handleArtifact receives every finalized capture and starts its audio turn.
func (c *Controller) handleArtifact(artifact recording.Artifact) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closing {
		c.logger.Info("session closing; capture not submitted", "bytes", artifact.RawBytes)
		_ = c.transitionLocked(fsm.EventAbort)
		return
	}
	if err := c.transitionLocked(fsm.EventStop); err != nil {
		c.logger.Error("capture finished outside recording", "state", string(c.state), "error", err.Error())
		return
	}

	turn, err := c.pipeline.BeginAudio(c.base)
	if err != nil {
		c.logger.Error("audio turn rejected", "error", err.Error())
		_ = c.transitionLocked(fsm.EventSettle)
		return
	}

	done := make(chan struct{})
	c.audioDone = done
	c.turns.Add(1)
	go func() {
		defer c.turns.Done()
		defer close(done)

		result := turn.Run(artifact)

		c.mu.Lock()
		c.audioDone = nil
		c.mu.Unlock()
		c.settle(result)
	}()
}

// claim moves idle to the next phase or reports ErrBusy.
func (c *Controller) claim(event fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing {
		return fmt.Errorf("%w: session closing", ErrBusy)
	}
	if c.state != fsm.StateIdle {
		return fmt.Errorf("%w: %s", ErrBusy, c.state)
	}
	return c.transitionLocked(event)
}

func (c *Controller) settle(result pipeline.Result) {
	if err := c.transition(fsm.EventSettle); err != nil {
		c.logger.Error("settle turn", "error", err.Error())
	}

	attrs := []any{
		"kind", string(result.Kind),
		"state", string(result.State),
		"appended", len(result.Appended),
		"augmented", result.Augmented,
		"elapsed_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
	}
	switch {
	case pipeline.IsCancelled(result.Err):
		c.logger.Debug("turn cancelled", attrs...)
	case result.Err != nil:
		c.logger.Warn("turn failed", append(attrs, "error", result.Err.Error())...)
	default:
		c.logger.Info("turn completed", attrs...)
	}

	if c.opts.OnTurn != nil {
		c.opts.OnTurn(result)
	}
}

// DisplayLanguage returns the language messages are rendered in.
func (c *Controller) DisplayLanguage() conversation.Language {
	return c.store.DisplayLanguage()
}

// SetDisplayLanguage switches rendering. Switching to the secondary language
// backfills missing translations; switching back keeps them.
func (c *Controller) SetDisplayLanguage(ctx context.Context, lang conversation.Language) (int, error) {
	if lang != c.opts.Primary && lang != c.opts.Secondary {
		return 0, fmt.Errorf("language %q is not %s or %s", lang, c.opts.Primary, c.opts.Secondary)
	}
	c.store.SetDisplayLanguage(lang)
	if lang == c.opts.Primary || c.cache == nil {
		return 0, nil
	}

	filled := c.cache.Backfill(ctx, c.store.Snapshot())
	for id, text := range filled {
		c.store.SetSecondary(id, text)
	}
	c.logger.Debug("translations backfilled", "language", string(lang), "available", len(filled))
	return len(filled), nil
}

// Snapshot returns the ordered message log.
func (c *Controller) Snapshot() []conversation.Message {
	return c.store.Snapshot()
}

// Render returns every message as it should be displayed now.
func (c *Controller) Render() []Line {
	secondary := c.store.ShowingSecondary()
	msgs := c.store.Snapshot()
	lines := make([]Line, 0, len(msgs))
	for i, m := range msgs {
		lines = append(lines, Line{Number: i + 1, ID: m.ID, Role: m.Role, Text: m.DisplayText(secondary)})
	}
	return lines
}

// Reset clears the conversation back to the greeting. It is refused while a
// capture or turn is active.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != fsm.StateIdle {
		return fmt.Errorf("%w: %s", ErrBusy, c.state)
	}
	c.store.Reset(c.opts.Greeting)
	c.logger.Info("conversation reset")
	return nil
}

// Export writes the canonical history to dir, or the configured export dir.
func (c *Controller) Export(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		dir = c.opts.ExportDir
	}
	if dir == "" {
		dir = "."
	}
	path, err := conversation.ExportFile(dir, c.store.Snapshot(), time.Now())
	if err != nil {
		return "", err
	}
	c.logger.Info("history exported", "path", path)
	return path, nil
}

// Speak synthesizes the canonical text of assistant message number n (1-based).
func (c *Controller) Speak(ctx context.Context, n int) (api.Speech, error) {
	if c.speaker == nil {
		return api.Speech{}, ErrSpeechUnavailable
	}
	msgs := c.store.Snapshot()
	if n < 1 || n > len(msgs) {
		return api.Speech{}, fmt.Errorf("%w: %d", ErrNoSuchMessage, n)
	}
	msg := msgs[n-1]
	if msg.Role != conversation.RoleAssistant {
		return api.Speech{}, fmt.Errorf("%w: message %d is not an assistant reply", ErrNoSuchMessage, n)
	}

	speech, err := c.speaker.TextToSpeech(ctx, msg.Text, c.opts.Speech)
	if err != nil {
		c.logger.Warn("speech synthesis failed", "message", n, "error", err.Error())
		return api.Speech{}, err
	}
	return speech, nil
}

// Close stops capture, cancels any audio turn and waits for background work.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closing = true
	c.mu.Unlock()

	c.recorder.Stop()
	c.pipeline.Cancel()
	c.stopBase()
	c.turns.Wait()
	c.recorder.Wait()
}
