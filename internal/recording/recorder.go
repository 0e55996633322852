// Package recording owns the capture-device state machine that turns one
// capture session into one finalized audio artifact.
package recording

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrCaptureUnavailable indicates the capture device was denied or missing.
var ErrCaptureUnavailable = errors.New("capture device unavailable")

type State string

const (
	StateIdle      State = "idle"
	StateCapturing State = "capturing"
)

// Stream is one acquired capture device session.
type Stream interface {
	// Close releases the device. Chunks still in flight are delivered before it returns.
	Close() error
	// Done is closed once the device has stopped for any reason.
	Done() <-chan struct{}
}

// Device acquires the capture device and delivers raw chunks to onChunk.
type Device interface {
	Open(ctx context.Context, onChunk func([]byte)) (Stream, error)
}

// Encoder wraps concatenated raw audio into an uploadable container.
type Encoder func(raw []byte) (data []byte, contentType string, err error)

// Artifact is the immutable result of one capture session.
type Artifact struct {
	Data        []byte
	ContentType string
	Chunks      int
	RawBytes    int
	StartedAt   time.Time
	StoppedAt   time.Time
	Forced      bool
}

// Filename suggests an upload name matching the container type.
func (a Artifact) Filename() string {
	switch a.ContentType {
	case "audio/wav":
		return "recording.wav"
	case "audio/webm":
		return "recording.webm"
	default:
		return "recording.pcm"
	}
}

// take is the buffer and device handle of one capture session.
type take struct {
	stream    Stream
	chunks    [][]byte
	sealed    bool
	startedAt time.Time
}

// Controller serializes start/stop of the capture device.
type Controller struct {
	device Device
	encode Encoder
	emit   func(Artifact)
	logger *slog.Logger

	mu       sync.Mutex
	current  *take
	starting bool
	watches  sync.WaitGroup
}

// NewController wires a device to the artifact sink. The sink receives exactly
// one artifact per capture session, whichever path stopped it.
func NewController(device Device, encode Encoder, emit func(Artifact), logger *slog.Logger) *Controller {
	if encode == nil {
		encode = RawEncoder
	}
	if emit == nil {
		emit = func(Artifact) {}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Controller{device: device, encode: encode, emit: emit, logger: logger}
}

// RawEncoder passes captured bytes through untouched.
func RawEncoder(raw []byte) ([]byte, string, error) {
	return raw, "application/octet-stream", nil
}

// State returns the current capture state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		return StateCapturing
	}
	return StateIdle
}

// Start acquires the device. It is a no-op while already capturing.
func (c *Controller) Start(ctx context.Context) (State, error) {
	c.mu.Lock()
	if c.current != nil || c.starting {
		c.mu.Unlock()
		return StateCapturing, nil
	}
	if c.device == nil {
		c.mu.Unlock()
		return StateIdle, ErrCaptureUnavailable
	}
	c.starting = true
	c.mu.Unlock()

	// The device may deliver chunks before Open returns, so it runs unlocked.
	t := &take{startedAt: time.Now()}
	stream, err := c.device.Open(ctx, func(chunk []byte) { c.receive(t, chunk) })

	c.mu.Lock()
	defer c.mu.Unlock()
	c.starting = false
	if err != nil {
		c.logger.Warn("capture start failed", "error", err.Error())
		return StateIdle, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}
	t.stream = stream
	c.current = t

	c.watches.Add(1)
	go c.watch(t)

	c.logger.Debug("capture started")
	return StateCapturing, nil
}

// Stop finalizes the active capture and emits its artifact. It reports whether
// this call performed the stop; it is a no-op while idle.
func (c *Controller) Stop() bool {
	return c.finish(c.claim(nil), false)
}

// DeviceInactive handles an externally observed end of recording exactly like
// Stop. Calling it after Stop already ran does nothing.
func (c *Controller) DeviceInactive() bool {
	return c.finish(c.claim(nil), true)
}

// Wait blocks until every device watcher has exited.
func (c *Controller) Wait() {
	c.watches.Wait()
}

func (c *Controller) receive(t *take, chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	buf := make([]byte, len(chunk))
	copy(buf, chunk)

	c.mu.Lock()
	defer c.mu.Unlock()
	if t.sealed {
		return
	}
	t.chunks = append(t.chunks, buf)
}

// watch turns a device-side stop into a forced stop of that capture session.
func (c *Controller) watch(t *take) {
	defer c.watches.Done()
	<-t.stream.Done()
	c.finish(c.claim(t), true)
}

// claim detaches the active capture session. When want is non-nil only that
// session may be claimed.
func (c *Controller) claim(want *take) *take {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.current
	if t == nil || (want != nil && t != want) {
		return nil
	}
	c.current = nil
	return t
}

func (c *Controller) finish(t *take, forced bool) bool {
	if t == nil {
		return false
	}

	if err := t.stream.Close(); err != nil {
		c.logger.Warn("capture release failed", "error", err.Error())
	}

	c.mu.Lock()
	t.sealed = true
	chunks := t.chunks
	t.chunks = nil
	c.mu.Unlock()

	raw := bytes.Join(chunks, nil)
	data, contentType, err := c.encode(raw)
	if err != nil {
		c.logger.Warn("audio encode failed; sending raw capture", "error", err.Error())
		data, contentType, _ = RawEncoder(raw)
	}

	artifact := Artifact{
		Data:        data,
		ContentType: contentType,
		Chunks:      len(chunks),
		RawBytes:    len(raw),
		StartedAt:   t.startedAt,
		StoppedAt:   time.Now(),
		Forced:      forced,
	}
	c.logger.Debug("capture finalized", "chunks", artifact.Chunks, "bytes", artifact.RawBytes, "forced", forced)
	c.emit(artifact)
	return true
}
