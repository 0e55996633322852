package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"

	"github.com/rbright/kaiwa/internal/recording"
)

const (
	DefaultSampleRate = 16000
	fragmentMillis    = 20
	pollInterval      = 250 * time.Millisecond
)

// PulseDevice opens mono s16le record streams on the configured source.
type PulseDevice struct {
	Input      string
	Fallback   string
	SampleRate int
	Logger     *slog.Logger
}

// Open selects a source and starts recording. Every PCM buffer Pulse delivers
// is handed to onChunk until the returned capture is closed.
func (d PulseDevice) Open(ctx context.Context, onChunk func([]byte)) (recording.Stream, error) {
	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	rate := d.SampleRate
	if rate <= 0 {
		rate = DefaultSampleRate
	}

	selection, err := SelectSource(ctx, d.Input, d.Fallback)
	if err != nil {
		return nil, err
	}
	if selection.Warning != "" {
		logger.Warn(selection.Warning)
	}

	client, err := newClient()
	if err != nil {
		return nil, err
	}
	source, err := client.SourceByID(selection.Source.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", selection.Source.ID, err)
	}

	capture := &Capture{
		source:  selection.Source,
		client:  client,
		onChunk: onChunk,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}

	writer := pulse.NewWriter(writerFunc(capture.onPCM), pulseproto.FormatInt16LE)
	stream, err := client.NewRecord(
		writer,
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(rate),
		pulse.RecordBufferFragmentSize(uint32(rate*2*fragmentMillis/1000)),
		pulse.RecordMediaName("kaiwa voice turn"),
	)
	if err != nil {
		_ = capture.Close()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}

	capture.mu.Lock()
	capture.stream = stream
	capture.mu.Unlock()
	stream.Start()

	go capture.monitor(logger)
	logger.Debug("pulse capture started", "source", selection.Source.ID, "sample_rate", rate)
	return capture, nil
}

// Capture is one live Pulse record stream.
type Capture struct {
	source  Source
	client  *pulse.Client
	onChunk func([]byte)

	mu       sync.Mutex
	stream   *pulse.RecordStream
	stopped  bool
	stopCh   chan struct{}
	done     chan struct{}
	doneOnce sync.Once

	inflight sync.WaitGroup
}

// Source returns the selected input source.
func (c *Capture) Source() Source {
	return c.source
}

// Done is closed once the stream stopped, whether by Close or by the server.
func (c *Capture) Done() <-chan struct{} {
	return c.done
}

// Close stops the stream and disconnects. In-flight buffers are delivered
// before it returns; calling it again is a no-op.
func (c *Capture) Close() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	close(c.stopCh)
	stream := c.stream
	c.mu.Unlock()

	if stream != nil {
		stream.Stop()
		stream.Close()
	}
	if c.client != nil {
		c.client.Close()
	}

	c.inflight.Wait()
	c.markDone()
	return nil
}

func (c *Capture) markDone() {
	c.doneOnce.Do(func() { close(c.done) })
}

// monitor closes Done when the server ends the stream on its own, for example
// when the source is unplugged.
func (c *Capture) monitor(logger *slog.Logger) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			stream := c.stream
			c.mu.Unlock()
			if stream == nil || !stream.Closed() {
				continue
			}
			if err := stream.Error(); err != nil {
				logger.Warn("pulse stream ended", "source", c.source.ID, "error", err.Error())
			}
			c.markDone()
			return
		}
	}
}

func (c *Capture) onPCM(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return 0, io.EOF
	}
	// Add happens under the same lock that sets stopped, so Close never races Wait.
	c.inflight.Add(1)
	c.mu.Unlock()
	defer c.inflight.Done()

	if c.onChunk != nil {
		c.onChunk(buffer)
	}
	return len(buffer), nil
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}
