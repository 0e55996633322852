// Package cue plays short synthesized tones for recording and turn events.
package cue

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/jfreymuth/pulse"
)

// Kind names one cue.
type Kind int

const (
	Start Kind = iota + 1
	Stop
	Complete
	Cancel
)

func (k Kind) String() string {
	switch k {
	case Start:
		return "start"
	case Stop:
		return "stop"
	case Complete:
		return "complete"
	case Cancel:
		return "cancel"
	default:
		return "unknown"
	}
}

const sampleRate = 16000

type tone struct {
	hz     float64
	length time.Duration
	volume float64
}

var cues = map[Kind][]int16{
	Start:    synthesize(tone{880, 70 * time.Millisecond, 0.18}, tone{1175, 70 * time.Millisecond, 0.18}),
	Stop:     synthesize(tone{620, 120 * time.Millisecond, 0.18}),
	Complete: synthesize(tone{740, 65 * time.Millisecond, 0.18}, tone{988, 90 * time.Millisecond, 0.18}),
	Cancel:   synthesize(tone{480, 75 * time.Millisecond, 0.18}, tone{360, 90 * time.Millisecond, 0.18}),
}

// Samples returns the mono 16 kHz PCM for kind.
func Samples(kind Kind) []int16 {
	return cues[kind]
}

// Player emits cues asynchronously, one at a time.
type Player struct {
	enabled bool
	logger  *slog.Logger
	play    func([]int16) error

	mu      sync.Mutex
	pending sync.WaitGroup
}

// NewPlayer plays through PulseAudio. A disabled player ignores every cue.
func NewPlayer(enabled bool, logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Player{enabled: enabled, logger: logger, play: playPulse}
}

// Play queues kind and returns immediately. Failures are logged at debug.
func (p *Player) Play(kind Kind) {
	if p == nil || !p.enabled {
		return
	}
	samples := Samples(kind)
	if len(samples) == 0 {
		return
	}

	p.pending.Add(1)
	go func() {
		defer p.pending.Done()
		p.mu.Lock()
		defer p.mu.Unlock()
		if err := p.play(samples); err != nil {
			p.logger.Debug("audio cue failed", "cue", kind.String(), "error", err.Error())
		}
	}()
}

// Wait blocks until queued cues have finished.
func (p *Player) Wait() {
	if p == nil {
		return
	}
	p.pending.Wait()
}

func playPulse(samples []int16) error {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("kaiwa"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	cursor := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		n := copy(buf, samples[cursor:])
		cursor += n
		if cursor >= len(samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	stream, err := client.NewPlayback(
		reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("kaiwa cue"),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play cue stream: %w", err)
	}
	return nil
}

// synthesize joins tones with a short silent gap.
func synthesize(tones ...tone) []int16 {
	gap := make([]int16, sampleCount(22*time.Millisecond))
	var pcm []int16
	for i, t := range tones {
		if i > 0 {
			pcm = append(pcm, gap...)
		}
		pcm = append(pcm, render(t)...)
	}
	return pcm
}

// render produces one sine tone with a linear attack/release of at most 5ms.
func render(t tone) []int16 {
	n := sampleCount(t.length)
	if n <= 0 || t.hz <= 0 || t.volume <= 0 {
		return nil
	}

	ramp := min(max(n/10, 1), sampleRate/200)
	pcm := make([]int16, n)
	for i := range n {
		envelope := min(1.0, float64(i)/float64(ramp), float64(n-i-1)/float64(ramp))
		s := math.Sin(2 * math.Pi * t.hz * float64(i) / sampleRate)
		pcm[i] = int16(math.Round(s * t.volume * envelope * math.MaxInt16))
	}
	return pcm
}

func sampleCount(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * sampleRate))
}
