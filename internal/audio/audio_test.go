package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"reflect"
	"sync"
	"testing"

	"github.com/go-audio/wav"
	pulseproto "github.com/jfreymuth/pulse/proto"
	"github.com/stretchr/testify/require"
)

func TestSelectFromListUsesDefaultSource(t *testing.T) {
	sources := []Source{
		{ID: "elgato", Description: "Elgato Wave 3 Mono", Available: true, Default: true},
		{ID: "sony", Description: "Sony WH-1000XM6", Available: true},
	}

	selection, err := selectFromList(sources, "default", "")
	require.NoError(t, err)
	require.Equal(t, "elgato", selection.Source.ID)
	require.Empty(t, selection.Warning)
	require.False(t, selection.Fallback)
}

func TestSelectFromListMatchesDescription(t *testing.T) {
	sources := []Source{
		{ID: "alsa_input.usb-1", Description: "Elgato Wave 3 Mono", Available: true, Default: true},
		{ID: "alsa_input.usb-2", Description: "Blue Yeti", Available: true},
	}

	selection, err := selectFromList(sources, "  Yeti ", "default")
	require.NoError(t, err)
	require.Equal(t, "alsa_input.usb-2", selection.Source.ID)
}

func TestSelectFromListMutedInputUsesFallback(t *testing.T) {
	sources := []Source{
		{ID: "elgato", Description: "Elgato Wave 3 Mono", Available: true, Muted: true, Default: true},
		{ID: "sony", Description: "Sony WH-1000XM6", Available: true},
	}

	selection, err := selectFromList(sources, "elgato", "sony")
	require.NoError(t, err)
	require.Equal(t, "sony", selection.Source.ID)
	require.Contains(t, selection.Warning, "muted")
	require.True(t, selection.Fallback)
}

func TestSelectFromListUnavailableInputFallsBackToDefault(t *testing.T) {
	sources := []Source{
		{ID: "elgato", Available: true, Default: true},
		{ID: "headset", Available: false},
	}

	selection, err := selectFromList(sources, "headset", "")
	require.NoError(t, err)
	require.Equal(t, "elgato", selection.Source.ID)
	require.Contains(t, selection.Warning, "unavailable")
}

func TestSelectFromListFailures(t *testing.T) {
	tests := []struct {
		name     string
		sources  []Source
		input    string
		fallback string
		contains string
	}{
		{name: "no sources", contains: "no audio input sources"},
		{
			name:     "unknown input",
			sources:  []Source{{ID: "elgato", Available: true, Default: true}},
			input:    "missing",
			contains: "did not match",
		},
		{
			name:     "muted default with no alternative",
			sources:  []Source{{ID: "elgato", Available: true, Muted: true, Default: true}},
			contains: "muted",
		},
		{
			name: "missing fallback",
			sources: []Source{
				{ID: "elgato", Available: true, Muted: true, Default: true},
			},
			fallback: "sony",
			contains: "not found",
		},
		{
			name: "no default source",
			sources: []Source{
				{ID: "elgato", Available: true},
			},
			contains: "default audio source",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := selectFromList(tc.sources, tc.input, tc.fallback)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.contains)
		})
	}
}

func TestListSourcesFailsWhenPulseUnavailable(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	_, err := ListSources(context.Background())
	require.Error(t, err)
}

func TestPulseDeviceOpenFailsWhenPulseUnavailable(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	_, err := PulseDevice{}.Open(context.Background(), func([]byte) {})
	require.Error(t, err)
}

func TestSourceStateString(t *testing.T) {
	require.Equal(t, "running", sourceStateString(0))
	require.Equal(t, "idle", sourceStateString(1))
	require.Equal(t, "suspended", sourceStateString(2))
	require.Equal(t, "unknown(99)", sourceStateString(99))
}

func TestSourceAvailable(t *testing.T) {
	require.False(t, sourceAvailable(nil))
	require.True(t, sourceAvailable(&pulseproto.GetSourceInfoReply{}))

	available := &pulseproto.GetSourceInfoReply{ActivePortName: "mic"}
	setSourcePorts(t, available, []sourcePort{{name: "mic", available: 2}})
	require.True(t, sourceAvailable(available))

	notAvailable := &pulseproto.GetSourceInfoReply{ActivePortName: "mic"}
	setSourcePorts(t, notAvailable, []sourcePort{{name: "mic", available: 1}})
	require.False(t, sourceAvailable(notAvailable))
}

func newTestCapture(onChunk func([]byte)) *Capture {
	return &Capture{
		source:  Source{ID: "mic-1"},
		onChunk: onChunk,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func TestCaptureDeliversBuffersUntilClosed(t *testing.T) {
	var (
		mu  sync.Mutex
		got [][]byte
	)
	capture := newTestCapture(func(b []byte) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, append([]byte(nil), b...))
	})

	n, err := capture.onPCM([]byte{1, 2, 3, 4})
	require.NoError(t, err)
	require.Equal(t, 4, n)

	n, err = capture.onPCM(nil)
	require.NoError(t, err)
	require.Zero(t, n)

	require.NoError(t, capture.Close())
	<-capture.Done()

	n, err = capture.onPCM([]byte{5, 6})
	require.ErrorIs(t, err, io.EOF)
	require.Zero(t, n)

	require.Equal(t, [][]byte{{1, 2, 3, 4}}, got)
	require.Equal(t, "mic-1", capture.Source().ID)
}

func TestCaptureCloseIsIdempotent(t *testing.T) {
	capture := newTestCapture(nil)
	require.NoError(t, capture.Close())
	require.NoError(t, capture.Close())

	select {
	case <-capture.Done():
	default:
		t.Fatal("done not closed")
	}
}

func TestWriterFuncDelegatesWrite(t *testing.T) {
	called := false
	writer := writerFunc(func(b []byte) (int, error) {
		called = true
		require.Equal(t, []byte{1, 2, 3}, b)
		return len(b), nil
	})

	n, err := writer.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.True(t, called)
}

func TestEncodeWAVRoundTrip(t *testing.T) {
	samples := []int16{0, 1200, -1200, 32767, -32768}
	pcm := make([]byte, 0, len(samples)*2+1)
	for _, s := range samples {
		pcm = binary.LittleEndian.AppendUint16(pcm, uint16(s))
	}
	pcm = append(pcm, 0x7f) // dangling half sample

	data, err := EncodeWAV(pcm, 16000)
	require.NoError(t, err)
	require.Equal(t, []byte("RIFF"), data[:4])

	dec := wav.NewDecoder(bytes.NewReader(data))
	require.True(t, dec.IsValidFile())
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	require.Equal(t, 16000, buf.Format.SampleRate)
	require.Equal(t, 1, buf.Format.NumChannels)

	want := make([]int, len(samples))
	for i, s := range samples {
		want[i] = int(s)
	}
	require.Equal(t, want, buf.Data)
}

func TestWAVEncoderReportsContentType(t *testing.T) {
	encode := WAVEncoder(0)
	data, contentType, err := encode(nil)
	require.NoError(t, err)
	require.Equal(t, "audio/wav", contentType)
	require.Equal(t, []byte("RIFF"), data[:4])
}

type sourcePort struct {
	name      string
	available uint32
}

func setSourcePorts(t *testing.T, reply *pulseproto.GetSourceInfoReply, ports []sourcePort) {
	t.Helper()

	sliceType := reflect.TypeOf(reply.Ports)
	sliceValue := reflect.MakeSlice(sliceType, len(ports), len(ports))

	for i, port := range ports {
		item := sliceValue.Index(i)
		item.FieldByName("Name").SetString(port.name)
		item.FieldByName("Available").SetUint(uint64(port.available))
	}

	reflect.ValueOf(reply).Elem().FieldByName("Ports").Set(sliceValue)
}
