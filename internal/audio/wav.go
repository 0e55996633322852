package audio

import (
	"encoding/binary"
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/rbright/kaiwa/internal/recording"
)

const (
	bitDepth      = 16
	channels      = 1
	wavFormatPCM  = 1
	wavMIMEType   = "audio/wav"
	wavTempPrefix = "kaiwa-capture-*.wav"
)

// WAVEncoder returns a recording.Encoder that wraps mono s16le PCM in a WAV
// container at sampleRate.
func WAVEncoder(sampleRate int) recording.Encoder {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return func(raw []byte) ([]byte, string, error) {
		data, err := EncodeWAV(raw, sampleRate)
		if err != nil {
			return nil, "", err
		}
		return data, wavMIMEType, nil
	}
}

// EncodeWAV converts little-endian 16-bit mono PCM into WAV bytes. A trailing
// odd byte is dropped.
func EncodeWAV(pcm []byte, sampleRate int) ([]byte, error) {
	// The encoder seeks back to patch chunk sizes, so it needs a file.
	f, err := os.CreateTemp("", wavTempPrefix)
	if err != nil {
		return nil, fmt.Errorf("create wav temp file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if err := writeWAV(f, pcm, sampleRate); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close wav temp file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read wav temp file: %w", err)
	}
	return data, nil
}

func writeWAV(f *os.File, pcm []byte, sampleRate int) error {
	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}
