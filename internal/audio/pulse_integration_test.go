//go:build integration

package audio

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestListSourcesIntegration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	sources, err := ListSources(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, sources)
}

func TestPulseDeviceCaptureIntegration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var captured atomic.Int64
	stream, err := PulseDevice{Input: "default"}.Open(ctx, func(b []byte) {
		captured.Add(int64(len(b)))
	})
	require.NoError(t, err)

	time.Sleep(300 * time.Millisecond)
	require.NoError(t, stream.Close())
	<-stream.Done()
	require.Positive(t, captured.Load())
}
