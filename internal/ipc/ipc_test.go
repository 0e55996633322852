package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func serveOn(t *testing.T, socketPath string, handler Handler) (cancel func()) {
	t.Helper()
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, listener, handler) }()

	return func() {
		stop()
		require.NoError(t, <-done)
	}
}

func TestSendRoundTripCarriesArgs(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), socketName)
	stop := serveOn(t, socketPath, HandlerFunc(func(_ context.Context, req Request) Response {
		if req.Command != CommandLanguage {
			return Response{OK: false, Error: "unexpected command"}
		}
		return Response{OK: true, State: "idle", Language: req.Args[0], Messages: 3}
	}))
	defer stop()

	resp, err := Send(context.Background(), socketPath, Request{Command: CommandLanguage, Args: []string{"ja"}}, 200*time.Millisecond)
	require.NoError(t, err)
	require.True(t, resp.OK)
	require.Equal(t, "ja", resp.Language)
	require.Equal(t, 3, resp.Messages)
}

func TestSendWithoutOwnerIsNoSession(t *testing.T) {
	_, err := Send(context.Background(), filepath.Join(t.TempDir(), socketName), Request{Command: CommandStatus}, 100*time.Millisecond)
	require.ErrorIs(t, err, ErrNoSession)
}

func TestSendDecodeResponseError(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), socketName)
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, acceptErr := listener.Accept()
		if acceptErr != nil {
			return
		}
		defer conn.Close()
		_, _ = bufio.NewReader(conn).ReadBytes('\n')
		_, _ = conn.Write([]byte("not-json\n"))
	}()

	_, err = Send(context.Background(), socketPath, Request{Command: CommandStatus}, 200*time.Millisecond)
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode response")
}

func TestSendReadResponseError(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), socketName)
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, acceptErr := listener.Accept()
		if acceptErr != nil {
			return
		}
		_ = conn.Close()
	}()

	_, err = Send(context.Background(), socketPath, Request{Command: CommandStatus}, 200*time.Millisecond)
	require.Error(t, err)
	require.Contains(t, err.Error(), "read response")
}

func TestServeRejectsMalformedRequest(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), socketName)
	stop := serveOn(t, socketPath, HandlerFunc(func(context.Context, Request) Response {
		return Response{OK: true}
	}))
	defer stop()

	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("not-json\n"))
	require.NoError(t, err)

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal(line, &resp))
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "decode request")
}

func TestProbe(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), socketName)
	stop := serveOn(t, socketPath, HandlerFunc(func(_ context.Context, req Request) Response {
		return Response{OK: req.Command == CommandStatus, State: "idle"}
	}))

	alive, err := Probe(context.Background(), socketPath, 200*time.Millisecond)
	require.NoError(t, err)
	require.True(t, alive)

	stop()

	alive, err = Probe(context.Background(), socketPath, 100*time.Millisecond)
	require.NoError(t, err)
	require.False(t, alive)
}

func TestAcquireReplacesStaleSocket(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), socketName)
	require.NoError(t, os.WriteFile(socketPath, []byte("stale"), 0o600))

	listener, err := Acquire(context.Background(), socketPath, 50*time.Millisecond, 2)
	require.NoError(t, err)
	defer listener.Close()

	info, err := os.Stat(socketPath)
	require.NoError(t, err)
	require.Equal(t, os.ModeSocket, info.Mode().Type())
}

func TestAcquireReturnsAlreadyRunning(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), socketName)
	stop := serveOn(t, socketPath, HandlerFunc(func(context.Context, Request) Response {
		return Response{OK: true, State: "recording"}
	}))
	defer stop()

	_, err := Acquire(context.Background(), socketPath, 80*time.Millisecond, 1)
	require.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestAcquireKeepsSocketWhenProbeInconclusive(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), socketName)
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	acceptDone := make(chan struct{})
	go func() {
		defer close(acceptDone)
		for {
			conn, acceptErr := listener.Accept()
			if acceptErr != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				time.Sleep(250 * time.Millisecond)
			}(conn)
		}
	}()

	_, err = Acquire(context.Background(), socketPath, 30*time.Millisecond, 0)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrAlreadyRunning)
	require.Contains(t, err.Error(), "probe existing socket")

	_, statErr := os.Stat(socketPath)
	require.NoError(t, statErr)
	require.NoError(t, listener.Close())
	<-acceptDone
}

func TestRuntimeSocketPath(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	require.Equal(t, "/run/user/1000/kaiwa.sock", RuntimeSocketPath())

	t.Setenv("XDG_RUNTIME_DIR", "")
	path := RuntimeSocketPath()
	require.Equal(t, socketName, filepath.Base(path))
	require.Contains(t, path, os.TempDir())
}
