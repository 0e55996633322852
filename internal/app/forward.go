package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rbright/kaiwa/internal/ipc"
)

const forwardTimeout = 220 * time.Millisecond

// stopTimeout covers a cancel that waits for the in-flight turn to settle.
const stopTimeout = 5 * time.Second

func (r Runner) commandStatus(ctx context.Context) int {
	resp, handled, err := tryForward(ctx, ipc.RuntimeSocketPath(), ipc.CommandStatus)
	if !handled {
		fmt.Fprintln(r.Stdout, "idle")
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return exitFailure
	}
	if resp.State == "" {
		resp.State = "idle"
	}
	fmt.Fprintln(r.Stdout, resp.State)
	return exitOK
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	resp, handled, err := tryForward(ctx, ipc.RuntimeSocketPath(), command)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: %v\n", ipc.ErrNoSession)
		return exitFailure
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return exitFailure
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return exitOK
}

// tryForward reports handled=false when no session owns the socket.
func tryForward(ctx context.Context, socketPath string, command string) (ipc.Response, bool, error) {
	timeout := forwardTimeout
	if command == ipc.CommandCancel {
		timeout = stopTimeout
	}

	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: command}, timeout)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}
	if errors.Is(err, ipc.ErrNoSession) {
		return ipc.Response{}, false, nil
	}
	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}
