package session

import (
	"context"
	"fmt"

	"github.com/rbright/kaiwa/internal/conversation"
	"github.com/rbright/kaiwa/internal/ipc"
)

// Handle serves IPC commands from another kaiwa process.
func (c *Controller) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return c.respond("status")
	case ipc.CommandRecord:
		if err := c.StartRecording(ctx); err != nil {
			return ipc.Fail(string(c.State()), err)
		}
		return c.respond("recording")
	case ipc.CommandStop:
		if err := c.StopRecording(); err != nil {
			return ipc.Fail(string(c.State()), fmt.Errorf("cannot stop from state %s: %w", c.State(), err))
		}
		return c.respond("stop requested")
	case ipc.CommandCancel:
		if !c.Cancel() {
			return ipc.Fail(string(c.State()), fmt.Errorf("no audio turn to cancel in state %s", c.State()))
		}
		return c.respond("cancelled")
	case ipc.CommandLanguage:
		if len(req.Args) != 1 {
			return ipc.Fail(string(c.State()), fmt.Errorf("language requires one argument (%s|%s)", c.opts.Primary, c.opts.Secondary))
		}
		lang, err := conversation.ParseLanguage(req.Args[0])
		if err != nil {
			return ipc.Fail(string(c.State()), err)
		}
		if _, err := c.SetDisplayLanguage(ctx, lang); err != nil {
			return ipc.Fail(string(c.State()), err)
		}
		return c.respond("language set")
	case ipc.CommandReset:
		if err := c.Reset(); err != nil {
			return ipc.Fail(string(c.State()), err)
		}
		return c.respond("conversation reset")
	default:
		return ipc.Fail(string(c.State()), fmt.Errorf("unknown command: %s", req.Command))
	}
}

func (c *Controller) respond(message string) ipc.Response {
	return ipc.Response{
		OK:       true,
		State:    string(c.State()),
		Language: string(c.DisplayLanguage()),
		Messages: c.store.Len(),
		Message:  message,
	}
}
