package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rbright/kaiwa/internal/clipboard"
	"github.com/rbright/kaiwa/internal/config"
	"github.com/rbright/kaiwa/internal/conversation"
	"github.com/rbright/kaiwa/internal/cue"
	"github.com/rbright/kaiwa/internal/ipc"
	"github.com/rbright/kaiwa/internal/pipeline"
	"github.com/rbright/kaiwa/internal/session"
)

const chatHelp = `/record          start recording
/stop            stop recording and send the voice turn
/cancel          cancel the in-flight voice turn
/lang en|ja      switch the display language
/reset           start over from the greeting
/save [DIR]      export the history as JSON
/speak N [FILE]  synthesize message N
/copy N          copy message N to the clipboard
/quit            leave
`

// repl is one interactive chat over a session controller.
type repl struct {
	ctrl *session.Controller
	out  *printer
	cues *cue.Player
	clip clipboard.Copier
}

func (r Runner) commandChat(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath := ipc.RuntimeSocketPath()
	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return exitFailure
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	chat := &repl{
		out:  newPrinter(r.Stdout),
		cues: cue.NewPlayer(cfg.Audio.Cues, logger),
		clip: clipboard.New(cfg.Clipboard.Command),
	}
	defer chat.cues.Wait()

	chat.ctrl, err = r.newSession(cfg, logger, true, chat.audioTurn)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return exitFailure
	}
	defer chat.ctrl.Close()

	if display := conversation.Language(cfg.Session.DisplayLanguage); display != chat.ctrl.DisplayLanguage() {
		if _, err := chat.ctrl.SetDisplayLanguage(ctx, display); err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return exitFailure
		}
	}

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, listener, chat.ctrl)
	}()

	chat.out.lines(chat.ctrl.Render())
	chat.out.noticef("type a message, or /help")

	code := chat.loop(ctx, r.Stdin)

	serverCancel()
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return exitFailure
	}
	return code
}

// audioTurn reports voice turns, which finish in the background. Text turns
// are printed by the line that submitted them.
func (c *repl) audioTurn(result pipeline.Result) {
	if result.Kind != pipeline.KindAudio {
		return
	}
	if result.State == pipeline.StateCompleted {
		c.cues.Play(cue.Complete)
	} else {
		c.cues.Play(cue.Cancel)
	}
	c.out.turn(c.ctrl, result)
}

func (c *repl) loop(ctx context.Context, stdin io.Reader) int {
	loopCtx, stop := context.WithCancel(ctx)
	defer stop()

	if stdin == nil {
		stdin = strings.NewReader("")
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-loopCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return exitOK
		case line, ok := <-lines:
			if !ok {
				return exitOK
			}
			if quit := c.line(ctx, line); quit {
				return exitOK
			}
		}
	}
}

// line handles one input line and reports whether the REPL should exit.
func (c *repl) line(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		result, err := c.ctrl.SubmitText(ctx, line)
		if errors.Is(err, session.ErrBusy) {
			c.out.errorf("%v", err)
			return false
		}
		c.out.turn(c.ctrl, result)
		return false
	}

	fields := strings.Fields(line)
	args := fields[1:]
	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/help":
		c.out.raw("%s", chatHelp)
	case "/record":
		if err := c.ctrl.StartRecording(ctx); err != nil {
			c.out.errorf("%v", err)
			return false
		}
		c.cues.Play(cue.Start)
		c.out.noticef("recording; /stop to send, /cancel after sending to abort")
	case "/stop":
		if err := c.ctrl.StopRecording(); err != nil {
			c.out.errorf("%v", err)
			return false
		}
		c.cues.Play(cue.Stop)
		c.out.noticef("sending voice turn")
	case "/cancel":
		if !c.ctrl.Cancel() {
			c.out.noticef("nothing to cancel")
		}
	case "/lang":
		c.language(ctx, args)
	case "/reset":
		if err := c.ctrl.Reset(); err != nil {
			c.out.errorf("%v", err)
			return false
		}
		c.out.lines(c.ctrl.Render())
	case "/save":
		dir := ""
		if len(args) > 0 {
			dir = args[0]
		}
		path, err := c.ctrl.Export(dir)
		if err != nil {
			c.out.errorf("%v", err)
			return false
		}
		c.out.noticef("saved %s", path)
	case "/speak":
		c.speak(ctx, args)
	case "/copy":
		c.copyMessage(ctx, args)
	default:
		c.out.errorf("unknown command %s (try /help)", fields[0])
	}
	return false
}

func (c *repl) language(ctx context.Context, args []string) {
	if len(args) != 1 {
		c.out.errorf("usage: /lang en|ja")
		return
	}
	lang, err := conversation.ParseLanguage(args[0])
	if err != nil {
		c.out.errorf("%v", err)
		return
	}
	if _, err := c.ctrl.SetDisplayLanguage(ctx, lang); err != nil {
		c.out.errorf("%v", err)
		return
	}
	c.out.lines(c.ctrl.Render())
}

func (c *repl) speak(ctx context.Context, args []string) {
	if len(args) < 1 || len(args) > 2 {
		c.out.errorf("usage: /speak N [FILE]")
		return
	}
	n, ok := c.messageNumber(args[0])
	if !ok {
		return
	}

	speech, err := c.ctrl.Speak(ctx, n)
	if err != nil {
		c.out.errorf("%v", err)
		return
	}
	path := fmt.Sprintf("message-%d.%s", n, speechExt(speech.ContentType, ""))
	if len(args) == 2 {
		path = args[1]
	}
	if err := os.WriteFile(path, speech.Audio, 0o644); err != nil {
		c.out.errorf("write speech: %v", err)
		return
	}
	c.out.noticef("wrote %s", path)
}

// copyMessage puts message N on the clipboard as currently displayed.
func (c *repl) copyMessage(ctx context.Context, args []string) {
	if len(args) != 1 {
		c.out.errorf("usage: /copy N")
		return
	}
	n, ok := c.messageNumber(args[0])
	if !ok {
		return
	}
	for _, l := range c.ctrl.Render() {
		if l.Number != n {
			continue
		}
		if err := c.clip.Copy(ctx, l.Text); err != nil {
			c.out.errorf("%v", err)
			return
		}
		c.out.noticef("copied message %d", n)
		return
	}
	c.out.errorf("%v: %d", session.ErrNoSuchMessage, n)
}

func (c *repl) messageNumber(arg string) (int, bool) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		c.out.errorf("message number %q is not a number", arg)
		return 0, false
	}
	return n, true
}
