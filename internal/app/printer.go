package app

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/rbright/kaiwa/internal/conversation"
	"github.com/rbright/kaiwa/internal/pipeline"
	"github.com/rbright/kaiwa/internal/session"
)

// printer serializes transcript output from the REPL and background turns.
type printer struct {
	mu  sync.Mutex
	out io.Writer

	user      *color.Color
	assistant *color.Color
	notice    *color.Color
	failure   *color.Color
}

func newPrinter(out io.Writer) *printer {
	return &printer{
		out:       out,
		user:      color.New(color.FgCyan),
		assistant: color.New(color.FgGreen),
		notice:    color.New(color.FgYellow),
		failure:   color.New(color.FgRed),
	}
}

func (p *printer) line(l session.Line) {
	c := p.assistant
	if l.Role == conversation.RoleUser {
		c = p.user
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	c.Fprintf(p.out, "[%d] %s: %s\n", l.Number, l.Role, l.Text)
}

func (p *printer) lines(lines []session.Line) {
	for _, l := range lines {
		p.line(l)
	}
}

func (p *printer) noticef(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notice.Fprintf(p.out, format+"\n", args...)
}

func (p *printer) errorf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failure.Fprintf(p.out, "error: "+format+"\n", args...)
}

// turn prints the messages a settled turn appended. Text turns skip the user
// line already typed at the prompt.
func (p *printer) turn(ctrl *session.Controller, result pipeline.Result) {
	switch {
	case pipeline.IsCancelled(result.Err):
		p.noticef("voice turn cancelled")
		return
	case result.Err != nil:
		p.errorf("%v", result.Err)
		return
	}

	appended := make(map[string]bool, len(result.Appended))
	for _, m := range result.Appended {
		if result.Kind == pipeline.KindText && m.Role == conversation.RoleUser {
			continue
		}
		appended[m.ID] = true
	}
	for _, l := range ctrl.Render() {
		if appended[l.ID] {
			p.line(l)
		}
	}
	if result.Augmented {
		p.noticef("(weather for %s included)", result.Location)
	}
}

func (p *printer) raw(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}
