// Package console renders a room timeline and presence notices as plain
// terminal lines.
package console

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/vovakirdan/wirechat/internal/message"
	"github.com/vovakirdan/wirechat/internal/presence"
)

const clock = "15:04:05"

// Printer writes timeline and notice lines to out. It implements
// timeline.View and is safe for concurrent use.
type Printer struct {
	mu  sync.Mutex
	out io.Writer
	loc *time.Location

	header lipgloss.Style
	stamp  lipgloss.Style
	author lipgloss.Style
	system lipgloss.Style
	failed lipgloss.Style
}

// New creates a printer. Colors are emitted only when color is set and out
// is a terminal. Timestamps are shown in loc, or local time when nil.
func New(out io.Writer, color bool, loc *time.Location) *Printer {
	if loc == nil {
		loc = time.Local
	}
	r := lipgloss.NewRenderer(out)
	if !color {
		r.SetColorProfile(termenv.Ascii)
	}
	return &Printer{
		out:    out,
		loc:    loc,
		header: r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		stamp:  r.NewStyle().Foreground(lipgloss.Color("8")),
		author: r.NewStyle().Bold(true),
		system: r.NewStyle().Italic(true).Foreground(lipgloss.Color("11")),
		failed: r.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

// Reset clears the displayed room and prints msgs under a room header.
func (p *Printer) Reset(room string, msgs []message.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.writeln(p.header.Render("=== #" + room + " ==="))
	for _, msg := range msgs {
		p.writeln(p.line(msg))
	}
}

// Append prints one message.
func (p *Printer) Append(msg message.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeln(p.line(msg))
}

// Notice prints a system or error notice.
func (p *Printer) Notice(n presence.Notice) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch n.Kind {
	case presence.KindError:
		p.writeln(p.failed.Render("! " + n.Text))
	default:
		p.writeln(p.system.Render("* " + n.Text))
	}
}

// Notices prints notices from ch until ctx is done or ch is closed.
func (p *Printer) Notices(ctx context.Context, ch <-chan presence.Notice) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			p.Notice(n)
		}
	}
}

func (p *Printer) line(msg message.Message) string {
	return fmt.Sprintf("%s %s: %s",
		p.stamp.Render("["+msg.CreatedAt.In(p.loc).Format(clock)+"]"),
		p.author.Render(msg.Author),
		msg.Text,
	)
}

func (p *Printer) writeln(s string) {
	_, _ = io.WriteString(p.out, s+"\n")
}
