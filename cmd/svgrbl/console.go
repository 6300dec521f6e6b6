package main

import (
	"fmt"
	"io"

	"github.com/mastercactapus/svgrbl/machine/grbl"
	"github.com/muesli/termenv"
)

// console prints streamer events to a terminal.
type console struct {
	out *termenv.Output

	lastPct int
}

func newConsole(w io.Writer) *console {
	return &console{out: termenv.NewOutput(w), lastPct: -10}
}

func (c *console) StateChanged(s grbl.State) {
	style := c.out.String("STATE", s.String()).Bold()
	switch s {
	case grbl.Done:
		style = style.Foreground(c.out.Color("2"))
	case grbl.Paused:
		style = style.Foreground(c.out.Color("3"))
	case grbl.Error:
		style = style.Foreground(c.out.Color("1"))
	}
	fmt.Fprintln(c.out, style)
}

func (c *console) LineSent(index int, line string) {
	fmt.Fprintln(c.out, c.out.String(fmt.Sprintf("> %d: %s", index+1, line)).Faint())
}

func (c *console) LineReceived(line string) {
	fmt.Fprintln(c.out, "<", line)
}

func (c *console) Progress(acked, total int) {
	pct := acked * 100 / total
	if pct/10 == c.lastPct/10 && acked != total {
		return
	}
	c.lastPct = pct
	fmt.Fprintln(c.out, c.out.String(fmt.Sprintf("%d/%d (%d%%)", acked, total, pct)).Foreground(c.out.Color("6")))
}

func (c *console) Error(err *grbl.StreamError) {
	fmt.Fprintln(c.out, c.out.String("ERROR:", err.Error()).Bold().Foreground(c.out.Color("1")))
}
