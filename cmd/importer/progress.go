package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow)
)

// progress prints a counter that rewrites itself on a terminal and prints
// one line every step items otherwise.
type progress struct {
	out  io.Writer
	tty  bool
	step int
	last int
}

func newProgress(out io.Writer) *progress {
	p := &progress{out: out, step: 100}
	if f, ok := out.(*os.File); ok {
		p.tty = term.IsTerminal(int(f.Fd()))
	}
	return p
}

func (p *progress) update(done, total int, what string) {
	switch {
	case p.tty && total > 0:
		fmt.Fprintf(p.out, "\r%s %d/%d", what, done, total)
	case p.tty:
		fmt.Fprintf(p.out, "\r%s %d", what, done)
	case done-p.last >= p.step:
		p.last = done
		fmt.Fprintf(p.out, "%s %d\n", what, done)
	}
}

func (p *progress) done(format string, args ...interface{}) {
	if p.tty {
		fmt.Fprint(p.out, "\r\033[K")
	}
	okColor.Fprintf(p.out, format+"\n", args...)
}

func (p *progress) warn(format string, args ...interface{}) {
	warnColor.Fprintf(p.out, format+"\n", args...)
}
