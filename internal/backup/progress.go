package backup

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"
)

const progressInterval = 200 * time.Millisecond

// TerminalProgress returns os.Stderr when stdout is an interactive terminal,
// nil otherwise. A nil writer disables progress output.
func TerminalProgress() io.Writer {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return os.Stderr
	}
	return nil
}

// progressWriter counts bytes passing through to w and redraws a single
// status line on out. It never fails a write because of out.
type progressWriter struct {
	w     io.Writer
	out   io.Writer
	desc  string
	total uint64
	last  time.Time
	start time.Time
}

func newProgressWriter(w, out io.Writer, desc string) *progressWriter {
	now := time.Now()
	return &progressWriter{w: w, out: out, desc: desc, start: now, last: now}
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.total += uint64(n)

	if now := time.Now(); now.Sub(p.last) >= progressInterval {
		p.last = now
		p.draw()
	}
	return n, err
}

func (p *progressWriter) draw() {
	elapsed := time.Since(p.start).Seconds()
	rate := uint64(0)
	if elapsed > 0 {
		rate = uint64(float64(p.total) / elapsed)
	}
	_, _ = fmt.Fprintf(p.out, "\r\033[K%s: %s (%s/s)", p.desc, humanize.Bytes(p.total), humanize.Bytes(rate))
}

// Finish draws the final state and ends the line
func (p *progressWriter) Finish() {
	p.draw()
	_, _ = fmt.Fprintln(p.out)
}
