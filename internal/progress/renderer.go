package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-isatty"
)

// Renderer shows batch progress. On a terminal it redraws a status line and
// a bar covering the whole batch; any other writer gets one line per new
// status.
type Renderer struct {
	out   io.Writer
	tty   bool
	width int

	drawn  int
	status string
	last   Event
}

// NewRenderer writes to out, detecting whether it is a terminal.
func NewRenderer(out *os.File) *Renderer {
	tty := isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd())
	width := 80
	if tty {
		if w, _, err := term.GetSize(out.Fd()); err == nil && w > 0 {
			width = w
		}
	}
	return newRenderer(out, tty, width)
}

func newRenderer(out io.Writer, tty bool, width int) *Renderer {
	return &Renderer{out: out, tty: tty, width: width}
}

// Handle satisfies Callback.
func (r *Renderer) Handle(e Event) {
	r.last = e
	switch e.Stage {
	case StageEstimate:
		r.erase()
		fmt.Fprintf(r.out, "  %s\n", e.Message)
		return
	case StageComplete:
		return
	}

	status := e.Message
	if e.Part > 0 && e.PartTotal > 0 {
		status = fmt.Sprintf("[%d/%d] %s", e.Part, e.PartTotal, e.Message)
	}

	if !r.tty {
		if status == r.status {
			return
		}
		r.status = status
		fmt.Fprintf(r.out, "[%s] %s\n", clock(e.Elapsed), status)
		return
	}

	r.erase()
	line := lipgloss.NewStyle().MaxWidth(r.width - 1).Render("  " + status)
	frac := batchFraction(e)
	fmt.Fprintf(r.out, "%s\n  %s %3d%%  %s", line, bar(frac, r.barWidth()), int(frac*100), clock(e.Elapsed))
	r.drawn = 2
}

// Finish removes the bar. When the batch completed it prints the part
// counts and the total time.
func (r *Renderer) Finish() {
	r.erase()
	if r.last.Stage != StageComplete {
		return
	}
	e := r.last
	fmt.Fprintf(r.out, "\n  %d synthesized, %d skipped in %s\n", e.Synthesized, e.Skipped, clock(e.Elapsed))
}

func (r *Renderer) erase() {
	if r.drawn == 0 {
		return
	}
	fmt.Fprint(r.out, "\r\033[2K"+strings.Repeat("\033[A\033[2K", r.drawn-1)+"\r")
	r.drawn = 0
}

// barWidth leaves room for the indent, percentage and clock.
func (r *Renderer) barWidth() int {
	return min(max(r.width-20, 20), 60)
}

// batchFraction places a part's own progress inside the whole batch, so the
// bar does not restart at every part.
func batchFraction(e Event) float64 {
	pct := min(max(e.Percent, 0), 1)
	if e.Part <= 0 || e.PartTotal <= 0 {
		return pct
	}
	return (float64(e.Part-1) + pct) / float64(e.PartTotal)
}

func bar(frac float64, width int) string {
	filled := int(min(max(frac, 0), 1) * float64(width))
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

// clock formats d as M:SS, or H:MM:SS from one hour.
func clock(d time.Duration) string {
	s := int(d.Seconds())
	if s >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", s/3600, s%3600/60, s%60)
	}
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
