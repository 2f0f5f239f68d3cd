package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/apresai/narrator/internal/assembly"
	"github.com/apresai/narrator/internal/pipeline"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4"))

	labelStyle = lipgloss.NewStyle().
			Width(18).
			Align(lipgloss.Right).
			MarginRight(2)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555")).
			Bold(true)

	costStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)
)

func row(w io.Writer, label, value string) {
	fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(value)))
}

func printHeader(w io.Writer, target string, files int, backend string) {
	fmt.Fprintln(w, titleStyle.Render("narrator "+Version))
	row(w, "Output", target)
	row(w, "Files", fmt.Sprint(files))
	row(w, "Synthesizer", backend)
	fmt.Fprintln(w)
}

func printReport(ctx context.Context, w io.Writer, r *pipeline.Report, pretend bool) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, costStyle.Render(fmt.Sprintf("Estimated cost $%.2f", r.EstimatedCost)))
	row(w, "Parts", fmt.Sprint(r.Planned))
	if pretend {
		fmt.Fprintln(w, dimStyle.Render("  Pretend mode: nothing was synthesized."))
		return
	}
	row(w, "Synthesized", fmt.Sprint(r.Synthesized))
	row(w, "Already done", fmt.Sprint(r.Existing))
	if r.Filtered > 0 {
		row(w, "Filtered", fmt.Sprint(r.Filtered))
	}
	if d := totalDuration(ctx, r.Outputs); d > 0 {
		row(w, "Audio length", assembly.FormatDuration(d))
	}
	row(w, "Elapsed", r.Elapsed.Round(time.Second).String())
	for _, f := range r.Failures {
		fmt.Fprintln(w, errorStyle.Render("  failed: ")+f.Error())
	}
}

// totalDuration sums the length of finished tracks. Missing ffprobe or
// missing files yield zero.
func totalDuration(ctx context.Context, outputs []string) time.Duration {
	var total time.Duration
	for _, o := range outputs {
		d, err := assembly.ProbeDuration(ctx, o)
		if err != nil {
			logger.DebugContext(ctx, "probe duration", "file", o, "error", err)
			continue
		}
		total += d
	}
	return total
}
