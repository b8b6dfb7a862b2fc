package nbodysim

import (
	"fmt"
	"io"
	"os"
	"strings"
)

const progressBarWidth = 60

// ProgressBar renders a textual completion bar, redrawn in place on its
// own stream. It is purely cosmetic and never part of the data contract;
// the CLI attaches it to stderr only when the result stream on stdout is
// redirected away from the terminal.
type ProgressBar struct {
	w    io.Writer
	fill string
}

// NewProgressBar builds a bar writing to w.
func NewProgressBar(w io.Writer) *ProgressBar {
	return &ProgressBar{w: w, fill: strings.Repeat("|", progressBarWidth)}
}

// OnStepStart redraws the bar as a step begins, counting that step as
// done, so the line for a long step is visible while it runs. The final
// step draws 100% and finishes the line.
func (p *ProgressBar) OnStepStart(step, totalSteps int) {
	fraction := float64(step) / float64(totalSteps)
	percent := int(fraction * 100)
	filled := int(fraction * progressBarWidth)
	fmt.Fprintf(p.w, "\r%3d%% [%-*s]", percent, progressBarWidth, p.fill[:filled])
	if step == totalSteps {
		fmt.Fprintln(p.w)
	}
}

// OnStepComplete is part of the observer contract; the bar draws on
// step start instead.
func (p *ProgressBar) OnStepComplete(step, totalSteps int, bodies []Body) {}

// StdoutRedirected reports whether stdout is not attached to a terminal,
// which is when the progress bar is worth showing on stderr.
func StdoutRedirected() bool {
	info, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice == 0
}
