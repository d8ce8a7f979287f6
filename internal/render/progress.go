package render

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// ProgressBar renders "[====      ] current/total (pct%)".
type ProgressBar struct {
	current int
	total   int
	width   int
	colored bool
}

// NewProgressBar creates a progress bar. Widths below 1 fall back to 10.
func NewProgressBar(current, total, width int, colored bool) *ProgressBar {
	if width < 1 {
		width = 10
	}
	return &ProgressBar{current: current, total: total, width: width, colored: colored}
}

// Percentage returns the progress percentage clamped to 0-100.
func (pb *ProgressBar) Percentage() int {
	if pb.total <= 0 {
		return 0
	}
	perc := (pb.current * 100) / pb.total
	if perc > 100 {
		perc = 100
	}
	if perc < 0 {
		perc = 0
	}
	return perc
}

// Render generates the bar. In-progress bars are cyan and complete ones green when colored.
func (pb *ProgressBar) Render() string {
	perc := pb.Percentage()
	filled := (perc * pb.width) / 100

	var b strings.Builder
	b.WriteString("[")
	b.WriteString(strings.Repeat("=", filled))
	b.WriteString(strings.Repeat(" ", pb.width-filled))
	b.WriteString("]")
	result := fmt.Sprintf("%s %d/%d (%d%%)", b.String(), pb.current, pb.total, perc)

	if !pb.colored {
		return result
	}
	c := color.New(color.FgCyan)
	if perc == 100 {
		c = color.New(color.FgGreen)
	}
	c.EnableColor()
	return c.Sprint(result)
}
