package stats

import (
	"os"

	"golang.org/x/term"
)

const (
	minCurveWidth       = 10
	curveFrameWidth     = 2
	terminalWidthBackup = 80
)

// CurveWidthFor computes a sparkline width that fits within totalWidth.
func CurveWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minCurveWidth
	}
	return max(totalWidth-curveFrameWidth, minCurveWidth)
}

// TerminalWidth returns the stdout width, or a fallback when stdout is not a terminal.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}
