package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/codemem/internal/score"
)

type styledRune struct {
	s       string
	width   int
	isSpace bool
}

func newStyledRune(r rune, style lipgloss.Style) styledRune {
	return styledRune{
		s:       style.Render(string(r)),
		width:   runewidth.RuneWidth(r),
		isSpace: r == ' ',
	}
}

// buildResultRunes colors each typed position by correctness. Input shorter
// than the display width is padded; input past it is always incorrect.
func buildResultRunes(input string, marks []bool, groupSize int) []styledRune {
	padded := []rune(score.Padded(input))
	out := make([]styledRune, 0, len(padded)+len(padded)/max(groupSize, 1))
	for i, r := range padded {
		if groupSize > 0 && i > 0 && i%groupSize == 0 {
			out = append(out, newStyledRune(' ', pendingStyle))
		}
		style := incorrectStyle
		if i < len(marks) && marks[i] {
			style = correctStyle
		}
		if r == score.Placeholder {
			r = '_'
		}
		out = append(out, newStyledRune(r, style))
	}
	return out
}

func buildSequenceRunes(sequence string, groupSize int, style lipgloss.Style) []styledRune {
	grouped := groupDigits(sequence, groupSize)
	out := make([]styledRune, 0, len(grouped))
	for _, r := range grouped {
		out = append(out, newStyledRune(r, style))
	}
	return out
}

func groupDigits(s string, size int) string {
	runes := []rune(s)
	if size <= 0 || size >= len(runes) {
		return s
	}
	var b strings.Builder
	for i, r := range runes {
		if i > 0 && i%size == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func renderStyledRunes(runes []styledRune) string {
	var b strings.Builder
	for _, item := range runes {
		b.WriteString(item.s)
	}
	return b.String()
}

func wrapStyledRunes(runes []styledRune, width int) string {
	if width <= 0 {
		return renderStyledRunes(runes)
	}
	var out strings.Builder
	line := make([]styledRune, 0, len(runes))
	lineWidth := 0
	lastSpaceIdx := -1

	for i := 0; i < len(runes); {
		item := runes[i]
		if lineWidth+item.width > width && len(line) > 0 {
			if lastSpaceIdx >= 0 {
				out.WriteString(renderStyledRunes(line[:lastSpaceIdx]))
				out.WriteRune('\n')
				line = append([]styledRune{}, line[lastSpaceIdx+1:]...)
				lineWidth = lineWidthOf(line)
				lastSpaceIdx = lastSpaceIndex(line)
			} else {
				out.WriteString(renderStyledRunes(line))
				out.WriteRune('\n')
				line = line[:0]
				lineWidth = 0
				lastSpaceIdx = -1
			}
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpaceIdx = len(line) - 1
		}
		i++
	}
	out.WriteString(renderStyledRunes(line))
	return out.String()
}

func lineWidthOf(line []styledRune) int {
	total := 0
	for _, item := range line {
		total += item.width
	}
	return total
}

func lastSpaceIndex(line []styledRune) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i].isSpace {
			return i
		}
	}
	return -1
}
