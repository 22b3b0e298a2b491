// Package score compares recalled input against the memorized sequence.
package score

import (
	"strings"

	"github.com/verte-zerg/codemem/internal/model"
)

// DisplayWidth is the number of positions evaluated for display.
const DisplayWidth = model.SequenceLength

// Placeholder pads short input for display. It never matches a digit.
const Placeholder = ' '

// Result holds per-position correctness and the correct count.
type Result struct {
	Marks   []bool
	Correct int
}

// Score evaluates input against sequence.
func Score(sequence, input string) Result {
	seq := []rune(sequence)
	in := []rune(input)

	marks := make([]bool, DisplayWidth)
	for i := range marks {
		marks[i] = i < len(in) && i < len(seq) && in[i] == seq[i]
	}

	correct := 0
	n := min(len(in), len(seq))
	for i := 0; i < n; i++ {
		if in[i] == seq[i] {
			correct++
		}
	}
	return Result{Marks: marks, Correct: correct}
}

// Padded returns input right-padded with Placeholder to DisplayWidth.
func Padded(input string) string {
	n := len([]rune(input))
	if n >= DisplayWidth {
		return input
	}
	return input + strings.Repeat(string(Placeholder), DisplayWidth-n)
}

// DigitsOnly drops every rune outside '0'-'9'.
func DigitsOnly(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
