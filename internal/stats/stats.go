// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/verte-zerg/codemem/internal/model"
)

const sparkChars = " .:-=+*#%@"

// MsPerDigit returns recall milliseconds per correctly placed digit.
func MsPerDigit(correct int, recallMs int64) float64 {
	if correct <= 0 {
		return 0
	}
	return float64(recallMs) / float64(correct)
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints a summary of rounds.
func RenderSummary(w io.Writer, rounds []model.RoundAggregate) error {
	if len(rounds) == 0 {
		_, err := fmt.Fprintln(w, "No rounds found.")
		return err
	}
	var totalCorrect int
	var totalRecall, totalMemorize int64
	perfect := 0
	var fastestPerfect int64
	for _, r := range rounds {
		totalCorrect += r.Correct
		totalRecall += r.RecallMs
		totalMemorize += r.MemorizeMs
		if r.Correct == model.SequenceLength {
			perfect++
			if fastestPerfect == 0 || r.RecallMs < fastestPerfect {
				fastestPerfect = r.RecallMs
			}
		}
	}
	count := float64(len(rounds))
	lines := []string{
		"Summary",
		fmt.Sprintf("Rounds: %d", len(rounds)),
		fmt.Sprintf("Avg correct: %.2f / %d", float64(totalCorrect)/count, model.SequenceLength),
		fmt.Sprintf("Avg memorize: %.0f ms", float64(totalMemorize)/count),
		fmt.Sprintf("Avg recall: %.0f ms", float64(totalRecall)/count),
		fmt.Sprintf("Perfect rounds: %d", perfect),
	}
	if perfect > 0 {
		lines = append(lines, fmt.Sprintf("Fastest perfect recall: %d ms", fastestPerfect))
	}
	lines = append(lines, "")
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderBestScores prints the best-score ledger ordered by correct count.
func RenderBestScores(w io.Writer, scores model.BestScores) error {
	if len(scores) == 0 {
		_, err := fmt.Fprintln(w, "No best scores yet.")
		return err
	}
	counts := make([]int, 0, len(scores))
	for c := range scores {
		counts = append(counts, c)
	}
	sort.Ints(counts)

	if _, err := fmt.Fprintln(w, "Best Scores"); err != nil {
		return err
	}
	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []string{
			fmt.Sprintf("%d", c),
			fmt.Sprintf("%d", scores[c]),
			fmt.Sprintf("%.1f", MsPerDigit(c, scores[c])),
		})
	}
	for _, line := range formatTable(bestScoreColumns, rows) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderCorrectCurve prints a sparkline of correct digits per round,
// smoothed over window and limited to the last width rounds.
func RenderCorrectCurve(w io.Writer, rounds []model.RoundAggregate, window, width int) error {
	if len(rounds) == 0 {
		return nil
	}
	values := make([]float64, len(rounds))
	for i, r := range rounds {
		values[i] = float64(r.Correct)
	}
	values = MovingAverage(values, window)
	if width > 0 && len(values) > width {
		values = values[len(values)-width:]
	}
	if _, err := fmt.Fprintf(w, "Correct digits (window %d)\n", window); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "[%s]\n", Sparkline(values)); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "last %.1f  min %.1f  max %.1f\n", values[len(values)-1], minOf(values), maxOf(values))
	return err
}

func minOf(values []float64) float64 {
	out := values[0]
	for _, v := range values[1:] {
		out = math.Min(out, v)
	}
	return out
}

func maxOf(values []float64) float64 {
	out := values[0]
	for _, v := range values[1:] {
		out = math.Max(out, v)
	}
	return out
}
