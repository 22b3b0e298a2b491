package stats

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

type column struct {
	title      string
	rightAlign bool
}

// bestScoreColumns lays out the ledger: numeric columns read right to left.
var bestScoreColumns = []column{
	{title: "Digits", rightAlign: true},
	{title: "Best (ms)", rightAlign: true},
	{title: "ms/digit", rightAlign: true},
}

// formatTable renders rows under a header and a rule line. Missing cells are
// blank and extra cells are dropped.
func formatTable(cols []column, rows [][]string) []string {
	if len(cols) == 0 {
		return nil
	}
	widths := make([]int, len(cols))
	for i, col := range cols {
		widths[i] = runewidth.StringWidth(col.title)
	}
	for _, row := range rows {
		for i := range cols {
			widths[i] = max(widths[i], runewidth.StringWidth(cellAt(row, i)))
		}
	}

	titles := make([]string, len(cols))
	rules := make([]string, len(cols))
	for i, col := range cols {
		titles[i] = col.title
		rules[i] = strings.Repeat("-", widths[i])
	}

	lines := make([]string, 0, len(rows)+2)
	lines = append(lines, joinCells(cols, widths, titles), joinCells(cols, widths, rules))
	for _, row := range rows {
		lines = append(lines, joinCells(cols, widths, row))
	}
	return lines
}

func joinCells(cols []column, widths []int, row []string) string {
	cells := make([]string, len(cols))
	for i, col := range cols {
		cell := cellAt(row, i)
		if col.rightAlign {
			cells[i] = runewidth.FillLeft(cell, widths[i])
		} else {
			cells[i] = runewidth.FillRight(cell, widths[i])
		}
	}
	return strings.TrimRight(strings.Join(cells, "  "), " ")
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
