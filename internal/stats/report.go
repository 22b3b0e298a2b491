// Package stats contains statistics calculations and reporting.
package stats

import (
	"context"
	"io"

	"github.com/verte-zerg/codemem/internal/model"
)

// RoundLister lists stored rounds.
type RoundLister interface {
	ListRounds(ctx context.Context, cfg model.StatsConfig) ([]model.RoundAggregate, error)
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Rounds     []model.RoundAggregate
	BestScores model.BestScores
	Window     int
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, lister RoundLister, scores model.BestScores, cfg model.StatsConfig) (Report, error) {
	rounds, err := lister.ListRounds(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Rounds:     rounds,
		BestScores: scores.Clone(),
		Window:     cfg.CurveWindow,
	}, nil
}

// Render writes the full report sized to totalWidth.
func (r Report) Render(w io.Writer, totalWidth int) error {
	if err := RenderSummary(w, r.Rounds); err != nil {
		return err
	}
	if err := RenderBestScores(w, r.BestScores); err != nil {
		return err
	}
	return RenderCorrectCurve(w, r.Rounds, r.Window, CurveWidthFor(totalWidth))
}
