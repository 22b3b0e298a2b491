// Package model defines shared data structures.
package model

import "time"

// SequenceLength is the fixed number of digits in every sequence.
const SequenceLength = 16

// Phase identifies the active step of a session.
type Phase int

const (
	PhaseInstructions Phase = iota
	PhaseMemorize
	PhaseRecall
	PhaseResult
)

// String returns the lowercase phase name.
func (p Phase) String() string {
	switch p {
	case PhaseInstructions:
		return "instructions"
	case PhaseMemorize:
		return "memorize"
	case PhaseRecall:
		return "recall"
	case PhaseResult:
		return "result"
	default:
		return "unknown"
	}
}

// Timed reports whether the session timer runs during the phase.
func (p Phase) Timed() bool {
	return p == PhaseMemorize || p == PhaseRecall
}

// BestScores maps a correct-digit count to the fastest recall time in milliseconds.
type BestScores map[int]int64

// Clone returns an independent copy.
func (b BestScores) Clone() BestScores {
	out := make(BestScores, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Snapshot is a read-only view of session state handed to renderers.
type Snapshot struct {
	Phase      Phase
	Sequence   string
	Input      string
	ElapsedMs  int64
	LastScore  int64
	Marks      []bool
	Correct    int
	BestScores BestScores
}

// BestForCorrect returns the record for the snapshot's correct count.
func (s Snapshot) BestForCorrect() (int64, bool) {
	if s.Correct <= 0 {
		return 0, false
	}
	v, ok := s.BestScores[s.Correct]
	return v, ok
}

// Config defines session settings.
type Config struct {
	TickInterval time.Duration
	GroupSize    int
	History      bool
	LogLevel     string
	MetricsFile  string
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Since       *time.Time
	Last        int
	CurveWindow int
}

// Round captures a completed memorize/recall round.
type Round struct {
	ID         string
	StartedAt  time.Time
	EndedAt    time.Time
	MemorizeMs int64
	RecallMs   int64
	Correct    int
	Sequence   string
	Input      string
}

// RoundAggregate summarizes a round for reporting.
type RoundAggregate struct {
	ID         string
	EndedAt    time.Time
	MemorizeMs int64
	RecallMs   int64
	Correct    int
}
