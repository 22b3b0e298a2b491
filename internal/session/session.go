// Package session implements the memorize/recall state machine.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/codemem/internal/ledger"
	"github.com/verte-zerg/codemem/internal/model"
	"github.com/verte-zerg/codemem/internal/score"
)

// SequenceSource produces the sequence for each memorize phase.
type SequenceSource interface {
	Generate() string
}

// Recorder receives session metrics.
type Recorder interface {
	ObserveRound(memorizeMs, recallMs int64, correct int)
	ObserveRecord()
	ObserveClear()
	ObservePersistError()
	SetBestScores(n int)
}

// RoundWriter stores finished rounds.
type RoundWriter interface {
	InsertRound(ctx context.Context, round model.Round) error
}

type nopRecorder struct{}

func (nopRecorder) ObserveRound(int64, int64, int) {}
func (nopRecorder) ObserveRecord()                 {}
func (nopRecorder) ObserveClear()                  {}
func (nopRecorder) ObservePersistError()           {}
func (nopRecorder) SetBestScores(int)              {}

// Machine owns all session state. It is not safe for concurrent use; the
// host delivers one event at a time.
type Machine struct {
	gen     SequenceSource
	ledger  *ledger.Ledger
	clock   Clock
	log     zerolog.Logger
	metrics Recorder
	rounds  RoundWriter

	phase      model.Phase
	sequence   string
	input      string
	roundStart time.Time
	phaseStart time.Time
	memorizeMs int64
	elapsedMs  int64
	lastScore  int64
	result     score.Result

	subscribers map[int]func(model.Snapshot)
	nextSubID   int
}

// New returns a Machine in the instructions phase.
func New(gen SequenceSource, l *ledger.Ledger, opts ...Option) *Machine {
	m := &Machine{
		gen:         gen,
		ledger:      l,
		clock:       systemClock{},
		log:         zerolog.Nop(),
		metrics:     nopRecorder{},
		phase:       model.PhaseInstructions,
		subscribers: map[int]func(model.Snapshot){},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Subscribe registers fn to receive a snapshot after every state change.
// The returned func removes the subscription.
func (m *Machine) Subscribe(fn func(model.Snapshot)) func() {
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	return func() {
		delete(m.subscribers, id)
	}
}

// LoadRecords reads persisted best scores into the ledger.
func (m *Machine) LoadRecords(ctx context.Context) error {
	scores, err := m.ledger.Load(ctx)
	m.metrics.SetBestScores(len(scores))
	m.notify()
	return err
}

// Phase returns the active phase.
func (m *Machine) Phase() model.Phase {
	return m.phase
}

// Snapshot returns a read-only copy of the session state.
func (m *Machine) Snapshot() model.Snapshot {
	snap := model.Snapshot{
		Phase:      m.phase,
		Sequence:   m.sequence,
		Input:      m.input,
		ElapsedMs:  m.elapsedMs,
		LastScore:  m.lastScore,
		BestScores: m.ledger.Scores(),
	}
	if m.phase == model.PhaseResult {
		snap.Marks = append([]bool(nil), m.result.Marks...)
		snap.Correct = m.result.Correct
	}
	return snap
}

// Advance moves to the next phase.
func (m *Machine) Advance(ctx context.Context) {
	switch m.phase {
	case model.PhaseInstructions, model.PhaseResult:
		m.startMemorize()
	case model.PhaseMemorize:
		m.memorizeMs = m.sinceStart()
		m.startTimedPhase(model.PhaseRecall)
	case model.PhaseRecall:
		m.finishRecall(ctx)
	}
	m.log.Debug().Str("phase", m.phase.String()).Msg("phase changed")
	m.notify()
}

// EditInput replaces the recall input. Non-digits are dropped. Ignored outside recall.
func (m *Machine) EditInput(value string) {
	if m.phase != model.PhaseRecall {
		return
	}
	m.input = score.DigitsOnly(value)
	m.notify()
}

// ResetLedger clears all best scores. Ignored outside instructions.
func (m *Machine) ResetLedger(ctx context.Context) {
	if m.phase != model.PhaseInstructions {
		return
	}
	if err := m.ledger.Clear(ctx); err != nil {
		m.metrics.ObservePersistError()
		m.log.Error().Err(err).Msg("failed to clear best scores")
	} else {
		m.metrics.ObserveClear()
		m.log.Info().Msg("best scores cleared")
	}
	m.metrics.SetBestScores(0)
	m.notify()
}

// Home abandons the current round and returns to instructions without scoring.
func (m *Machine) Home() {
	if m.phase == model.PhaseInstructions {
		return
	}
	if m.phase.Timed() {
		m.elapsedMs = m.sinceStart()
	}
	m.phase = model.PhaseInstructions
	m.log.Debug().Msg("round abandoned")
	m.notify()
}

// Tick refreshes the elapsed time. It reports whether the timer is still
// live so the host knows to schedule another tick.
func (m *Machine) Tick() bool {
	if !m.phase.Timed() {
		return false
	}
	m.elapsedMs = m.sinceStart()
	m.notify()
	return true
}

func (m *Machine) startMemorize() {
	m.sequence = m.gen.Generate()
	m.input = ""
	m.result = score.Result{}
	m.memorizeMs = 0
	m.startTimedPhase(model.PhaseMemorize)
	m.roundStart = m.phaseStart
}

func (m *Machine) startTimedPhase(phase model.Phase) {
	m.phase = phase
	m.phaseStart = m.clock.Now()
	m.elapsedMs = 0
}

func (m *Machine) finishRecall(ctx context.Context) {
	m.elapsedMs = m.sinceStart()
	m.lastScore = m.elapsedMs
	m.result = score.Score(m.sequence, m.input)
	m.phase = model.PhaseResult

	improved, err := m.ledger.RecordIfBest(ctx, m.result.Correct, m.lastScore)
	if err != nil {
		m.metrics.ObservePersistError()
		m.log.Error().Err(err).Int("correct", m.result.Correct).Msg("failed to persist best score")
	}
	if improved {
		m.metrics.ObserveRecord()
		m.log.Info().Int("correct", m.result.Correct).Int64("elapsed_ms", m.lastScore).Msg("new best score")
	}
	m.metrics.ObserveRound(m.memorizeMs, m.lastScore, m.result.Correct)
	m.metrics.SetBestScores(m.ledger.Len())
	m.saveRound(ctx)
}

func (m *Machine) saveRound(ctx context.Context) {
	if m.rounds == nil {
		return
	}
	round := model.Round{
		ID:         uuid.NewString(),
		StartedAt:  m.roundStart,
		EndedAt:    m.phaseStart.Add(time.Duration(m.lastScore) * time.Millisecond),
		MemorizeMs: m.memorizeMs,
		RecallMs:   m.lastScore,
		Correct:    m.result.Correct,
		Sequence:   m.sequence,
		Input:      m.input,
	}
	if err := m.rounds.InsertRound(ctx, round); err != nil {
		m.log.Error().Err(err).Msg("failed to save round")
	}
}

// sinceStart never goes below the last published value.
func (m *Machine) sinceStart() int64 {
	ms := m.clock.Now().Sub(m.phaseStart).Milliseconds()
	if ms < m.elapsedMs {
		return m.elapsedMs
	}
	return ms
}

func (m *Machine) notify() {
	if len(m.subscribers) == 0 {
		return
	}
	snap := m.Snapshot()
	for _, fn := range m.subscribers {
		fn(snap)
	}
}
