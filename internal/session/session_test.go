package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/codemem/internal/generator"
	"github.com/verte-zerg/codemem/internal/ledger"
	"github.com/verte-zerg/codemem/internal/model"
	"github.com/verte-zerg/codemem/internal/store"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

type fixedSequences struct {
	seqs []string
	pos  int
}

func (f *fixedSequences) Generate() string {
	s := f.seqs[f.pos%len(f.seqs)]
	f.pos++
	return s
}

type roundLog struct {
	rounds []model.Round
	err    error
}

func (r *roundLog) InsertRound(_ context.Context, round model.Round) error {
	if r.err != nil {
		return r.err
	}
	r.rounds = append(r.rounds, round)
	return nil
}

type countingRecorder struct {
	rounds, records, clears, persistErrors, best int
}

func (c *countingRecorder) ObserveRound(int64, int64, int) { c.rounds++ }
func (c *countingRecorder) ObserveRecord()                 { c.records++ }
func (c *countingRecorder) ObserveClear()                  { c.clears++ }
func (c *countingRecorder) ObservePersistError()           { c.persistErrors++ }
func (c *countingRecorder) SetBestScores(n int)            { c.best = n }

type harness struct {
	m      *Machine
	clock  *fakeClock
	mem    *store.Memory
	rounds *roundLog
	rec    *countingRecorder
}

func newHarness(t *testing.T, gen SequenceSource) *harness {
	t.Helper()
	h := &harness{
		clock:  &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)},
		mem:    store.NewMemory(),
		rounds: &roundLog{},
		rec:    &countingRecorder{},
	}
	l := ledger.New(h.mem, zerolog.Nop())
	h.m = New(gen, l,
		WithClock(h.clock),
		WithLogger(zerolog.Nop()),
		WithRecorder(h.rec),
		WithRoundWriter(h.rounds),
	)
	return h
}

func TestInitialState(t *testing.T) {
	h := newHarness(t, generator.New())
	snap := h.m.Snapshot()
	assert.Equal(t, model.PhaseInstructions, snap.Phase)
	assert.Empty(t, snap.Sequence)
	assert.Zero(t, snap.ElapsedMs)
	assert.Empty(t, snap.BestScores)
}

func TestPhaseCycle(t *testing.T) {
	h := newHarness(t, generator.New())
	ctx := context.Background()

	var phases []model.Phase
	unsubscribe := h.m.Subscribe(func(s model.Snapshot) {
		phases = append(phases, s.Phase)
	})
	defer unsubscribe()

	h.m.Advance(ctx)
	first := h.m.Snapshot().Sequence
	require.Len(t, first, model.SequenceLength)
	for i := 0; i < 3; i++ {
		h.clock.advance(time.Second)
		h.m.Advance(ctx)
	}
	second := h.m.Snapshot().Sequence

	assert.Equal(t, []model.Phase{
		model.PhaseMemorize,
		model.PhaseRecall,
		model.PhaseResult,
		model.PhaseMemorize,
	}, phases)
	assert.NotEqual(t, first, second)
}

func TestEndToEndRecord(t *testing.T) {
	h := newHarness(t, &fixedSequences{seqs: []string{"9876543210123456"}})
	ctx := context.Background()

	h.m.Advance(ctx)
	h.clock.advance(3 * time.Second)
	h.m.Advance(ctx)
	require.Equal(t, model.PhaseRecall, h.m.Phase())
	assert.Zero(t, h.m.Snapshot().ElapsedMs)

	h.m.EditInput("9876999999999999")
	h.clock.advance(5 * time.Second)
	h.m.Advance(ctx)

	snap := h.m.Snapshot()
	require.Equal(t, model.PhaseResult, snap.Phase)
	assert.Equal(t, 4, snap.Correct)
	assert.Equal(t, int64(5000), snap.LastScore)
	assert.Equal(t, model.BestScores{4: 5000}, snap.BestScores)
	best, ok := snap.BestForCorrect()
	require.True(t, ok)
	assert.Equal(t, int64(5000), best)
	assert.Equal(t, []bool{true, true, true, true, false}, snap.Marks[:5])

	values, err := h.mem.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"best_score_4": 5000}, values)
	assert.Equal(t, 1, h.mem.Writes())

	require.Len(t, h.rounds.rounds, 1)
	round := h.rounds.rounds[0]
	assert.NotEmpty(t, round.ID)
	assert.Equal(t, int64(3000), round.MemorizeMs)
	assert.Equal(t, int64(5000), round.RecallMs)
	assert.Equal(t, 4, round.Correct)
	assert.Equal(t, 8*time.Second, round.EndedAt.Sub(round.StartedAt))

	assert.Equal(t, 1, h.rec.rounds)
	assert.Equal(t, 1, h.rec.records)
	assert.Equal(t, 1, h.rec.best)
}

func TestSlowerRoundDoesNotWrite(t *testing.T) {
	h := newHarness(t, &fixedSequences{seqs: []string{"1111111111111111"}})
	ctx := context.Background()

	playRound := func(recall time.Duration, input string) {
		h.m.Advance(ctx)
		h.m.Advance(ctx)
		h.m.EditInput(input)
		h.clock.advance(recall)
		h.m.Advance(ctx)
	}

	playRound(4*time.Second, "1111")
	playRound(6*time.Second, "1111")
	assert.Equal(t, 1, h.mem.Writes())
	assert.Equal(t, model.BestScores{4: 4000}, h.m.Snapshot().BestScores)
	assert.Equal(t, int64(6000), h.m.Snapshot().LastScore)

	playRound(2*time.Second, "1111")
	assert.Equal(t, 2, h.mem.Writes())
	assert.Equal(t, model.BestScores{4: 2000}, h.m.Snapshot().BestScores)
}

func TestZeroCorrectNeverRecords(t *testing.T) {
	h := newHarness(t, &fixedSequences{seqs: []string{"0000000000000000"}})
	ctx := context.Background()

	h.m.Advance(ctx)
	h.m.Advance(ctx)
	h.m.EditInput("1111")
	h.clock.advance(time.Second)
	h.m.Advance(ctx)

	snap := h.m.Snapshot()
	assert.Equal(t, 0, snap.Correct)
	assert.Empty(t, snap.BestScores)
	assert.Zero(t, h.mem.Writes())
	_, ok := snap.BestForCorrect()
	assert.False(t, ok)
}

func TestTimerBound(t *testing.T) {
	h := newHarness(t, generator.New())
	ctx := context.Background()

	assert.False(t, h.m.Tick())

	h.m.Advance(ctx)
	prev := int64(-1)
	for i := 0; i < 5; i++ {
		h.clock.advance(50 * time.Millisecond)
		require.True(t, h.m.Tick())
		elapsed := h.m.Snapshot().ElapsedMs
		assert.GreaterOrEqual(t, elapsed, prev)
		prev = elapsed
	}
	assert.Equal(t, int64(250), prev)

	h.m.Advance(ctx)
	h.clock.advance(700 * time.Millisecond)
	require.True(t, h.m.Tick())
	assert.Equal(t, int64(700), h.m.Snapshot().ElapsedMs)

	h.clock.advance(100 * time.Millisecond)
	h.m.Advance(ctx)
	frozen := h.m.Snapshot().ElapsedMs
	assert.Equal(t, int64(800), frozen)

	h.clock.advance(10 * time.Second)
	assert.False(t, h.m.Tick())
	assert.Equal(t, frozen, h.m.Snapshot().ElapsedMs)
	assert.Equal(t, frozen, h.m.Snapshot().LastScore)
}

func TestTimerIgnoresClockRegression(t *testing.T) {
	h := newHarness(t, generator.New())
	h.m.Advance(context.Background())

	h.clock.advance(time.Second)
	h.m.Tick()
	h.clock.advance(-500 * time.Millisecond)
	h.m.Tick()
	assert.Equal(t, int64(1000), h.m.Snapshot().ElapsedMs)
}

func TestInvalidEventsIgnored(t *testing.T) {
	h := newHarness(t, &fixedSequences{seqs: []string{"1234123412341234"}})
	ctx := context.Background()

	notified := 0
	h.m.Subscribe(func(model.Snapshot) { notified++ })

	h.m.EditInput("1234")
	assert.Empty(t, h.m.Snapshot().Input)
	assert.Zero(t, notified)

	h.m.Advance(ctx)
	h.m.Advance(ctx)
	h.m.EditInput("12")
	h.clock.advance(time.Second)
	h.m.Advance(ctx)
	writes := h.mem.Writes()
	notified = 0

	h.m.ResetLedger(ctx)
	h.m.EditInput("9999")
	assert.Zero(t, notified)
	assert.Equal(t, writes, h.mem.Writes())
	assert.Equal(t, model.BestScores{2: 1000}, h.m.Snapshot().BestScores)
	assert.Equal(t, "12", h.m.Snapshot().Input)
}

func TestEditInputKeepsDigitsOnly(t *testing.T) {
	h := newHarness(t, generator.New())
	ctx := context.Background()
	h.m.Advance(ctx)
	h.m.Advance(ctx)

	h.m.EditInput("12a3 4")
	assert.Equal(t, "1234", h.m.Snapshot().Input)
	h.m.EditInput("12")
	assert.Equal(t, "12", h.m.Snapshot().Input)
}

func TestResetLedger(t *testing.T) {
	h := newHarness(t, &fixedSequences{seqs: []string{"5555555555555555"}})
	ctx := context.Background()

	h.m.Advance(ctx)
	h.m.Advance(ctx)
	h.m.EditInput("55")
	h.clock.advance(time.Second)
	h.m.Advance(ctx)
	h.m.Home()
	require.Equal(t, model.PhaseInstructions, h.m.Phase())

	h.m.ResetLedger(ctx)
	assert.Empty(t, h.m.Snapshot().BestScores)
	assert.Equal(t, 1, h.rec.clears)

	reloaded := ledger.New(h.mem, zerolog.Nop())
	scores, err := reloaded.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestHomeAbandonsRound(t *testing.T) {
	h := newHarness(t, &fixedSequences{seqs: []string{"1234123412341234", "5678567856785678"}})
	ctx := context.Background()

	h.m.Advance(ctx)
	h.m.Advance(ctx)
	h.m.EditInput("1234")
	h.clock.advance(2 * time.Second)
	h.m.Home()

	snap := h.m.Snapshot()
	assert.Equal(t, model.PhaseInstructions, snap.Phase)
	assert.Equal(t, int64(2000), snap.ElapsedMs)
	assert.Zero(t, h.mem.Writes())
	assert.Empty(t, h.rounds.rounds)

	h.clock.advance(time.Second)
	assert.False(t, h.m.Tick())
	assert.Equal(t, int64(2000), h.m.Snapshot().ElapsedMs)

	h.m.Home()
	assert.Equal(t, model.PhaseInstructions, h.m.Phase())

	h.m.Advance(ctx)
	snap = h.m.Snapshot()
	assert.Equal(t, model.PhaseMemorize, snap.Phase)
	assert.Equal(t, "5678567856785678", snap.Sequence)
	assert.Empty(t, snap.Input)
	assert.Zero(t, snap.ElapsedMs)
}

func TestPersistFailureKeepsRecord(t *testing.T) {
	h := newHarness(t, &fixedSequences{seqs: []string{"1111111111111111"}})
	l := ledger.New(failingPersistence{}, zerolog.Nop())
	h.m = New(h.m.gen, l, WithClock(h.clock), WithRecorder(h.rec))
	ctx := context.Background()

	h.m.Advance(ctx)
	h.m.Advance(ctx)
	h.m.EditInput("111")
	h.clock.advance(time.Second)
	h.m.Advance(ctx)

	assert.Equal(t, model.BestScores{3: 1000}, h.m.Snapshot().BestScores)
	assert.Equal(t, 1, h.rec.persistErrors)
}

func TestResetLedgerFailureNotCountedAsClear(t *testing.T) {
	h := newHarness(t, generator.New())
	l := ledger.New(failingPersistence{}, zerolog.Nop())
	h.m = New(h.m.gen, l, WithClock(h.clock), WithRecorder(h.rec))

	h.m.ResetLedger(context.Background())
	assert.Equal(t, 0, h.rec.clears)
	assert.Equal(t, 1, h.rec.persistErrors)
	assert.Empty(t, h.m.Snapshot().BestScores)
}

func TestRoundWriterFailureIsAbsorbed(t *testing.T) {
	h := newHarness(t, &fixedSequences{seqs: []string{"1111111111111111"}})
	h.rounds.err = errors.New("disk full")
	ctx := context.Background()

	h.m.Advance(ctx)
	h.m.Advance(ctx)
	h.m.EditInput("1")
	h.m.Advance(ctx)
	assert.Equal(t, model.PhaseResult, h.m.Phase())
}

func TestLoadRecords(t *testing.T) {
	h := newHarness(t, generator.New())
	ctx := context.Background()
	require.NoError(t, h.mem.SetMany(ctx, map[string]int64{"best_score_9": 9000, "junk": 1}))

	var got model.Snapshot
	h.m.Subscribe(func(s model.Snapshot) { got = s })
	require.NoError(t, h.m.LoadRecords(ctx))
	assert.Equal(t, model.BestScores{9: 9000}, got.BestScores)
	assert.Equal(t, 1, h.rec.best)
}

func TestUnsubscribe(t *testing.T) {
	h := newHarness(t, generator.New())
	calls := 0
	unsubscribe := h.m.Subscribe(func(model.Snapshot) { calls++ })

	h.m.Advance(context.Background())
	unsubscribe()
	h.m.Advance(context.Background())
	assert.Equal(t, 1, calls)
}

type failingPersistence struct{}

func (failingPersistence) GetAll(context.Context) (map[string]int64, error) {
	return nil, errors.New("unavailable")
}

func (failingPersistence) SetMany(context.Context, map[string]int64) error {
	return errors.New("unavailable")
}

func (failingPersistence) ClearAll(context.Context) error {
	return errors.New("unavailable")
}
