// Package ledger tracks per-correct-count best recall times.
package ledger

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/verte-zerg/codemem/internal/model"
)

// KeyPrefix namespaces persisted best-score keys.
const KeyPrefix = "best_score_"

// Persistence is the key-value service records are stored in.
type Persistence interface {
	GetAll(ctx context.Context) (map[string]int64, error)
	SetMany(ctx context.Context, values map[string]int64) error
	ClearAll(ctx context.Context) error
}

// Ledger owns the best-score map. It is the only writer of persisted records.
type Ledger struct {
	persist Persistence
	log     zerolog.Logger
	scores  model.BestScores
}

// New returns an empty Ledger backed by persist.
func New(persist Persistence, log zerolog.Logger) *Ledger {
	return &Ledger{
		persist: persist,
		log:     log,
		scores:  model.BestScores{},
	}
}

// Key returns the persisted key for a correct count.
func Key(count int) string {
	return KeyPrefix + strconv.Itoa(count)
}

// ParseKey extracts the correct count from a persisted key. Only the
// canonical spelling produced by Key is accepted.
func ParseKey(key string) (int, bool) {
	rest, ok := strings.CutPrefix(key, KeyPrefix)
	if !ok {
		return 0, false
	}
	count, err := strconv.Atoi(rest)
	if err != nil || count <= 0 || strconv.Itoa(count) != rest {
		return 0, false
	}
	return count, true
}

// Load replaces the in-memory map with persisted records. Malformed records are skipped.
func (l *Ledger) Load(ctx context.Context) (model.BestScores, error) {
	values, err := l.persist.GetAll(ctx)
	if err != nil {
		return l.Scores(), fmt.Errorf("failed to load best scores: %w", err)
	}
	scores := model.BestScores{}
	for key, value := range values {
		count, ok := ParseKey(key)
		if !ok || value < 0 {
			l.log.Debug().Str("key", key).Msg("skipping malformed record")
			continue
		}
		scores[count] = value
	}
	l.scores = scores
	return l.Scores(), nil
}

// RecordIfBest stores elapsedMs for count when it beats the current record.
// The in-memory map is updated even when the write fails.
func (l *Ledger) RecordIfBest(ctx context.Context, count int, elapsedMs int64) (bool, error) {
	if count <= 0 {
		return false, nil
	}
	if prev, ok := l.scores[count]; ok && elapsedMs >= prev {
		return false, nil
	}
	l.scores[count] = elapsedMs

	values := make(map[string]int64, len(l.scores))
	for c, v := range l.scores {
		values[Key(c)] = v
	}
	if err := l.persist.SetMany(ctx, values); err != nil {
		return true, fmt.Errorf("failed to save best scores: %w", err)
	}
	return true, nil
}

// Clear removes every record in memory and in persistence.
func (l *Ledger) Clear(ctx context.Context) error {
	l.scores = model.BestScores{}
	if err := l.persist.ClearAll(ctx); err != nil {
		return fmt.Errorf("failed to clear best scores: %w", err)
	}
	return nil
}

// Best returns the record for count.
func (l *Ledger) Best(count int) (int64, bool) {
	v, ok := l.scores[count]
	return v, ok
}

// Scores returns a copy of the current records.
func (l *Ledger) Scores() model.BestScores {
	return l.scores.Clone()
}

// Len returns the number of stored records.
func (l *Ledger) Len() int {
	return len(l.scores)
}
