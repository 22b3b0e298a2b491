// Package generator builds digit sequences to memorize.
package generator

import (
	"math/rand"
	"time"

	"github.com/verte-zerg/codemem/internal/model"
)

// Source yields uniform integers in [0, n). *rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
}

// Generator produces random digit sequences.
type Generator struct {
	rnd Source
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewWithSource returns a Generator drawing from src.
func NewWithSource(src Source) *Generator {
	return &Generator{rnd: src}
}

// Generate returns model.SequenceLength independent uniform digits.
func (g *Generator) Generate() string {
	buf := make([]byte, model.SequenceLength)
	for i := range buf {
		buf[i] = byte('0' + g.rnd.Intn(10))
	}
	return string(buf)
}
