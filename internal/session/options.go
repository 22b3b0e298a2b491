package session

import "github.com/rs/zerolog"

// Option applies a configuration option to the Machine.
type Option func(*Machine)

// WithClock sets the time source used by the timer.
func WithClock(clock Clock) Option {
	return func(m *Machine) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Machine) {
		m.log = log
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec Recorder) Option {
	return func(m *Machine) {
		if rec != nil {
			m.metrics = rec
		}
	}
}

// WithRoundWriter enables round history.
func WithRoundWriter(w RoundWriter) Option {
	return func(m *Machine) {
		m.rounds = w
	}
}
