package store

import "github.com/rs/zerolog"

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithLogger sets the logger used for skipped records.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) {
		s.log = log
	}
}
