package repository

import "github.com/okian/polytrack/pkg/logger"

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithQueueSize bounds pending updates per document.
func WithQueueSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}
