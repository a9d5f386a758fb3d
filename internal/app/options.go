package service

import (
	"time"

	"github.com/okian/polytrack/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDedupeSize sets the size of the submission id cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithBoardCap bounds each track board used for overall scoring.
func WithBoardCap(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.boardCap = n
		}
	}
}

// WithCoverageWeight sets the overall coverage penalty weight.
func WithCoverageWeight(w float64) Option {
	return func(s *Service) {
		if w >= 0 {
			s.coverageWeight = w
		}
	}
}

// WithStrictIDs rejects malformed identifiers instead of rewriting them.
func WithStrictIDs(strict bool) Option {
	return func(s *Service) {
		s.validator.Strict = strict
	}
}

// WithAdminPassword sets the password guarding the lock toggle.
func WithAdminPassword(password string) Option {
	return func(s *Service) {
		s.adminPassword = password
	}
}

// WithLocalUnlockPassword sets the password accepted by VerifyLocalUnlock.
func WithLocalUnlockPassword(password string) Option {
	return func(s *Service) {
		s.localUnlockPassword = password
	}
}

// WithClock overrides the ingestion timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
