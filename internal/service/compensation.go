package service

import (
	"context"

	"github.com/rs/zerolog"
)

// compensation is a named rollback action registered after a pipeline step
// succeeds.
type compensation struct {
	name string
	fn   func(context.Context) error
}

// compensationStack runs rollback actions in reverse registration order.
// Every action executes regardless of earlier rollback failures; a failed
// compensation is logged for operator follow-up, never surfaced to the
// caller.
type compensationStack struct {
	actions []compensation
}

func (s *compensationStack) push(name string, fn func(context.Context) error) {
	s.actions = append(s.actions, compensation{name: name, fn: fn})
}

func (s *compensationStack) run(ctx context.Context, log zerolog.Logger) {
	for i := len(s.actions) - 1; i >= 0; i-- {
		c := s.actions[i]
		if err := c.fn(ctx); err != nil {
			log.Error().Str("compensation", c.name).Err(err).
				Msg("compensation failed, manual reconciliation required")
		} else {
			log.Debug().Str("compensation", c.name).Msg("compensation executed")
		}
	}
	s.actions = nil
}
