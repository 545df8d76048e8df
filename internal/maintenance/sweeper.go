/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package maintenance

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Sweeper runs the due-schedule evaluation on a cron cadence. The
// default spec fires once a day in the early morning; evaluation is
// idempotent per day so an extra run is harmless.
type Sweeper struct {
	service *Service
	cron    *cron.Cron
	spec    string
	onStart bool
	logger  zerolog.Logger
}

// NewSweeper creates a sweeper. spec is a standard five-field cron
// expression; onStart additionally runs one sweep immediately when the
// sweeper starts, catching up after downtime.
func NewSweeper(service *Service, spec string, onStart bool, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		service: service,
		cron:    cron.New(),
		spec:    spec,
		onStart: onStart,
		logger:  logger.With().Str("component", "sweeper").Logger(),
	}
}

// Start schedules the sweep and begins running it. The cron scheduler
// runs on its own goroutine; Start returns immediately.
func (s *Sweeper) Start(ctx context.Context) error {
	run := func() {
		if _, err := s.service.EvaluateDueSchedules(ctx); err != nil {
			s.logger.Error().Err(err).Msg("sweep failed")
		}
	}

	if _, err := s.cron.AddFunc(s.spec, run); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().Str("spec", s.spec).Msg("sweeper started")

	if s.onStart {
		go run()
	}

	return nil
}

// Stop halts the cron scheduler, waiting for a running sweep to finish.
func (s *Sweeper) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info().Msg("sweeper stopped")
}
