/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package session drives one discovery run: it starts the scan phases for
// the configured mode, feeds their sightings to an aggregator and hands the
// sealed snapshot back to the caller for export.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/carverauto/btsniff/pkg/logger"
	"github.com/carverauto/btsniff/pkg/models"
	"github.com/carverauto/btsniff/pkg/scan"
	"github.com/carverauto/btsniff/pkg/sightings"
)

// defaultDrainTimeout bounds how long a phase waits for its scanner to
// close the stream once the budget has expired.
const defaultDrainTimeout = 5 * time.Second

type Config struct {
	Mode     Mode
	Duration time.Duration
	Adapter  string
	Parallel bool
}

func (c *Config) Validate() error {
	if len(c.Mode.Transports()) == 0 {
		return fmt.Errorf("%w: got %q", ErrInvalidMode, c.Mode)
	}

	if c.Duration <= 0 {
		return fmt.Errorf("%w: got %s", ErrInvalidDuration, c.Duration)
	}

	return nil
}

// ScannerFactory returns the scanner for one transport.
type ScannerFactory func(transport models.Transport) (scan.Scanner, error)

// Observer is told about every merged sighting. transport is the phase the
// sighting came from; rec is a detached copy of the merged record. With
// Config.Parallel set, it is called from more than one goroutine.
type Observer func(transport models.Transport, rec *models.DeviceRecord)

// PhaseResult summarizes one scan phase.
type PhaseResult struct {
	Transport models.Transport
	Started   time.Time
	Ended     time.Time
	// Sightings merged into the aggregator.
	Sightings int
	// Skipped sightings that the aggregator rejected.
	Skipped int
	// Devices is the number of distinct addresses seen in this phase.
	Devices int
	Err     error
}

func (p *PhaseResult) Elapsed() time.Duration {
	return p.Ended.Sub(p.Started)
}

type Report struct {
	ID      string
	Mode    Mode
	Started time.Time
	Ended   time.Time
	Phases  []PhaseResult
	Records []models.DeviceRecord
}

// Succeeded reports whether at least one phase started its scanner.
func (r *Report) Succeeded() bool {
	for i := range r.Phases {
		if r.Phases[i].Err == nil {
			return true
		}
	}

	return false
}

// Counts returns the number of exported records per transport.
func (r *Report) Counts() map[models.Transport]int {
	counts := make(map[models.Transport]int, 2)
	for i := range r.Records {
		counts[r.Records[i].Transport]++
	}

	return counts
}

type Session struct {
	id           string
	config       Config
	factory      ScannerFactory
	aggregator   *sightings.Aggregator
	observer     Observer
	logger       logger.Logger
	now          func() time.Time
	drainTimeout time.Duration
	scanners     []scan.Scanner
	ran          atomic.Bool
}

type Option func(*Session)

func WithObserver(fn Observer) Option {
	return func(s *Session) {
		s.observer = fn
	}
}

// WithClock sets the clock for phase timing and for sightings that arrive
// without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

func WithDrainTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.drainTimeout = d
	}
}

// New validates config and builds a session. No scanner is created until
// Prepare or Run.
func New(config Config, factory ScannerFactory, log logger.Logger, opts ...Option) (*Session, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if factory == nil {
		return nil, ErrNilFactory
	}

	s := &Session{
		id:           uuid.NewString(),
		config:       config,
		factory:      factory,
		logger:       log,
		now:          time.Now,
		drainTimeout: defaultDrainTimeout,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.aggregator = sightings.New(log, sightings.WithClock(s.now))

	return s, nil
}

func (s *Session) ID() string {
	return s.id
}

// Prepare resolves a scanner for every phase. Unsupported transports fail
// here, before any radio is touched.
func (s *Session) Prepare() error {
	if s.scanners != nil {
		return nil
	}

	transports := s.config.Mode.Transports()
	scanners := make([]scan.Scanner, 0, len(transports))

	for _, transport := range transports {
		scanner, err := s.factory(transport)
		if err != nil {
			return fmt.Errorf("%s scanner: %w", transport, err)
		}

		scanners = append(scanners, scanner)
	}

	s.scanners = scanners

	return nil
}

// Run executes every phase, seals the aggregator and returns the report.
// The report is returned even when all phases fail; the error then wraps
// ErrNoPhaseSucceeded together with each phase's error.
func (s *Session) Run(ctx context.Context) (*Report, error) {
	if !s.ran.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRun
	}

	if err := s.Prepare(); err != nil {
		return nil, err
	}

	report := &Report{
		ID:      s.id,
		Mode:    s.config.Mode,
		Started: s.now(),
	}

	s.logger.Info().
		Str("session_id", s.id).
		Str("mode", string(s.config.Mode)).
		Dur("budget", s.config.Duration).
		Bool("parallel", s.config.Parallel).
		Msg("Starting scan session")

	report.Phases = s.runPhases(ctx)

	s.aggregator.Seal()

	report.Records = s.aggregator.Snapshot()
	report.Ended = s.now()

	s.logger.Info().
		Str("session_id", s.id).
		Int("devices", len(report.Records)).
		Dur("elapsed", report.Ended.Sub(report.Started)).
		Msg("Scan session complete")

	if !report.Succeeded() {
		errs := []error{ErrNoPhaseSucceeded}
		for i := range report.Phases {
			errs = append(errs, report.Phases[i].Err)
		}

		return report, errors.Join(errs...)
	}

	return report, nil
}

func (s *Session) runPhases(ctx context.Context) []PhaseResult {
	results := make([]PhaseResult, len(s.scanners))

	if s.config.Parallel {
		var g errgroup.Group

		for i, scanner := range s.scanners {
			g.Go(func() error {
				results[i] = s.runPhase(ctx, scanner)
				return nil
			})
		}

		_ = g.Wait()

		return results
	}

	for i, scanner := range s.scanners {
		if err := ctx.Err(); err != nil {
			now := s.now()
			results[i] = PhaseResult{Transport: scanner.Transport(), Started: now, Ended: now, Err: err}

			s.logger.Warn().Str("transport", string(scanner.Transport())).Msg("Session cancelled, skipping scan phase")

			continue
		}

		results[i] = s.runPhase(ctx, scanner)
	}

	return results
}

func (s *Session) runPhase(ctx context.Context, scanner scan.Scanner) PhaseResult {
	transport := scanner.Transport()
	result := PhaseResult{Transport: transport, Started: s.now()}

	phaseCtx, cancel := context.WithTimeout(ctx, s.config.Duration)
	defer cancel()

	s.logger.Info().Str("transport", string(transport)).Msg("Starting scan phase")

	events, err := scanner.Scan(phaseCtx, scan.Options{Adapter: s.config.Adapter})
	if err != nil {
		result.Err = err
		result.Ended = s.now()

		s.logger.Error().Err(err).Str("transport", string(transport)).Msg("Scan phase failed to start")

		return result
	}

	seen := make(map[string]struct{})

	s.consume(phaseCtx, transport, events, &result, seen)

	result.Devices = len(seen)
	result.Ended = s.now()

	s.logger.Info().
		Str("transport", string(transport)).
		Int("devices", result.Devices).
		Int("sightings", result.Sightings).
		Int("skipped", result.Skipped).
		Dur("elapsed", result.Elapsed()).
		Msg("Scan phase complete")

	return result
}

// consume reads events until the scanner closes the stream. Once ctx is
// done the scanner has drainTimeout to flush what is in flight and close.
func (s *Session) consume(
	ctx context.Context, transport models.Transport, events <-chan models.Sighting, result *PhaseResult, seen map[string]struct{}) {
	done := ctx.Done()

	var drain <-chan time.Time

	for {
		select {
		case sighting, ok := <-events:
			if !ok {
				return
			}

			s.merge(transport, &sighting, result, seen)

		case <-done:
			timer := time.NewTimer(s.drainTimeout)
			defer timer.Stop()

			done = nil
			drain = timer.C

		case <-drain:
			s.logger.Warn().
				Str("transport", string(transport)).
				Dur("drain_timeout", s.drainTimeout).
				Msg("Scanner did not close its stream, abandoning remaining sightings")

			return
		}
	}
}

func (s *Session) merge(transport models.Transport, sighting *models.Sighting, result *PhaseResult, seen map[string]struct{}) {
	if sighting.Transport == "" {
		sighting.Transport = transport
	}

	rec, err := s.aggregator.Record(sighting)
	if err != nil {
		result.Skipped++

		s.logger.Debug().Err(err).Str("transport", string(transport)).Msg("Skipping malformed sighting")

		return
	}

	result.Sightings++
	seen[rec.Address] = struct{}{}

	if s.observer != nil {
		s.observer(transport, &rec)
	}
}
