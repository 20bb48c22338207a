package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hoa-ledger/apiserver/internal/services"
	"github.com/hoa-ledger/apiserver/types"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const runTimeout = 2 * time.Minute

// ChargeGenerator creates the periodic charges for a month.
type ChargeGenerator interface {
	GenerateCharges(ctx context.Context, period types.Period) (services.GenerateResult, error)
}

// ChargeScheduler runs charge generation for the current month on a cron
// schedule. Generation is idempotent so overlapping or repeated runs are safe.
type ChargeScheduler struct {
	cron      *cron.Cron
	job       cron.Job
	generator ChargeGenerator
	logger    zerolog.Logger
}

// NewChargeScheduler parses spec as a standard five-field cron expression.
func NewChargeScheduler(spec string, generator ChargeGenerator) (*ChargeScheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid charges cron %q: %w", spec, err)
	}

	logger := log.With().Str("component", "charge-scheduler").Logger()
	s := &ChargeScheduler{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		generator: generator,
		logger:    logger,
	}
	s.job = cron.NewChain(cron.Recover(cronLogger{logger})).
		Then(cron.FuncJob(func() { s.RunOnce(context.Background()) }))
	s.cron.Schedule(schedule, s.job)
	return s, nil
}

// Start runs the scheduler in its own goroutine.
func (s *ChargeScheduler) Start() {
	s.logger.Info().Time("next", s.Next()).Msg("charge scheduler started")
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running job until ctx is done.
func (s *ChargeScheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// Next returns the time of the next scheduled run.
func (s *ChargeScheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	if !entries[0].Next.IsZero() {
		return entries[0].Next
	}
	return entries[0].Schedule.Next(time.Now().UTC())
}

// RunOnce generates charges for the current month.
func (s *ChargeScheduler) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	result, err := s.generator.GenerateCharges(ctx, types.Period{})
	switch {
	case errors.Is(err, services.ErrNotConfigured):
		s.logger.Warn().Msg("neighborhood not configured, skipping charge generation")
	case err != nil:
		s.logger.Error().Err(err).Msg("charge generation failed")
	default:
		s.logger.Info().
			Str("period", result.Period.String()).
			Str("amount", result.Amount.StringFixed(2)).
			Int64("created", result.Created).
			Msg("charges generated")
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
