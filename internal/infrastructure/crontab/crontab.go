package crontab

import (
	"context"
	"fmt"
	"time"

	"github.com/mileusna/crontab"

	"jan-server/services/plm-chat-api/internal/config"
	"jan-server/services/plm-chat-api/internal/infrastructure/logger"
	"jan-server/services/plm-chat-api/internal/utils/platformerrors"
)

const DefaultSweepIntervalMinutes = 5

// IdleSweeper is implemented by the session registry.
type IdleSweeper interface {
	SweepIdle(now time.Time) int
}

// CronJobTimeout bounds a single job execution.
const CronJobTimeout = time.Minute

type Crontab struct {
	ctab       *crontab.Crontab
	sessions   IdleSweeper
	instrument *jobInstrumenter
	now        func() time.Time
}

func NewCrontab(sessions IdleSweeper) *Crontab {
	return &Crontab{
		ctab:       crontab.New(),
		sessions:   sessions,
		instrument: newJobInstrumenter(),
		now:        time.Now,
	}
}

// Run schedules the background jobs and blocks until ctx is done.
func (c *Crontab) Run(ctx context.Context) error {
	log := logger.GetLogger()

	interval := DefaultSweepIntervalMinutes
	if cfg := config.GetGlobal(); cfg != nil && cfg.SessionSweepIntervalMinutes > 0 {
		interval = cfg.SessionSweepIntervalMinutes
	}

	cronExpr := fmt.Sprintf("*/%d * * * *", interval)
	if err := c.ctab.AddJob(cronExpr, c.sweepSessions); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "failed to add session sweep job")
	}
	log.Info().Msgf("Idle session sweep scheduled: every %d minute(s)", interval)

	if err := c.ctab.AddJob("* * * * *", c.reloadConfig); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "failed to add env reload job")
	}

	<-ctx.Done()
	c.ctab.Shutdown()
	return nil
}

func (c *Crontab) sweepSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), CronJobTimeout)
	defer cancel()
	_ = c.instrument.run(ctx, "session_sweep", func(context.Context) error {
		removed := c.sessions.SweepIdle(c.now())
		if removed > 0 {
			log := logger.GetLogger()
			log.Info().Int("removed", removed).Msg("swept idle sessions")
		}
		return nil
	})
}

// reloadConfig re-reads the environment. The new values reach the log
// level at once, the language model settings on the next completion and
// the conversation limits on the next new session.
func (c *Crontab) reloadConfig() {
	ctx, cancel := context.WithTimeout(context.Background(), CronJobTimeout)
	defer cancel()
	err := c.instrument.run(ctx, "env_reload", func(context.Context) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return logger.SetLevel(cfg.LogLevel)
	})
	if err != nil {
		log := logger.GetLogger()
		log.Warn().Err(err).Msg("config reload failed, keeping previous values")
	}
}
