package crontab

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/plm-chat-api/internal/config"
)

type recordingSweeper struct {
	calls []time.Time
}

func (s *recordingSweeper) SweepIdle(now time.Time) int {
	s.calls = append(s.calls, now)
	return 1
}

func TestSweepSessionsUsesClock(t *testing.T) {
	sweeper := &recordingSweeper{}
	c := NewCrontab(sweeper)
	fixed := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	c.sweepSessions()

	require.Len(t, sweeper.calls, 1)
	assert.Equal(t, fixed, sweeper.calls[0])
}

func TestRunStopsWithContext(t *testing.T) {
	c := NewCrontab(&recordingSweeper{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestJobInstrumenterReturnsJobError(t *testing.T) {
	j := newJobInstrumenter()
	want := assert.AnError

	err := j.run(context.Background(), "test", func(ctx context.Context) error { return want })
	assert.ErrorIs(t, err, want)
	assert.NoError(t, j.run(context.Background(), "test", func(context.Context) error { return nil }))
}

func TestReloadConfigAppliesNewValues(t *testing.T) {
	t.Cleanup(func() {
		config.SetGlobal(nil)
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	})
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("DEFAULT_MODEL", "gpt-reloaded")

	NewCrontab(&recordingSweeper{}).reloadConfig()

	cfg := config.GetGlobal()
	require.NotNil(t, cfg)
	assert.Equal(t, "gpt-reloaded", cfg.DefaultModel)
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}

func TestReloadConfigKeepsPreviousOnError(t *testing.T) {
	previous := &config.Config{DefaultModel: "gpt-previous"}
	config.SetGlobal(previous)
	t.Cleanup(func() { config.SetGlobal(nil) })
	t.Setenv("PLM_MAX_CANDIDATES", "0")

	NewCrontab(&recordingSweeper{}).reloadConfig()

	assert.Same(t, previous, config.GetGlobal())
}
