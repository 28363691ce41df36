package lock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ArdentAILabs/benchlock/logger"
	"github.com/ArdentAILabs/benchlock/types"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, DefaultTTL, cfg.DefaultTTL)
	assert.Equal(t, DefaultPollInterval, cfg.DefaultPollInterval)
	assert.Nil(t, cfg.Logger)
	assert.Nil(t, cfg.Metrics)
	assert.Nil(t, cfg.Clock)
}

func TestOptions_ApplyValidValues(t *testing.T) {
	log := logger.NewNoOpLogger()
	metrics := NoOpMetrics{}
	clock := types.NewStandardClock()
	meta := types.Metadata{"job": "nightly"}

	cfg := DefaultConfig()
	for _, opt := range []Option{
		WithDefaultTTL(10 * time.Minute),
		WithDefaultPollInterval(250 * time.Millisecond),
		WithMetadata(meta),
		WithLogger(log),
		WithMetrics(metrics),
		WithClock(clock),
	} {
		opt(&cfg)
	}

	assert.Equal(t, 10*time.Minute, cfg.DefaultTTL)
	assert.Equal(t, 250*time.Millisecond, cfg.DefaultPollInterval)
	assert.Equal(t, meta, cfg.Metadata)
	assert.Equal(t, log, cfg.Logger)
	assert.Equal(t, metrics, cfg.Metrics)
	assert.Equal(t, clock, cfg.Clock)
}

func TestOptions_IgnoreInvalidValues(t *testing.T) {
	cfg := DefaultConfig()

	WithDefaultTTL(0)(&cfg)
	WithDefaultTTL(-time.Minute)(&cfg)
	WithDefaultPollInterval(0)(&cfg)
	WithDefaultPollInterval(-time.Second)(&cfg)
	WithMetadata(nil)(&cfg)
	WithLogger(nil)(&cfg)
	WithMetrics(nil)(&cfg)
	WithClock(nil)(&cfg)

	assert.Equal(t, DefaultTTL, cfg.DefaultTTL)
	assert.Equal(t, DefaultPollInterval, cfg.DefaultPollInterval)
	assert.Nil(t, cfg.Metadata)
	assert.Nil(t, cfg.Logger)
	assert.Nil(t, cfg.Metrics)
	assert.Nil(t, cfg.Clock)
}
