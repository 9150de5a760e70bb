package xmutex

import (
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestDefaultOptions(t *testing.T) {
	o := defaultOptions()

	assert.Equal(t, DefaultExpiry, o.expiry)
	assert.Equal(t, DefaultSpinDelay, o.spinDelay)
	assert.Equal(t, DefaultCollection, o.collection)
	assert.Empty(t, o.ownerID)
	assert.NotNil(t, o.clock)
	assert.NotNil(t, o.logger)
}

func TestOptions_Apply(t *testing.T) {
	fc := clockwork.NewFakeClock()
	logger := slog.Default()

	o := defaultOptions()
	for _, opt := range []Option{
		WithExpiry(time.Minute),
		WithSpinDelay(time.Second),
		WithCollection("jobs"),
		WithOwnerID("owner-1"),
		WithClock(fc),
		WithLogger(logger),
	} {
		opt(o)
	}

	assert.Equal(t, time.Minute, o.expiry)
	assert.Equal(t, time.Second, o.spinDelay)
	assert.Equal(t, "jobs", o.collection)
	assert.Equal(t, "owner-1", o.ownerID)
	assert.Same(t, fc, o.clock)
	assert.Same(t, logger, o.logger)
}

func TestOptions_IgnoreInvalid(t *testing.T) {
	o := defaultOptions()
	for _, opt := range []Option{
		WithExpiry(0),
		WithExpiry(-time.Second),
		WithSpinDelay(0),
		WithCollection("  "),
		WithOwnerID(""),
		WithClock(nil),
		WithLogger(nil),
	} {
		opt(o)
	}

	// 非法值被静默忽略，保持默认
	assert.Equal(t, DefaultExpiry, o.expiry)
	assert.Equal(t, DefaultSpinDelay, o.spinDelay)
	assert.Equal(t, DefaultCollection, o.collection)
	assert.Empty(t, o.ownerID)
	assert.NotNil(t, o.clock)
	assert.NotNil(t, o.logger)
}
