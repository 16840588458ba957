package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "listing", cfg.ChannelMode)
	assert.Equal(t, 48*time.Hour, cfg.OfferTTL)
	assert.Equal(t, 2*time.Hour, cfg.ReservationTTL)
	assert.Equal(t, 15*time.Minute, cfg.SweepInterval)
}

func TestLoadRejectsNonPositiveDurations(t *testing.T) {
	t.Setenv("SWEEP_INTERVAL_MINUTES", "0")
	t.Setenv("OFFER_TTL_HOURS", "-3")
	t.Setenv("RESERVATION_TTL_HOURS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	// A zero interval would panic the sweep ticker at startup.
	assert.Equal(t, 15*time.Minute, cfg.SweepInterval)
	assert.Equal(t, 48*time.Hour, cfg.OfferTTL)
	assert.Equal(t, 2*time.Hour, cfg.ReservationTTL)
}
