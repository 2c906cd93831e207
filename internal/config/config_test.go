package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAndSetupDefaults(t *testing.T) {
	cfg := AppConfig{UserID: "owner", Account: "0001"}
	require.NoError(t, cfg.ValidateAndSetup())

	assert.Equal(t, 0.5, cfg.Strategy.K)
	assert.Equal(t, 2.0, cfg.Strategy.StopLoss)
	assert.Equal(t, 5.0, cfg.Strategy.TakeProfit)
	assert.Equal(t, 20.0, cfg.Strategy.MaxChangeRate)

	assert.Equal(t, ProfileBreakout, cfg.Discovery.Profile)
	assert.Equal(t, 500*time.Millisecond, cfg.Discovery.VerifyInterval)
	assert.Equal(t, 3*time.Minute, cfg.Discovery.SweepInterval)
	assert.Equal(t, 3, cfg.Discovery.MissLimit)

	assert.Equal(t, 250*time.Millisecond, cfg.Broker.RequestSpacing)
	assert.Equal(t, "8089", cfg.Telemetry.Port)
}

func TestValidateRejectsMissingIdentity(t *testing.T) {
	cfg := AppConfig{Account: "0001"}
	assert.Error(t, cfg.ValidateAndSetup())

	cfg = AppConfig{UserID: "owner"}
	assert.Error(t, cfg.ValidateAndSetup())
}

func TestSetupKeepsExplicitValues(t *testing.T) {
	cfg := AppConfig{
		UserID:  "owner",
		Account: "0001",
		Strategy: StrategyConfig{
			K:        0.7,
			StopLoss: -3.0,
		},
		Discovery: DiscoveryConfig{Profile: "nonsense"},
	}
	require.NoError(t, cfg.ValidateAndSetup())

	assert.Equal(t, 0.7, cfg.Strategy.K)
	assert.Equal(t, -3.0, cfg.Strategy.StopLoss, "sign normalization happens downstream")
	assert.Equal(t, ProfileBreakout, cfg.Discovery.Profile, "unknown profile falls back")
}
