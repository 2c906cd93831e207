package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type StrategyConfig struct {
	K             float64 `yaml:"k"`
	StopLoss      float64 `yaml:"stop_loss"`   // percent, sign-insensitive
	TakeProfit    float64 `yaml:"take_profit"` // percent, sign-insensitive
	MinIntensity  float64 `yaml:"min_intensity"`
	MaxChangeRate float64 `yaml:"max_change_rate"`
}

const (
	_kDefault             = 0.5
	_stopLossDefault      = 2.0
	_takeProfitDefault    = 5.0
	_minIntensityDefault  = 100.0
	_maxChangeRateDefault = 20.0
)

func (c *StrategyConfig) Setup() {
	if c.K <= 0 {
		c.K = _kDefault
	}
	if c.StopLoss == 0 {
		c.StopLoss = _stopLossDefault
	}
	if c.TakeProfit == 0 {
		c.TakeProfit = _takeProfitDefault
	}
	if c.MinIntensity <= 0 {
		c.MinIntensity = _minIntensityDefault
	}
	if c.MaxChangeRate <= 0 {
		c.MaxChangeRate = _maxChangeRateDefault
	}
}

type DiscoveryProfile string

const (
	ProfileBreakout  DiscoveryProfile = "breakout"
	ProfileTrend     DiscoveryProfile = "trend"
	ProfileBollinger DiscoveryProfile = "bollinger"
	ProfileCustom    DiscoveryProfile = "custom"
)

type DiscoveryConfig struct {
	Profile        DiscoveryProfile `yaml:"profile"`
	ScanInterval   time.Duration    `yaml:"scan_interval"`
	VerifyInterval time.Duration    `yaml:"verify_interval"`
	SweepInterval  time.Duration    `yaml:"sweep_interval"`
	MissLimit      int              `yaml:"miss_limit"`
}

func (c *DiscoveryConfig) Setup() {
	switch c.Profile {
	case ProfileBreakout, ProfileTrend, ProfileBollinger, ProfileCustom:
	default:
		c.Profile = ProfileBreakout
	}
	if c.ScanInterval <= 0 {
		c.ScanInterval = 1 * time.Minute
	}
	if c.VerifyInterval <= 0 {
		c.VerifyInterval = 500 * time.Millisecond
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = 3 * time.Minute
	}
	if c.MissLimit <= 0 {
		c.MissLimit = 3
	}
}

type BrokerConfig struct {
	RequestSpacing time.Duration `yaml:"request_spacing"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

func (c *BrokerConfig) Setup() {
	if c.RequestSpacing <= 0 {
		c.RequestSpacing = 250 * time.Millisecond
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 5 * time.Second
	}
}

type TelemetryConfig struct {
	Port       string `yaml:"port"`
	WebhookURL string `yaml:"webhook_url"`
}

func (c *TelemetryConfig) Setup() {
	if c.Port == "" {
		c.Port = "8089"
	}
}

type AppConfig struct {
	UserID          string        `yaml:"user_id"`
	Account         string        `yaml:"account"`
	Sandbox         bool          `yaml:"sandbox"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	Watchlist       []string      `yaml:"watchlist"`

	Strategy  StrategyConfig  `yaml:"strategy"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Broker    BrokerConfig    `yaml:"broker"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

func (c *AppConfig) ValidateAndSetup() error {
	if c.UserID == "" {
		return fmt.Errorf("empty user_id")
	}
	if c.Account == "" {
		return fmt.Errorf("empty account")
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 1 * time.Second
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = 10 * time.Second
	}

	c.Strategy.Setup()
	c.Discovery.Setup()
	c.Broker.Setup()
	c.Telemetry.Setup()

	return nil
}

func LoadAppConfig(filename string) (AppConfig, error) {
	var cfg AppConfig
	input, err := os.ReadFile(filename)
	if err != nil {
		return cfg, fmt.Errorf("%w: can't read file", err)
	}

	if err := yaml.Unmarshal(input, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: can't unmarshal config", err)
	}

	if err := cfg.ValidateAndSetup(); err != nil {
		return cfg, fmt.Errorf("%w: can't setup cfg", err)
	}

	return cfg, nil
}
