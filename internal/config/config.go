package config

import (
	"fmt"
	"os"
	"strings"

	"codeberg.org/ravlen/aquamon/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ErrReadConfig      = errors.ErrorCode("config_read_failed")
	ErrUnmarshalConfig = errors.ErrorCode("config_unmarshal_failed")
	ErrOutOfRange      = errors.ErrorCode("config_value_out_of_range")
	ErrSlackIncomplete = errors.ErrorCode("config_slack_incomplete")
)

const (
	DefaultLogLevel = "info"

	defaultInterval      = 60
	defaultLeakThreshold = 5.0
	defaultConsecutive   = 3
	defaultCooldown      = 3600
	defaultRetentionDays = 30
	defaultDBPath        = "/var/lib/aquamon/readings.db"
	defaultI2CAddress    = 0x48
)

// Bounds for the validated settings. Out-of-range values are rejected,
// never clamped.
const (
	MinInterval      = 30
	MaxInterval      = 600
	MinLeakThreshold = 1.0
	MaxLeakThreshold = 20.0
	MinConsecutive   = 1
	MaxConsecutive   = 10
	MinCooldown      = 300
	MaxCooldown      = 7200
)

type Config struct {
	// Interval between sampling ticks, in seconds.
	Interval int `mapstructure:"interval"`
	// LeakThreshold is the absolute channel divergence, in percentage
	// points, above which a reading counts toward an alert.
	LeakThreshold float64 `mapstructure:"leak_threshold"`
	// ConsecutiveReadings is the hysteresis window: how many successive
	// over- or under-threshold readings flip the alert state.
	ConsecutiveReadings int `mapstructure:"consecutive_readings"`
	// AlertCooldown is the minimum time between two leak alerts, in seconds.
	AlertCooldown int `mapstructure:"alert_cooldown"`

	Database      string `mapstructure:"database"`
	RetentionDays int    `mapstructure:"retention_days"`
	LogLevel      string `mapstructure:"log_level"`

	ADC   ADCConfig   `mapstructure:"adc"`
	Slack SlackConfig `mapstructure:"slack"`

	// One-shot actions, settable by flag only.
	Calibrate      string `mapstructure:"-"`
	CalibratePoint string `mapstructure:"-"`
	Tare           string `mapstructure:"-"`
}

type ADCConfig struct {
	// Bus is the I2C bus name; empty selects the first available bus.
	Bus     string `mapstructure:"bus"`
	Address int    `mapstructure:"address"`
}

type SlackConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	BotToken     string   `mapstructure:"bot_token"`
	Channel      string   `mapstructure:"channel"`
	MentionUsers []string `mapstructure:"mention_users"`
}

func Load() (*Config, error) {
	errFactory := errors.New()
	config := &Config{}

	flags := pflag.NewFlagSet("aquamon", pflag.ContinueOnError)
	configPath := flags.String("config", "", "Path to config file")
	flags.String("log-level", "", "Log level (debug, info, warning, error)")
	flags.Int("interval", 0, "Seconds between sampling ticks")
	flags.StringVar(&config.Calibrate, "calibrate", "", "Calibrate a channel (reference or control) and exit")
	flags.StringVar(&config.CalibratePoint, "point", "empty", "Calibration point for --calibrate (empty or full)")
	flags.StringVar(&config.Tare, "tare", "", "Re-anchor a channel's empty point to the current level and exit")

	if err := flags.Parse(os.Args[1:]); err != nil {
		return nil, errFactory.Wrap(ErrReadConfig, err)
	}

	v := viper.New()
	v.SetDefault("interval", defaultInterval)
	v.SetDefault("leak_threshold", defaultLeakThreshold)
	v.SetDefault("consecutive_readings", defaultConsecutive)
	v.SetDefault("alert_cooldown", defaultCooldown)
	v.SetDefault("database", defaultDBPath)
	v.SetDefault("retention_days", defaultRetentionDays)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("adc.address", defaultI2CAddress)

	v.SetEnvPrefix("AQUAMON")
	v.AutomaticEnv()

	switch {
	case *configPath != "":
		v.SetConfigFile(*configPath)
	case os.Getenv("AQUAMON_CONFIG") != "":
		v.SetConfigFile(os.Getenv("AQUAMON_CONFIG"))
	default:
		v.SetConfigName("aquamon")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errFactory.WithMessage(ErrReadConfig, "Failed to read config file").
				WithData(err.Error())
		}
	}

	// Command line flags override config file values
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "log-level":
			v.Set("log_level", f.Value.String())
		case "interval":
			v.Set("interval", f.Value.String())
		}
	})

	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(ErrUnmarshalConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate rejects out-of-range settings eagerly so invalid values never
// reach the engine.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Interval < MinInterval || c.Interval > MaxInterval {
		return errFactory.WithData(ErrOutOfRange, outOfRange("interval", c.Interval, MinInterval, MaxInterval))
	}
	if c.LeakThreshold < MinLeakThreshold || c.LeakThreshold > MaxLeakThreshold {
		return errFactory.WithData(ErrOutOfRange, outOfRange("leak_threshold", c.LeakThreshold, MinLeakThreshold, MaxLeakThreshold))
	}
	if c.ConsecutiveReadings < MinConsecutive || c.ConsecutiveReadings > MaxConsecutive {
		return errFactory.WithData(ErrOutOfRange, outOfRange("consecutive_readings", c.ConsecutiveReadings, MinConsecutive, MaxConsecutive))
	}
	if c.AlertCooldown < MinCooldown || c.AlertCooldown > MaxCooldown {
		return errFactory.WithData(ErrOutOfRange, outOfRange("alert_cooldown", c.AlertCooldown, MinCooldown, MaxCooldown))
	}
	if c.RetentionDays < 1 {
		return errFactory.WithData(ErrOutOfRange, outOfRange("retention_days", c.RetentionDays, 1, "unbounded"))
	}

	if c.Slack.Enabled {
		if c.Slack.BotToken == "" || c.Slack.Channel == "" {
			return errFactory.WithMessage(ErrSlackIncomplete,
				"Slack notifications require bot_token and channel")
		}
		if !strings.HasPrefix(c.Slack.Channel, "#") {
			c.Slack.Channel = "#" + c.Slack.Channel
		}
	}

	return nil
}

func outOfRange(field string, value, minValue, maxValue any) string {
	return fmt.Sprintf("%s=%v outside [%v, %v]", field, value, minValue, maxValue)
}
