package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cloudshift/cutover/pkg/types"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	Log          LogConfig                    `mapstructure:"log"`
	DataDir      string                       `mapstructure:"data_dir"`
	Region       string                       `mapstructure:"region"`
	MetricsAddr  string                       `mapstructure:"metrics_addr"`
	Environments map[string]EnvironmentConfig `mapstructure:"environments"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// GroupConfig identifies one color's fleet resources.
type GroupConfig struct {
	ScalingGroup string `mapstructure:"scaling_group"`
	TargetGroup  string `mapstructure:"target_group"`
}

// EnvironmentConfig holds one environment's wiring. The resources named
// here are created by the infrastructure definitions, not by this tool.
type EnvironmentConfig struct {
	Tier               string        `mapstructure:"tier"`
	Blue               GroupConfig   `mapstructure:"blue"`
	Green              GroupConfig   `mapstructure:"green"`
	RuleRef            string        `mapstructure:"rule_ref"`
	StatePrefix        string        `mapstructure:"state_prefix"`
	DiscoverySource    string        `mapstructure:"discovery_source"`
	HealthPollInterval time.Duration `mapstructure:"health_poll_interval"`
	HealthTimeout      time.Duration `mapstructure:"health_timeout"`
}

// =============================================================================
// Loading
// =============================================================================

// LoadConfig reads configuration from the given file (or the default
// search path) plus CUTOVER_* environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("cutover")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/cutover")
		v.AddConfigPath("/etc/cutover")
	}
	v.SetEnvPrefix("CUTOVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", "info")
	v.SetDefault("data_dir", "./cutover-data")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// Environment resolves a configured environment by name.
func (c *Config) Environment(name string) (*types.Environment, error) {
	ec, ok := c.Environments[name]
	if !ok {
		known := make([]string, 0, len(c.Environments))
		for k := range c.Environments {
			known = append(known, k)
		}
		return nil, fmt.Errorf("environment %q not configured (have: %s)", name, strings.Join(known, ", "))
	}
	if err := ec.validate(name); err != nil {
		return nil, err
	}

	tier := types.TierStandard
	if ec.Tier == string(types.TierHighTrust) {
		tier = types.TierHighTrust
	}

	env := &types.Environment{
		Name:               name,
		Tier:               tier,
		Blue:               types.ColorGroup{Color: types.ColorBlue, ScalingGroup: ec.Blue.ScalingGroup, TargetGroup: ec.Blue.TargetGroup},
		Green:              types.ColorGroup{Color: types.ColorGreen, ScalingGroup: ec.Green.ScalingGroup, TargetGroup: ec.Green.TargetGroup},
		RuleRef:            ec.RuleRef,
		StatePrefix:        ec.StatePrefix,
		DiscoverySource:    ec.DiscoverySource,
		HealthPollInterval: ec.HealthPollInterval,
		HealthTimeout:      ec.HealthTimeout,
	}
	return env, nil
}

func (ec EnvironmentConfig) validate(name string) error {
	switch {
	case ec.Blue.ScalingGroup == "" || ec.Blue.TargetGroup == "":
		return fmt.Errorf("environment %s: blue group incompletely configured", name)
	case ec.Green.ScalingGroup == "" || ec.Green.TargetGroup == "":
		return fmt.Errorf("environment %s: green group incompletely configured", name)
	case ec.RuleRef == "":
		return fmt.Errorf("environment %s: rule_ref is required", name)
	case ec.StatePrefix == "":
		return fmt.Errorf("environment %s: state_prefix is required", name)
	case ec.Tier != "" && ec.Tier != string(types.TierStandard) && ec.Tier != string(types.TierHighTrust):
		return fmt.Errorf("environment %s: unknown tier %q", name, ec.Tier)
	}
	return nil
}
