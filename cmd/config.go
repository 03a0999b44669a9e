package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/disk-sim/disk-sim/sim"
)

const envPrefix = "DISKSIM"

// newViper layers flag defaults, an optional disk-sim.yaml, DISKSIM_* environment
// variables and explicit flags, in increasing precedence.
func newViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigName("disk-sim")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.disk-sim")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("binding flags: %w", err)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		logrus.Infof("Using config file %s", v.ConfigFileUsed())
	}
	return v, nil
}

// loadConfig resolves the simulation configuration for cmd.
// Precedence, lowest first: viper layers, --workload preset, --config bundle, explicitly set flags.
func loadConfig(cmd *cobra.Command) (sim.Config, error) {
	v, err := newViper(cmd)
	if err != nil {
		return sim.Config{}, err
	}
	cfg, err := configFromViper(v, sim.DefaultConfig(), func(string) bool { return true })
	if err != nil {
		return sim.Config{}, err
	}

	if name := v.GetString("workload"); name != "" {
		defaults, err := loadDefaults(defaultsFilePath)
		if err != nil {
			return sim.Config{}, err
		}
		preset, err := defaults.Preset(name)
		if err != nil {
			return sim.Config{}, err
		}
		preset.Apply(&cfg.Workload)
	}

	if bundlePath != "" {
		bundle, err := sim.LoadConfigBundle(bundlePath)
		if err != nil {
			return sim.Config{}, err
		}
		if err := bundle.Validate(); err != nil {
			return sim.Config{}, fmt.Errorf("invalid config bundle: %w", err)
		}
		bundle.Apply(&cfg)
	}

	cfg, err = configFromViper(v, cfg, cmd.Flags().Changed)
	if err != nil {
		return sim.Config{}, err
	}
	return cfg, cfg.Validate()
}

// configFromViper copies every key for which set returns true from v onto base.
func configFromViper(v *viper.Viper, base sim.Config, set func(key string) bool) (sim.Config, error) {
	cfg := base
	if set("policy") {
		cfg.Scheduler.Policy = v.GetString("policy")
	}
	if set("aging-threshold") {
		cfg.Scheduler.AgingThreshold = v.GetDuration("aging-threshold")
	}
	if set("seek-cost") {
		cfg.Scheduler.SeekCostPerMovement = v.GetDuration("seek-cost")
	}
	if set("no-buffer") {
		cfg.Buffer.Enabled = !v.GetBool("no-buffer")
	}
	if set("buffer-size") {
		cfg.Buffer.Capacity = v.GetInt("buffer-size")
	}
	if set("cache-size") {
		cfg.Buffer.CacheCapacity = v.GetInt("cache-size")
	}
	if set("sample-interval") {
		cfg.Buffer.SampleInterval = v.GetDuration("sample-interval")
	}
	if set("bus-delay") {
		cfg.Bus.ServiceDelay = v.GetDuration("bus-delay")
	}
	if set("priority-weight") {
		weights, err := parsePriorityWeights(v.GetStringSlice("priority-weight"))
		if err != nil {
			return sim.Config{}, err
		}
		for level, w := range weights {
			cfg.Bus.PriorityWeights[level] = w
		}
	}
	if set("requests") {
		cfg.Workload.Requests = v.GetInt("requests")
	}
	if set("max-position") {
		cfg.Workload.MaxPosition = v.GetInt("max-position")
	}
	if set("high-load") {
		cfg.Workload.HighLoad = v.GetBool("high-load")
	}
	if set("devices") {
		cfg.Workload.Devices = v.GetInt("devices")
	}
	if set("seed") {
		cfg.Workload.Seed = v.GetInt64("seed")
	}
	if set("rate") {
		cfg.Workload.ArrivalRate = v.GetFloat64("rate")
	}
	if set("burst") {
		cfg.Workload.Burst = v.GetInt("burst")
	}
	if set("trace-file") {
		cfg.Workload.TracePath = v.GetString("trace-file")
	}
	return cfg, nil
}

// parsePriorityWeights parses "level=weight" pairs.
func parsePriorityWeights(pairs []string) (map[int]float64, error) {
	out := make(map[int]float64, len(pairs))
	for _, pair := range pairs {
		lvl, w, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("%w: priority weight %q must be level=weight", sim.ErrInvalidConfig, pair)
		}
		level, err := strconv.Atoi(strings.TrimSpace(lvl))
		if err != nil {
			return nil, fmt.Errorf("%w: priority level %q: %v", sim.ErrInvalidConfig, lvl, err)
		}
		weight, err := strconv.ParseFloat(strings.TrimSpace(w), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: priority weight %q: %v", sim.ErrInvalidConfig, w, err)
		}
		if err := sim.ValidatePriorityWeight(level, weight); err != nil {
			return nil, err
		}
		out[level] = weight
	}
	return out, nil
}
