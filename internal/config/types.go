// Package config loads the static survey configuration: robot identity, bus
// transport, poll bounds, and the lookup tables that turn symbolic action
// parameters into concrete tool arguments.
package config

import "time"

// Config is the merged view of all loaded configuration files.
type Config struct {
	// Robot is the identity the session endpoints and locks derive from.
	Robot string `yaml:"robot"`

	Bus     BusConfig     `yaml:"bus"`
	Command CommandConfig `yaml:"command"`
	API     APIConfig     `yaml:"api"`
	Log     LogConfig     `yaml:"log"`
	Run     RunConfig     `yaml:"run"`

	// Lookup tables for action parameters. Keys are the symbolic names
	// used on the command line; values are what the tools expect.
	Berth    map[string]string  `yaml:"berth"`
	BaysMove map[string]string  `yaml:"bays_move"`
	BaysPano map[string]string  `yaml:"bays_pano"`
	Maps     map[string]string  `yaml:"maps"`
	Exposure map[string]float64 `yaml:"exposure"`
}

type BusConfig struct {
	// Mode selects the transport: "memory" or "redis".
	Mode      string      `yaml:"mode"`
	Namespace string      `yaml:"namespace"`
	Redis     RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type CommandConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	AckBudget    int           `yaml:"ack_budget"`
	PlanBudget   int           `yaml:"plan_budget"`
}

type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	Token   string `yaml:"token"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type RunConfig struct {
	// PlansDir overrides plan-file discovery. Empty means probe the
	// standard locations.
	PlansDir string `yaml:"plans_dir"`
}

func applyDefaults(cfg *Config) {
	if cfg.Bus.Mode == "" {
		cfg.Bus.Mode = "memory"
	}
	if cfg.Bus.Namespace == "" {
		cfg.Bus.Namespace = cfg.Robot
	}
	if cfg.Command.PollInterval <= 0 {
		cfg.Command.PollInterval = time.Second
	}
	if cfg.Command.AckBudget <= 0 {
		cfg.Command.AckBudget = 10
	}
	if cfg.Command.PlanBudget <= 0 {
		cfg.Command.PlanBudget = 600
	}
	if cfg.API.Listen == "" {
		cfg.API.Listen = "127.0.0.1:8537"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
