package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"hashquest/internal/game"
	"hashquest/internal/logging"
	"hashquest/internal/savestore"
)

// Prefix is prepended to every environment variable name
const Prefix = "HASHQUEST_"

// Config is the runtime configuration shared by the binaries
type Config struct {
	DataDir          string        `env:"DATA_DIR" envDefault:".hashquest"`
	SaveBackend      string        `env:"SAVE_BACKEND" envDefault:"bolt"`
	SaveSlot         string        `env:"SAVE_SLOT" envDefault:"game_state"`
	SaveDebounce     time.Duration `env:"SAVE_DEBOUNCE" envDefault:"2s"`
	SaveMaxDelay     time.Duration `env:"SAVE_MAX_DELAY" envDefault:"6s"`
	SaveRetries      uint          `env:"SAVE_RETRIES" envDefault:"3"`
	HashMethod       string        `env:"HASH_METHOD" envDefault:"sha256"`
	TickRate         float64       `env:"TICK_RATE" envDefault:"4"`
	AttemptsPerTick  uint64        `env:"ATTEMPTS_PER_TICK" envDefault:"32"`
	StatsWindow      int           `env:"STATS_WINDOW" envDefault:"4096"`
	RetargetInterval uint64        `env:"RETARGET_INTERVAL" envDefault:"512"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFile          string        `env:"LOG_FILE"`
	APIHost          string        `env:"API_HOST" envDefault:"127.0.0.1"`
	APIPort          int           `env:"API_PORT" envDefault:"8090"`
	GRPCPort         int           `env:"GRPC_PORT" envDefault:"8091"` // gRPC health endpoint, 0 disables
}

// Load reads the .env file of the project root, then lets the process
// environment override it
func Load() (*Config, error) {
	return LoadFrom(findProjectRoot(), os.Environ())
}

// LoadFrom reads dir/.env and overlays environ (KEY=VALUE pairs)
func LoadFrom(dir string, environ []string) (*Config, error) {
	vars := make(map[string]string)

	data, err := os.ReadFile(filepath.Join(dir, ".env"))
	if err == nil {
		parseEnvFile(string(data), vars)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read .env: %w", err)
	}
	for _, kv := range environ {
		if key, value, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(key, Prefix) {
			vars[key] = value
		}
	}

	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: vars, Prefix: Prefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the game cannot run with
func (c *Config) Validate() error {
	switch c.SaveBackend {
	case savestore.KindBolt, savestore.KindSQLite, savestore.KindMemory:
	default:
		return fmt.Errorf("%sSAVE_BACKEND: unknown backend %q", Prefix, c.SaveBackend)
	}
	if strings.TrimSpace(c.SaveSlot) == "" {
		return fmt.Errorf("%sSAVE_SLOT is required", Prefix)
	}
	if c.TickRate <= 0 {
		return fmt.Errorf("%sTICK_RATE must be positive", Prefix)
	}
	if c.AttemptsPerTick == 0 {
		return fmt.Errorf("%sATTEMPTS_PER_TICK must be positive", Prefix)
	}
	if c.StatsWindow <= 0 {
		return fmt.Errorf("%sSTATS_WINDOW must be positive", Prefix)
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("%sAPI_PORT out of range: %d", Prefix, c.APIPort)
	}
	if c.GRPCPort < 0 || c.GRPCPort > 65535 {
		return fmt.Errorf("%sGRPC_PORT out of range: %d", Prefix, c.GRPCPort)
	}
	return nil
}

// GRPCAddr is the listen address of the gRPC health service, or "" when
// it is disabled
func (c *Config) GRPCAddr() string {
	if c.GRPCPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.APIHost, c.GRPCPort)
}

// APIAddr is the listen address of the HTTP API
func (c *Config) APIAddr() string {
	return fmt.Sprintf("%s:%d", c.APIHost, c.APIPort)
}

// GameOptions maps the config onto game options
func (c *Config) GameOptions() game.Options {
	opts := game.DefaultOptions()
	opts.Engine.TickRate = c.TickRate
	opts.Engine.AttemptsPerTick = c.AttemptsPerTick
	opts.Engine.RetargetInterval = c.RetargetInterval
	opts.StatsWindow = c.StatsWindow
	return opts
}

// StoreOptions maps the config onto save store options
func (c *Config) StoreOptions() savestore.Options {
	opts := savestore.DefaultOptions()
	opts.Slot = c.SaveSlot
	opts.Debounce = c.SaveDebounce
	opts.MaxDelay = c.SaveMaxDelay
	opts.MaxRetries = c.SaveRetries
	return opts
}

// LoggingConfig maps the config onto logger settings. fallback is used when
// no log file is configured.
func (c *Config) LoggingConfig(fallback string) *logging.LoggingConfig {
	output := c.LogFile
	if output == "" {
		output = fallback
	}
	return &logging.LoggingConfig{Level: c.LogLevel, Output: output}
}

func parseEnvFile(content string, vars map[string]string) {
	lines := strings.Split(content, "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)
		vars[key] = value
	}
}

func findProjectRoot() string {
	cwd, _ := os.Getwd()
	// First check CWD for .env file
	if _, err := os.Stat(filepath.Join(cwd, ".env")); err == nil {
		return cwd
	}
	// Then walk up looking for go.mod
	start := cwd
	for {
		if _, err := os.Stat(filepath.Join(cwd, "go.mod")); err == nil {
			return cwd
		}
		parent := filepath.Dir(cwd)
		if parent == cwd {
			return start
		}
		cwd = parent
	}
}
