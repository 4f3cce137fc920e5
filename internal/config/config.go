// Package config loads td2048 settings from an optional .env file and
// TD2048_* environment variables. Commands apply their flags on top.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/yourusername/td2048/pkg/store"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "TD2048_"

// Config holds settings shared by the CLI and the server.
type Config struct {
	// Persistence
	ModelPath     string // snapshot file (used when RedisAddr is empty)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string

	// Server
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxFastWorkers int
	MaxSlowWorkers int

	// Training and evaluation
	Alpha              float64
	Sessions           int
	EpisodesPerSession int
	Seed               int64
	Workers            int

	// Logging
	LogLevel  string
	LogFormat string // "text" or "json"
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		ModelPath:          "models/agent.td",
		RedisKey:           store.DefaultRedisKey,
		Host:               "localhost",
		Port:               8080,
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       60 * time.Second,
		IdleTimeout:        60 * time.Second,
		MaxFastWorkers:     100,
		MaxSlowWorkers:     4,
		Alpha:              0.1,
		Sessions:           0,
		EpisodesPerSession: 100,
		Workers:            0,
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

// Load reads the given .env files (missing files are skipped; with no
// arguments ".env" is tried) and then the environment. Variables already
// set in the environment win over .env values.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Config{}, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	cfg := Default()
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	p := envParser{lookup: lookup}

	p.stringVar("MODEL", &c.ModelPath)
	p.stringVar("REDIS_ADDR", &c.RedisAddr)
	p.stringVar("REDIS_PASSWORD", &c.RedisPassword)
	p.intVar("REDIS_DB", &c.RedisDB)
	p.stringVar("REDIS_KEY", &c.RedisKey)

	p.stringVar("HOST", &c.Host)
	p.intVar("PORT", &c.Port)
	p.durationVar("READ_TIMEOUT", &c.ReadTimeout)
	p.durationVar("WRITE_TIMEOUT", &c.WriteTimeout)
	p.durationVar("IDLE_TIMEOUT", &c.IdleTimeout)
	p.intVar("MAX_FAST_WORKERS", &c.MaxFastWorkers)
	p.intVar("MAX_SLOW_WORKERS", &c.MaxSlowWorkers)

	p.floatVar("ALPHA", &c.Alpha)
	p.intVar("SESSIONS", &c.Sessions)
	p.intVar("EPISODES", &c.EpisodesPerSession)
	p.int64Var("SEED", &c.Seed)
	p.intVar("WORKERS", &c.Workers)

	p.stringVar("LOG_LEVEL", &c.LogLevel)
	p.stringVar("LOG_FORMAT", &c.LogFormat)

	if p.err != nil {
		return p.err
	}
	return c.Validate()
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch {
	case c.Port < 0 || c.Port > 65535:
		return fmt.Errorf("invalid port %d", c.Port)
	case c.Alpha <= 0 || c.Alpha > 1:
		return fmt.Errorf("alpha must be in (0, 1], got %g", c.Alpha)
	case c.Sessions < 0:
		return fmt.Errorf("invalid session count %d", c.Sessions)
	case c.EpisodesPerSession <= 0:
		return fmt.Errorf("invalid episodes per session %d", c.EpisodesPerSession)
	case c.Workers < 0:
		return fmt.Errorf("invalid worker count %d", c.Workers)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("invalid log format %q", c.LogFormat)
	case c.ModelPath == "" && c.RedisAddr == "":
		return fmt.Errorf("either a model path or a redis address is required")
	}
	return nil
}

// OpenStore returns a Redis store when RedisAddr is set, otherwise a file
// store at ModelPath.
func (c Config) OpenStore(ctx context.Context) (store.Store, error) {
	if c.RedisAddr != "" {
		return store.DialRedis(ctx, c.RedisAddr, c.RedisPassword, c.RedisDB, c.RedisKey)
	}
	return store.NewFileStore(c.ModelPath), nil
}

// StoreName describes where snapshots live, for logs.
func (c Config) StoreName() string {
	if c.RedisAddr != "" {
		return "redis://" + c.RedisAddr + "/" + c.RedisKey
	}
	return c.ModelPath
}

// envParser reads typed TD2048_* variables, keeping the first error.
type envParser struct {
	lookup lookupFunc
	err    error
}

func (p *envParser) get(key string) (string, bool) {
	if p.err != nil {
		return "", false
	}
	v, ok := p.lookup(EnvPrefix + key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (p *envParser) fail(key, v string, err error) {
	p.err = fmt.Errorf("invalid %s%s=%q: %w", EnvPrefix, key, v, err)
}

func (p *envParser) stringVar(key string, dst *string) {
	if v, ok := p.get(key); ok {
		*dst = v
	}
}

func (p *envParser) intVar(key string, dst *int) {
	if v, ok := p.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			p.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (p *envParser) int64Var(key string, dst *int64) {
	if v, ok := p.get(key); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			p.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (p *envParser) floatVar(key string, dst *float64) {
	if v, ok := p.get(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			p.fail(key, v, err)
			return
		}
		*dst = f
	}
}

func (p *envParser) durationVar(key string, dst *time.Duration) {
	if v, ok := p.get(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			p.fail(key, v, err)
			return
		}
		*dst = d
	}
}
