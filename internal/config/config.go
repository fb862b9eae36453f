// Package config loads memobox settings from defaults, a YAML file,
// MEMOBOX_* environment variables and command-line flags, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/conorfennell/memobox/internal/leitner"
)

// EnvPrefix prefixes every environment variable memobox reads.
const EnvPrefix = "MEMOBOX_"

// Config holds all memobox configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	// Ladder is the Leitner interval ladder in days. The upper bound is
	// leitner.MaxIntervalDays.
	Ladder []int        `koanf:"ladder" validate:"required,min=1,nondecreasing,dive,gte=0,lte=106751"`
	Review ReviewConfig `koanf:"review"`
	Sync   SyncConfig   `koanf:"sync"`
	Log    LogConfig    `koanf:"log"`
}

type ServerConfig struct {
	Addr string `koanf:"addr" validate:"required,hostname_port"`
}

type DatabaseConfig struct {
	Path string `koanf:"path" validate:"required"`
}

type ReviewConfig struct {
	// Attempts bounds retries of a recall that lost a concurrent update.
	Attempts int `koanf:"attempts" validate:"gte=1,lte=100"`
}

type SyncConfig struct {
	// Repos is where git sources are checked out.
	Repos string `koanf:"repos" validate:"required"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server:   ServerConfig{Addr: "127.0.0.1:8080"},
		Database: DatabaseConfig{Path: "memobox.db"},
		Ladder:   leitner.DefaultLadder().Values(),
		Review:   ReviewConfig{Attempts: 3},
		Sync:     SyncConfig{Repos: "repos"},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"addr":       "server.addr",
	"db":         "database.path",
	"ladder":     "ladder",
	"attempts":   "review.attempts",
	"repos":      "sync.repos",
	"log-level":  "log.level",
	"log-format": "log.format",
}

// Load builds the configuration. configPath may be empty; flags may be nil.
// Only flags the user actually set override lower layers.
func Load(configPath string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return Config{}, fmt.Errorf("load flags: %w", err)
		}
	}

	cfg := Default()
	if k.Exists("ladder") {
		cfg.Ladder = nil
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKey turns MEMOBOX_SERVER_ADDR into server.addr.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
}

// envValue maps an environment variable to its key; the ladder is given
// as a comma separated list.
func envValue(name, value string) (string, interface{}) {
	key := envKey(name)
	if key == "ladder" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return key, parts
	}
	return key, value
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	err := v.RegisterValidation("nondecreasing", func(fl validator.FieldLevel) bool {
		days, ok := fl.Field().Interface().([]int)
		if !ok {
			return false
		}
		for i := 1; i < len(days); i++ {
			if days[i] < days[i-1] {
				return false
			}
		}
		return true
	})
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks every field and reports all violations at once.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// RecallLadder builds the scheduler's ladder from the configuration.
func (c Config) RecallLadder() (leitner.Ladder, error) {
	return leitner.NewLadder(c.Ladder...)
}

// Logger builds the process logger described by the configuration.
func (c Config) Logger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
