// Package config loads settings from config.yaml and CHESSREVIEW_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var ErrInvalid = errors.New("config: invalid value")

type Lichess struct {
	Token string `mapstructure:"token"`
	URL   string `mapstructure:"url"`
}

type Database struct {
	Games    string `mapstructure:"games"`
	Openings string `mapstructure:"openings"`
}

type Engine struct {
	Path    string `mapstructure:"path"`
	Depth   int    `mapstructure:"depth"` // 0 analyses until the position changes
	Threads int    `mapstructure:"threads"`
	Hash    int    `mapstructure:"hash"`
}

type Redis struct {
	URL string        `mapstructure:"url"` // empty disables the shared tier
	TTL time.Duration `mapstructure:"ttl"`
}

type Log struct {
	Path  string `mapstructure:"path"`
	Level string `mapstructure:"level"`
}

type Server struct {
	Addr    string `mapstructure:"addr"`
	HostKey string `mapstructure:"host_key"`
	Binary  string `mapstructure:"binary"`
}

type Config struct {
	Username string   `mapstructure:"username"`
	Lichess  Lichess  `mapstructure:"lichess"`
	Database Database `mapstructure:"database"`
	Engine   Engine   `mapstructure:"engine"`
	Redis    Redis    `mapstructure:"redis"`
	Log      Log      `mapstructure:"log"`
	Theme    string   `mapstructure:"theme"`
	Server   Server   `mapstructure:"server"`

	v *viper.Viper
}

func defaults(v *viper.Viper) {
	v.SetDefault("username", "")
	v.SetDefault("lichess.token", "")
	v.SetDefault("lichess.url", "https://lichess.org")
	v.SetDefault("database.games", "games.db")
	v.SetDefault("database.openings", "openings.db")
	v.SetDefault("engine.path", "stockfish")
	v.SetDefault("engine.depth", 0)
	v.SetDefault("engine.threads", 1)
	v.SetDefault("engine.hash", 64)
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.ttl", 24*time.Hour)
	v.SetDefault("log.path", filepath.Join(os.TempDir(), "chessreview.log"))
	v.SetDefault("log.level", "info")
	v.SetDefault("theme", "basic")
	v.SetDefault("server.addr", ":2022")
	v.SetDefault("server.host_key", "")
	v.SetDefault("server.binary", "chessterm")
}

// Load reads path, or config.yaml from the working directory or
// $HOME/.config/chessreview when path is empty. A missing default file is
// not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	defaults(v)
	v.SetEnvPrefix("CHESSREVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "chessreview"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: %w", err)
			}
		}
	}

	cfg := &Config{v: v}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Engine.Depth < 0:
		return fmt.Errorf("%w: engine.depth %d", ErrInvalid, c.Engine.Depth)
	case c.Engine.Threads < 1:
		return fmt.Errorf("%w: engine.threads %d", ErrInvalid, c.Engine.Threads)
	case c.Redis.TTL < 0:
		return fmt.Errorf("%w: redis.ttl %s", ErrInvalid, c.Redis.TTL)
	}
	return nil
}

// Decode unmarshals the raw value at key, for sections whose type lives
// with the package that uses them (themes).
func (c *Config) Decode(key string, out any) error {
	if c.v == nil || !c.v.IsSet(key) {
		return nil
	}
	return c.v.UnmarshalKey(key, out)
}

// File returns the config file in use, if any.
func (c *Config) File() string {
	if c.v == nil {
		return ""
	}
	return c.v.ConfigFileUsed()
}
