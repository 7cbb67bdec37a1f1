// Package config loads tweet-thread settings from the environment and an
// optional tweet-thread.yaml file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every tool setting in the environment, e.g.
// TWEET_THREAD_MAX_DEPTH.
const EnvPrefix = "TWEET_THREAD"

// Config is the resolved configuration of one run.
type Config struct {
	Username     string
	Password     string
	TOTPSecret   string
	Proxy        string
	CapsolverKey string

	OutputDir   string
	MaxDepth    int
	SearchLimit int
	Order       string
	SessionDir  string
	LogLevel    string

	// File is the config file that was read, empty if none.
	File string
}

// HasCredentials reports whether both username and password are set.
func (c *Config) HasCredentials() bool {
	return c.Username != "" && c.Password != ""
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// credentialEnv binds keys to the conventional unprefixed variables.
var credentialEnv = map[string]string{
	"username":      "TWITTER_USERNAME",
	"password":      "TWITTER_PASSWORD",
	"totp_secret":   "TWITTER_TOTP_SECRET",
	"proxy":         "TWITTER_PROXY",
	"capsolver_key": "CAPSOLVER_API_KEY",
}

// Load reads configuration. A non-empty file must exist; otherwise
// tweet-thread.yaml is looked up in the working directory and in
// ~/.config/tweet-thread, and its absence is not an error.
func Load(file string) (*Config, error) {
	v := viper.New()
	v.SetDefault("output_dir", "output")
	v.SetDefault("max_depth", 3)
	v.SetDefault("search_limit", 100)
	v.SetDefault("order", "depth-first")
	v.SetDefault("session_dir", "")
	v.SetDefault("log_level", "info")

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("tweet-thread")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "tweet-thread"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	for key, env := range credentialEnv {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return &Config{
		Username:     v.GetString("username"),
		Password:     v.GetString("password"),
		TOTPSecret:   v.GetString("totp_secret"),
		Proxy:        v.GetString("proxy"),
		CapsolverKey: v.GetString("capsolver_key"),
		OutputDir:    v.GetString("output_dir"),
		MaxDepth:     v.GetInt("max_depth"),
		SearchLimit:  v.GetInt("search_limit"),
		Order:        v.GetString("order"),
		SessionDir:   v.GetString("session_dir"),
		LogLevel:     v.GetString("log_level"),
		File:         v.ConfigFileUsed(),
	}, nil
}
