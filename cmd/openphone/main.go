// Command openphone is a small CLI and caching proxy for the OpenPhone API.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Sternrassler/openphone-client/pkg/cache"
	"github.com/Sternrassler/openphone-client/pkg/client"
	"github.com/Sternrassler/openphone-client/pkg/logging"
	"github.com/Sternrassler/openphone-client/pkg/openphone"
	"github.com/Sternrassler/openphone-client/pkg/ratelimit"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Injected at build time via ldflags.
var version = "dev"

// Configuration keys. Each is also read from OPENPHONE_<KEY> with dashes
// replaced by underscores.
const (
	keyAPIKey     = "api-key"
	keyBaseURL    = "base-url"
	keyOutput     = "output"
	keyLogLevel   = "log-level"
	keyRedisURL   = "redis-url"
	keyMaxRetries = "max-retries"
	keyTimeout    = "timeout"
)

// app carries the state shared by every subcommand.
type app struct {
	v      *viper.Viper
	out    io.Writer
	errOut io.Writer
}

func main() {
	_ = godotenv.Load()

	a := &app{v: viper.New(), out: os.Stdout, errOut: os.Stderr}
	if err := a.rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (a *app) rootCommand() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "openphone",
		Short:         "OpenPhone API command-line client",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig(cfgFile)
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	flags := root.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (yaml, json or toml)")
	flags.String(keyAPIKey, "", "OpenPhone API key")
	flags.String(keyBaseURL, client.DefaultBaseURL, "API base URL")
	flags.StringP(keyOutput, "o", "table", "output format (table, json, yaml)")
	flags.String(keyLogLevel, "warn", "log level (debug, info, warn, error, disabled)")
	flags.String(keyRedisURL, "", "redis URL for the shared cache and rate-limit state")
	flags.Int(keyMaxRetries, 3, "retries for network failures")
	flags.Duration(keyTimeout, 30*time.Second, "timeout per HTTP round trip")

	for _, key := range []string{keyAPIKey, keyBaseURL, keyOutput, keyLogLevel, keyRedisURL, keyMaxRetries, keyTimeout} {
		_ = a.v.BindPFlag(key, flags.Lookup(key))
	}

	root.AddCommand(a.listCommand())
	root.AddCommand(a.getCommand())
	root.AddCommand(a.rawCommand())
	root.AddCommand(a.serveCommand())
	return root
}

func (a *app) initConfig(cfgFile string) error {
	if cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}

	a.v.SetEnvPrefix("OPENPHONE")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(a.v.GetString(keyLogLevel)),
		Pretty: true,
		Output: a.errOut,
	})
	return nil
}

// session is an API client plus the Redis connection backing it, if any.
type session struct {
	op    *openphone.Client
	redis *redis.Client
}

func (s *session) Close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
}

func (a *app) connect(ctx context.Context) (*session, error) {
	cfg := client.DefaultConfig(a.v.GetString(keyAPIKey))
	cfg.BaseURL = a.v.GetString(keyBaseURL)
	cfg.MaxRetries = a.v.GetInt(keyMaxRetries)
	cfg.Timeout = a.v.GetDuration(keyTimeout)
	cfg.UserAgent = "openphone-cli/" + version
	logger := logging.NewLogger("openphone-cli")
	cfg.Logger = &logger

	s := &session{}
	if raw := a.v.GetString(keyRedisURL); raw != "" {
		opts, err := redis.ParseURL(raw)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		s.redis = redis.NewClient(opts)
		if err := s.redis.Ping(ctx).Err(); err != nil {
			s.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		cfg.Cache = cache.NewManager(s.redis)
		cfg.RateLimiter = ratelimit.NewTracker(s.redis, logging.NewLogger("ratelimit"))
		logger.Info().Str("addr", opts.Addr).Msg("Connected to Redis")
	}

	op, err := openphone.NewClient(cfg)
	if err != nil {
		s.Close()
		if client.IsUnauthorized(err) {
			return nil, fmt.Errorf("%w (set --%s or OPENPHONE_API_KEY)", err, keyAPIKey)
		}
		return nil, err
	}
	s.op = op
	return s, nil
}

func (a *app) format() string {
	return a.v.GetString(keyOutput)
}

func (a *app) logger() zerolog.Logger {
	return logging.NewLogger("openphone-cli")
}
