package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/formguard"
	"github.com/aretw0/formguard/internal/config"
	"github.com/aretw0/formguard/internal/logging"
	"github.com/aretw0/formguard/internal/metrics"
	"github.com/aretw0/formguard/internal/presentation/tui"
	httpAdapter "github.com/aretw0/formguard/pkg/adapters/http"
	"github.com/aretw0/formguard/pkg/adapters/memory"
	"github.com/aretw0/formguard/pkg/adapters/redis"
	"github.com/aretw0/formguard/pkg/ports"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP validation server",
	Long: `Starts the validation engine as a JSON API over HTTP.

Settings are read from FORMGUARD_* environment variables; flags take precedence.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := serverConfig(cmd)
		if err != nil {
			return err
		}

		level, err := logging.ParseLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		logger, err := logging.NewWithFormat(cfg.LogFormat, level)
		if err != nil {
			return err
		}

		m := metrics.New()
		eng, err := engineFor(cmd, cfg, logger, formguard.WithHooks(m.Hooks()))
		if err != nil {
			return err
		}

		opts := []httpAdapter.Option{
			httpAdapter.WithLogger(logger),
			httpAdapter.WithMetrics(m.Handler()),
			httpAdapter.WithCacheObserver(m.ObserveCache),
			httpAdapter.WithHooks(m.Hooks()),
		}
		cache, closeCache, err := newCache(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer closeCache()
		if cache != nil {
			opts = append(opts, httpAdapter.WithCache(cache))
		}

		srv := &http.Server{
			Addr:              cfg.Addr,
			Handler:           httpAdapter.NewHandler(eng, opts...),
			ReadHeaderTimeout: 10 * time.Second,
		}

		if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
			tui.PrintBanner(cmd.ErrOrStderr())
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			logger.Info("Starting formguard server", "address", srv.Addr, "entities", len(eng.Entities()))
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("Start shutdown", "signal", sig.String())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("Graceful shutdown did not complete", "timeout", 5*time.Second, "error", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			logger.Info("formguard server stopped gracefully")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (default $FORMGUARD_ADDR or :8080)")
	serveCmd.Flags().String("redis", "", "Redis address for the shared result cache")
	serveCmd.Flags().Duration("cache-ttl", 0, "Result cache expiry; 0s disables caching when set explicitly")
	serveCmd.Flags().String("log-format", "", "Log format: json or text")
	serveCmd.Flags().Bool("quiet", false, "Do not print the banner")
}

// serverConfig loads the environment and applies flags that were set.
func serverConfig(cmd *cobra.Command) (config.Server, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Addr, _ = flags.GetString("addr")
	}
	if flags.Changed("redis") {
		cfg.RedisAddr, _ = flags.GetString("redis")
	}
	if flags.Changed("cache-ttl") {
		cfg.CacheTTL, _ = flags.GetDuration("cache-ttl")
	}
	if flags.Changed("log-format") {
		cfg.LogFormat, _ = flags.GetString("log-format")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("definitions") {
		cfg.Definitions, _ = flags.GetStringSlice("definitions")
	}
	return cfg, nil
}

func engineFor(cmd *cobra.Command, cfg config.Server, logger *slog.Logger, extra ...formguard.Option) (*formguard.Engine, error) {
	opts := []formguard.Option{formguard.WithLogger(logger)}
	if len(cfg.Definitions) > 0 {
		opts = append(opts, formguard.WithDefinitions(cfg.Definitions...))
	}
	eng, err := formguard.New(append(opts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to init engine: %w", err)
	}
	return eng, nil
}

// newCache picks Redis when an address is configured and an in-process LRU
// otherwise. A nil cache means caching is off.
func newCache(ctx context.Context, cfg config.Server, logger *slog.Logger) (ports.ResultCache, func(), error) {
	noop := func() {}
	if !cfg.CacheEnabled() {
		return nil, noop, nil
	}
	if cfg.RedisAddr == "" {
		logger.Info("Using in-memory result cache", "ttl", cfg.CacheTTL, "capacity", cfg.CacheSize)
		return memory.NewCache(memory.WithTTL(cfg.CacheTTL), memory.WithCapacity(cfg.CacheSize)), noop, nil
	}

	c := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, redis.WithTTL(cfg.CacheTTL))
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.Ping(pingCtx); err != nil {
		c.Close()
		return nil, noop, fmt.Errorf("redis cache unavailable at %s: %w", cfg.RedisAddr, err)
	}
	logger.Info("Using Redis result cache", "address", cfg.RedisAddr, "ttl", cfg.CacheTTL)
	return c, func() { c.Close() }, nil
}
