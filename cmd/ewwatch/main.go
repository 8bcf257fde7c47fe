package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazz-dev/ewwatch/internal/config"
	"github.com/hazz-dev/ewwatch/internal/dashboard"
	"github.com/hazz-dev/ewwatch/internal/logging"
	"github.com/hazz-dev/ewwatch/internal/server"
	"github.com/hazz-dev/ewwatch/internal/version"
)

const defaultConfigFile = "ewwatch.yml"

// flags holds the persistent command-line flags.
type flags struct {
	configFile string
	interval   int
	telegram   bool
	goodNews   bool
	dryRun     bool
	logLevel   string
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:          "ewwatch",
		Short:        "Health watchdog for an Earthworm acquisition node",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, f)
		},
	}
	bindFlags(root, f)

	root.AddCommand(versionCmd())
	root.AddCommand(runCmd(f))
	root.AddCommand(checkCmd(f))
	root.AddCommand(statusCmd(f))

	return root
}

func bindFlags(root *cobra.Command, f *flags) {
	pf := root.PersistentFlags()
	pf.StringVar(&f.configFile, "config", defaultConfigFile, "config file path")
	pf.IntVarP(&f.interval, "interval", "i", int(config.DefaultInterval/time.Minute), "minutes between health checks")
	pf.BoolVarP(&f.telegram, "telegram", "t", false, "deliver reports through the configured notification channels")
	pf.BoolVarP(&f.goodNews, "good-news", "g", false, "also report when everything is healthy")
	pf.BoolVar(&f.dryRun, "dry-run", false, "log notifications instead of sending them")
	pf.StringVar(&f.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

// loadConfig loads and validates the configuration, applying flags that were set explicitly.
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	return configFrom(cmd, f, config.Load)
}

// readConfig is loadConfig without validation.
func readConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	return configFrom(cmd, f, config.Read)
}

func configFrom(cmd *cobra.Command, f *flags, load func(string, bool, ...func(*config.Config)) (*config.Config, error)) (*config.Config, error) {
	pf := cmd.Flags()
	if pf.Changed("interval") && f.interval <= 0 {
		return nil, &config.Error{Field: "--interval", Msg: "must be a positive number of minutes"}
	}
	required := pf.Changed("config")
	return load(f.configFile, required, func(c *config.Config) {
		if pf.Changed("interval") {
			c.Interval = config.Duration{Duration: time.Duration(f.interval) * time.Minute}
		}
		if pf.Changed("telegram") {
			c.Notify.Enabled = f.telegram
		}
		if pf.Changed("good-news") {
			c.Notify.ReportGoodNews = f.goodNews
		}
		if pf.Changed("dry-run") {
			c.Notify.DryRun = f.dryRun
		}
		if pf.Changed("log-level") {
			c.LogLevel = f.logLevel
		}
	})
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

func runCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run health checks on a fixed interval until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, f)
		},
	}
}

func runWatch(cmd *cobra.Command, f *flags) error {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}
	logger := logging.NewWithLevel(cfg.LogLevel)

	a, err := newApp(cfg, logger, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	var httpServer *http.Server
	serverErr := make(chan error, 1)
	if cfg.Server.Address != "" {
		opts := server.Options{
			Tracker:   a.tracker,
			Metrics:   a.metrics,
			Dashboard: dashboard.Handler(),
			Interval:  cfg.Interval.Duration,
			Logger:    logger,
		}
		if a.store != nil {
			opts.Store = a.store
		}
		httpServer = &http.Server{
			Addr:              cfg.Server.Address,
			Handler:           server.New(opts).Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info().Str("address", cfg.Server.Address).Msg("listening")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()
	}

	schedErr := make(chan error, 1)
	go func() { schedErr <- a.scheduler.Run(ctx) }()

	select {
	case err = <-schedErr:
	case err = <-serverErr:
		err = fmt.Errorf("HTTP server: %w", err)
		stop()
		<-schedErr
	}

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("HTTP server shutdown")
		}
	}

	logger.Info().Msg("shutdown complete")
	return err
}

func checkCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run one health check cycle and exit non-zero if anything fails",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()
			return executeCheck(ctx, cmd.OutOrStdout(), cfg, logging.NewWithLevel(cfg.LogLevel))
		},
	}
}

func statusCmd(f *flags) *cobra.Command {
	var (
		limit  int
		dbPath string
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print recent reports from the history database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("db") {
				cfg, err := readConfig(cmd, f)
				if err != nil {
					return err
				}
				dbPath = cfg.Storage.Path
			}
			return runStatus(cmd.Context(), cmd.OutOrStdout(), dbPath, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of reports to show")
	cmd.Flags().StringVar(&dbPath, "db", "", "history database path (overrides storage.path)")
	return cmd
}
