package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jontk/permd/internal/config"
	"github.com/jontk/permd/internal/logging"
	"github.com/jontk/permd/internal/reconcile"
	"github.com/jontk/permd/internal/version"
	"github.com/jontk/permd/internal/watcher"
)

var (
	cfgFile     string
	debugMode   bool
	showVersion bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "permd",
	Short: "Daemon enforcing a target permission mode on watched directories",
	Long: `permd keeps the files under a set of watched directory trees at a
single desired permission mode. Drift is corrected on a fixed schedule
and shortly after filesystem changes, with bursts of change events
collapsed into a single reconciliation pass.

Ignore directories are excluded from both scanning and enforcement,
even when nested inside a watched tree.`,

	Example: `  permd                      # Run the daemon with ~/.permd/config.yaml
  permd --config ./permd.yaml  # Run with an explicit config file
  permd check                  # One-shot scan-and-fix, then exit
  permd config show            # Print the effective configuration`,

	RunE: runRoot,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.permd/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")

	// Local flags
	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "show version information")
}

// loadConfig loads and validates configuration for the daemon and its
// subcommands, applying flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithPath(cfgFile)
	if err != nil {
		return nil, err
	}
	if debugMode {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// initLogging configures the global logger from the loaded configuration.
func initLogging(cfg *config.Config) {
	logging.Init(&logging.Config{
		Level:      cfg.Log.Level,
		Console:    true,
		File:       cfg.Log.File != "",
		Filename:   cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
}

// reportValidation prints validation findings; it returns an error
// when the configuration cannot be run with.
func reportValidation(result *config.ValidationResult) error {
	for _, w := range result.Warnings {
		logging.Warnf("config %s: %s (%s)", w.Field, w.Message, w.Impact)
	}
	if result.Valid {
		return nil
	}
	for _, e := range result.Errors {
		logging.Errorf("config %s: %s (%s)", e.Field, e.Message, e.Suggestion)
	}
	return fmt.Errorf("configuration is invalid")
}

// runRoot runs the reconciliation daemon until interrupted
func runRoot(cmd *cobra.Command, args []string) error {
	// Handle version flag
	if showVersion {
		info := version.Get()
		fmt.Printf("permd version %s\n", info.Short())
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	initLogging(cfg)

	if err := reportValidation(cfg.Validate()); err != nil {
		return err
	}

	interval, err := cfg.IntervalDuration()
	if err != nil {
		return err
	}
	settle, err := cfg.SettleDuration()
	if err != nil {
		return err
	}

	reconciler, err := reconcile.New(cfg)
	if err != nil {
		return err
	}

	// Installing the watches is a startup precondition; failure here
	// must not leave a daemon running on the timer alone.
	w, err := watcher.New(cfg.WatchDirs, cfg.IgnoreDirs)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	sched := reconcile.NewScheduler(interval, settle, reconciler.Pass)

	// Create root context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		sig := <-sigChan
		logging.Infof("received %s, shutting down", sig)
		cancel()
	}()

	// Forward change notifications to the scheduler.
	go func() {
		for range w.Events() {
			sched.Notify()
		}
	}()

	ver := version.Get()
	logging.Infof("permd %s started, target mode %s, %d watch dirs",
		ver.Short(), cfg.DesiredPermission, len(cfg.WatchDirs))

	if err := sched.Run(ctx); !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
