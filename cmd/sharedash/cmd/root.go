// Package cmd provides the CLI commands for sharedash.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sharedash/sharedash/internal/analytics"
	"github.com/sharedash/sharedash/internal/config"
	"github.com/sharedash/sharedash/internal/content"
	"github.com/sharedash/sharedash/internal/logging"
	"github.com/sharedash/sharedash/internal/metadata"
	"github.com/sharedash/sharedash/internal/pathsafe"
	"github.com/sharedash/sharedash/internal/reconcile"
	"github.com/sharedash/sharedash/internal/scanner"
	"github.com/sharedash/sharedash/pkg/version"
)

// configPath is the --config persistent flag value.
var configPath string

// NewRootCmd creates the root command for the sharedash CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sharedash",
		Short: "Track, reconcile and analyze files on a shared directory",
		Long: `Sharedash tracks the files on a shared directory tree in a metadata
store, reconciles store and filesystem with on-demand rescans, and
maintains an analytics snapshot (totals, type distribution, hot files)
for the dashboard.

Run 'sharedash init' to create a starter config, then 'sharedash rescan'.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("sharedash version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to config file (default "+config.DefaultFileName+")")

	cmd.AddCommand(newRescanCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newAccessCmd())
	cmd.AddCommand(newContentCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// app wires the full stack for one command invocation.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	sandbox    *pathsafe.Sandbox
	store      *metadata.SQLiteStore
	analytics  *analytics.BadgerStore
	recomputer *analytics.Recomputer
	engine     *reconcile.Engine
	accessor   *content.Accessor

	logCleanup func()
}

// openApp loads configuration and opens every component. Callers must
// Close the returned app.
func openApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, logCleanup, err := logging.Setup(logging.Config{
		Level:         cfg.Log.Level,
		FilePath:      cfg.LogFile(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: false,
	})
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	sandbox, err := pathsafe.New(cfg.SharedRoot)
	if err != nil {
		logCleanup()
		return nil, err
	}

	store, err := metadata.NewSQLiteStore(cfg.MetadataPath())
	if err != nil {
		logCleanup()
		return nil, err
	}

	analyticsStore, err := analytics.NewBadgerStore(cfg.AnalyticsPath())
	if err != nil {
		_ = store.Close()
		logCleanup()
		return nil, err
	}

	agg := analytics.NewAggregator(cfg.Analytics.HotFilesMax, cfg.Analytics.HotFilesMinAccess)
	recomputer := analytics.NewRecomputer(store, analyticsStore, agg, cfg.FlushInterval(), logger)
	recomputer.Start()

	scan := scanner.New(sandbox)
	engine := reconcile.New(reconcile.Config{
		Sandbox:   sandbox,
		Scanner:   scan,
		Store:     store,
		Analytics: recomputer,
		ScanOpts: scanner.Options{
			Exclude: cfg.Scan.Exclude,
			Workers: cfg.Scan.Workers,
		},
		LockDir: cfg.DataDir,
		Logger:  logger,
	})

	accessor := content.New(sandbox, store, recomputer,
		cfg.Editor.AllowedTypes, cfg.Editor.MaxSizeBytes)

	return &app{
		cfg:        cfg,
		logger:     logger,
		sandbox:    sandbox,
		store:      store,
		analytics:  analyticsStore,
		recomputer: recomputer,
		engine:     engine,
		accessor:   accessor,
		logCleanup: logCleanup,
	}, nil
}

// Close flushes pending analytics work and releases every resource.
func (a *app) Close() {
	a.recomputer.Stop()
	_ = a.analytics.Close()
	_ = a.store.Close()
	a.logCleanup()
}
