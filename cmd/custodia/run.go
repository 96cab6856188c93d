package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"custodia-hq/custodia/pkg/cli"
	"custodia-hq/custodia/pkg/config"
	"custodia-hq/custodia/pkg/custody/integrity"
	"custodia-hq/custodia/pkg/server"
	"custodia-hq/custodia/pkg/telemetry/health"
	"custodia-hq/custodia/pkg/telemetry/logging"
	"custodia-hq/custodia/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	watchConfig   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the custody API server",
	Long: `Start the custody API server with the specified configuration.

The server exposes the evidence custody ledger over HTTP: intake, custody
event recording, history, chain verification, queries, and export.

Examples:
  # Start with default config
  custodia run

  # Start with custom config
  custodia run --config /etc/custodia/config.yaml

  # Override listen address
  custodia run --listen 0.0.0.0:8080

  # Validate config without starting the server
  custodia run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
	runCmd.Flags().BoolVar(&runFlags.watchConfig, "watch-config", false, "hot-reload classifier settings on config change")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	if _, err := logging.Setup(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
	}); err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	ctx := cli.SetupSignalHandler()

	comps, err := buildStore(ctx, cfg)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer comps.close()
	fmt.Printf("✓ Evidence store loaded (%d items, backend %s)\n",
		len(comps.store.ItemIDs()), cfg.Storage.Backend)

	collector := metrics.NewCollector(&metrics.Config{
		Enabled: cfg.Telemetry.Metrics.Enabled,
	}, nil)
	collector.SetItemCount(len(comps.store.ItemIDs()))

	checker := health.New(0)
	checker.RegisterCheck("storage", comps.storage.Ping)

	sweeper := integrity.NewSweeper(comps.store, comps.anchors, collector)
	scheduler := integrity.NewScheduler(sweeper, cfg.Integrity.SweepSchedule)
	if err := scheduler.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	defer scheduler.Stop()
	if next := scheduler.NextRun(); next != nil {
		fmt.Printf("✓ Integrity sweeps scheduled (next at %s)\n", next.Format("2006-01-02 15:04:05"))
	}

	if runFlags.watchConfig {
		watcher, err := config.NewWatcher(cfgFile, 0)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		go func() {
			_ = watcher.Watch(ctx, func() error {
				reloaded, err := config.LoadConfigWithEnvOverrides(cfgFile)
				if err != nil {
					return err
				}
				comps.store.SetClassifierConfig(classifierConfig(reloaded))
				return comps.store.Rebuild(ctx)
			})
		}()
		defer func() { _ = watcher.Stop() }()
	}

	srv := server.NewServer(server.Options{
		Config:      &cfg.Server,
		Store:       comps.store,
		Sweeper:     sweeper,
		Anchors:     comps.anchors,
		Metrics:     collector,
		Checker:     checker,
		MetricsPath: cfg.Telemetry.Metrics.Path,
		Version:     Version,
		Commit:      GitCommit,
		BuildTime:   BuildDate,
	})

	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Health endpoint: http://%s/healthz\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	fmt.Println("\nPress Ctrl+C to stop")

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	return nil
}
