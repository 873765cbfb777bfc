package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"polaris-hq/polaris/pkg/policy/compile"
	"polaris-hq/polaris/pkg/policy/manager"
	"polaris-hq/polaris/pkg/policy/store"
	"polaris-hq/polaris/pkg/server"
)

var serveFlags struct {
	listen   string
	policies string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP check server",
	Long: `Run the HTTP check server.

The server loads the configured policies and serves check and explain
requests until interrupted. With policy.watch enabled, policy files are
hot-reloaded on change; with store.enabled, every check decision is
appended to the decision log.

Examples:
  # Serve with the default config file
  polaris serve

  # Override listen address and policy source
  polaris serve --listen :9000 --policies policies/`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveFlags.listen, "listen", "", "listen address (default from config)")
	serveCmd.Flags().StringVar(&serveFlags.policies, "policies", "", "policy file or directory (default from config)")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	if serveFlags.listen != "" {
		cfg.Server.ListenAddress = serveFlags.listen
	}
	if serveFlags.policies != "" {
		cfg.Policy.Path = serveFlags.policies
	}

	loaderCfg := manager.DefaultLoaderConfig()
	if cfg.Policy.MaxFileSize > 0 {
		loaderCfg.MaxFileSize = cfg.Policy.MaxFileSize
	}

	compileOpts := &compile.Options{Strict: cfg.Engine.Strict, Trace: cfg.Engine.Trace, Logger: logger}
	mgr, err := manager.NewManager(&manager.Config{
		Path:           cfg.Policy.Path,
		Watch:          cfg.Policy.Watch,
		ResyncSchedule: cfg.Policy.ResyncSchedule,
		Loader:         loaderCfg,
		Compile:        compileOpts,
	}, logger)
	if err != nil {
		return err
	}
	defer mgr.Close()

	if err := mgr.LoadPolicies(); err != nil {
		return fmt.Errorf("failed to load policies: %w", err)
	}

	var recorder server.DecisionRecorder
	if cfg.Store.Enabled {
		s, err := store.NewStore(&store.Config{
			Path:         cfg.Store.Path,
			MaxOpenConns: cfg.Store.MaxOpenConns,
			MaxIdleConns: cfg.Store.MaxIdleConns,
			WALMode:      cfg.Store.WALMode,
			BusyTimeout:  cfg.Store.BusyTimeout,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to open decision store: %w", err)
		}
		defer s.Close()
		recorder = s
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Policy.Watch {
		go func() {
			if err := mgr.Watch(ctx); err != nil {
				logger.Error("Policy watcher stopped", "error", err)
			}
		}()
	}

	return server.NewServer(cfg, mgr, compileOpts, recorder, logger).Start(ctx)
}
