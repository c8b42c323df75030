package main

import (
	"fmt"

	"github.com/example/pkgsync/internal/build"
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build [-- args...]",
	Short: "Fetch missing sources and run the local build",
	Long: `Build first fetches every declared source that is missing from the
working tree, then runs the configured build command in the project
directory. Arguments after -- are passed through to the build command.`,
	RunE: runBuild,
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()

	cfg, err := loadConfig(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	client, err := newStoreClient(cfg)
	if err != nil {
		return err
	}
	if err := fetchMissing(ctx, logger, cfg, client); err != nil {
		return err
	}

	runner := build.NewShell(cfg.Build.Command, cfg.Build.Args)
	if _, err := runner.Available(); err != nil {
		return err
	}

	logger.Info("running build", "command", cfg.Build.Command, "dir", cfg.ProjectDir)
	if err := runner.Run(ctx, cfg.ProjectDir, args); err != nil {
		logger.Error("build failed", "error", err)
		return err
	}
	return nil
}
