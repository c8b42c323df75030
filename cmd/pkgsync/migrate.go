package main

import (
	"fmt"
	"os"

	"github.com/example/pkgsync/internal/reconcile"
	"github.com/example/pkgsync/internal/vcs"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Convert a fully in-git project to remote-hosted binaries",
	Long: `Migrate walks every file in the working tree instead of the declared
source list. Text files are staged in git; every binary is recorded in
the manifest, uploaded to the remote store, and its local copy deleted
once the store confirms it. The result is a text-only tree whose
binaries live entirely in the store.

Local copies are only deleted after the updated manifest is persisted.`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()

	cfg, err := loadConfig(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	tracker, err := vcs.Open(cfg.ProjectDir)
	if err != nil {
		return err
	}
	client, err := newStoreClient(cfg)
	if err != nil {
		return err
	}

	engine := reconcile.NewEngine(cfg, tracker, client, logger, dryRun)
	report, err := engine.Migrate(ctx, client)
	if err != nil {
		logger.Error("migration failed", "error", err)
		return err
	}

	renderReport(os.Stdout, report, dryRun)
	if len(report.Errors) > 0 {
		return fmt.Errorf("%d file(s) failed, see report", len(report.Errors))
	}
	return nil
}
