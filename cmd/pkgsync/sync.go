package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/example/pkgsync/internal/manifest"
	"github.com/example/pkgsync/internal/reconcile"
	"github.com/example/pkgsync/internal/store"
	"github.com/example/pkgsync/internal/vcs"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile declared sources across git, manifest and remote store",
	Long: `Sync parses the spec file's Source and Patch tags and converges the
project on them: text sources are staged in git, binary sources are
recorded in the manifest and uploaded to the remote store, and stale
tracked files are swept out.

With --dry-run every decision is reported but nothing is changed.`,
	RunE: runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()

	cfg, err := loadConfig(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	specPath, sources, err := loadSpec(cfg)
	if err != nil {
		return err
	}
	logger.Info("spec file parsed", "path", specPath, "sources", len(sources))

	tracker, err := vcs.Open(cfg.ProjectDir)
	if err != nil {
		return err
	}
	client, err := newStoreClient(cfg)
	if err != nil {
		return err
	}

	engine := reconcile.NewEngine(cfg, tracker, client, logger, dryRun)
	report, err := engine.Reconcile(ctx, declaredNames(cfg, specPath, sources))
	if err != nil {
		logger.Error("reconciliation failed", "error", err)
		return err
	}

	if !dryRun && !noUpload {
		uploadQueue(ctx, logger, cfg.ManifestPath(), cfg.ProjectDir, client, report)
	}

	renderReport(os.Stdout, report, dryRun)
	if len(report.Errors) > 0 {
		return fmt.Errorf("%d file(s) failed, see report", len(report.Errors))
	}
	return nil
}

// uploadQueue pushes every queued blob to the store, looking digests up
// in the just-persisted manifest. Failures degrade to report errors so
// one bad transfer does not abandon the rest of the queue.
func uploadQueue(ctx context.Context, logger *slog.Logger, manifestPath, projectDir string, uploader store.Uploader, report *reconcile.Report) {
	if len(report.Uploads) == 0 {
		return
	}

	m, err := manifest.Load(manifestPath)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("upload queue: %v", err))
		return
	}

	for _, name := range report.Uploads {
		d, ok := m[name]
		if !ok {
			report.Errors = append(report.Errors, fmt.Sprintf("upload %s: no manifest entry", name))
			continue
		}
		path := filepath.Join(projectDir, filepath.FromSlash(name))
		if err := uploader.Upload(ctx, name, d, path); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("upload %s: %v", name, err))
			continue
		}
		logger.Info("uploaded", "file", name, "digest", d)
	}
}
