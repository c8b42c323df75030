package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/example/pkgsync/internal/config"
	"github.com/example/pkgsync/internal/digest"
	"github.com/example/pkgsync/internal/manifest"
	"github.com/example/pkgsync/internal/store"
	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the sources missing from the working tree",
	Long: `Fetch makes the working tree buildable: every declared source that is
not on disk is downloaded, from the remote store when the manifest
records its digest, otherwise from the upstream URL in the spec file.

Store downloads are verified against the manifest digest; a mismatch
discards the file and counts as a failure.`,
	RunE: runFetch,
}

func runFetch(cmd *cobra.Command, args []string) error {
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
	return nil
}

// fetchMissing downloads every declared source absent from the working
// tree. Each file is fetched independently; the first error is returned
// after the rest of the list has been attempted.
func fetchMissing(ctx context.Context, logger *slog.Logger, cfg *config.Config, client *store.Client) error {
	specPath, sources, err := loadSpec(cfg)
	if err != nil {
		return err
	}
	logger.Info("spec file parsed", "path", specPath, "sources", len(sources))

	m, err := manifest.Load(cfg.ManifestPath())
	if err != nil {
		return err
	}

	var failed int
	for _, src := range sources {
		dest := filepath.Join(cfg.ProjectDir, filepath.FromSlash(src.Name))
		if _, err := os.Stat(dest); err == nil {
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			logger.Error("stat failed", "file", src.Name, "error", err)
			failed++
			continue
		}

		if d, ok := m[src.Name]; ok {
			if err := fetchFromStore(ctx, client, src.Name, d, dest); err != nil {
				logger.Error("store download failed", "file", src.Name, "error", err)
				failed++
				continue
			}
			logger.Info("downloaded from store", "file", src.Name, "digest", d)
			continue
		}

		if src.URL != "" {
			if err := client.FetchURL(ctx, src.URL, dest); err != nil {
				logger.Error("upstream download failed", "file", src.Name, "error", err)
				failed++
				continue
			}
			logger.Info("downloaded from upstream", "file", src.Name, "url", src.URL)
			continue
		}

		logger.Warn("cannot fetch: no manifest entry and no upstream url", "file", src.Name)
		failed++
	}

	if failed > 0 {
		return fmt.Errorf("%d source(s) could not be fetched", failed)
	}
	return nil
}

func fetchFromStore(ctx context.Context, client *store.Client, name, want, dest string) error {
	if err := client.Download(ctx, want, dest); err != nil {
		return err
	}
	if err := digest.Verify(dest, want); err != nil {
		_ = os.Remove(dest)
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
