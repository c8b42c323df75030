package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/example/pkgsync/internal/config"
	"github.com/example/pkgsync/internal/specfile"
	"github.com/example/pkgsync/internal/store"
	"github.com/spf13/cobra"
)

var (
	// Set by goreleaser
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile    string
	projectDir string
	logLevel   string
	logFormat  string
	dryRun     bool
	noUpload   bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pkgsync",
	Short: "Keep package sources consistent across git, manifest and remote store",
	Long: `pkgsync reconciles the three places a package project keeps its sources:
the git working tree, the source manifest, and the remote blob store.

Text sources (spec files, patches) belong in version control. Binary
sources (tarballs) are recorded in the manifest by digest and uploaded
to the store, so the repository itself stays small.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pkgsync %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .pkgsync.yaml, then $HOME/.config/pkgsync/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project-dir", "C", ".", "package project directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	// Command flags
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be done without making changes")
	syncCmd.Flags().BoolVar(&noUpload, "no-upload", false, "reconcile but leave the upload queue unprocessed")
	migrateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be done without making changes")

	// Add commands
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(versionCmd)
}

func setupLogger() *slog.Logger {
	// Parse log level
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// Create handler based on format
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

func loadConfig(logger *slog.Logger) (*config.Config, error) {
	dir, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project directory: %w", err)
	}

	configPath, err := config.Locate(cfgFile, dir)
	if err != nil {
		return nil, err
	}

	logger.Info("loading configuration", "path", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	cfg.ProjectDir = dir

	logger.Debug("configuration loaded",
		"remote", cfg.Remote.BaseURL,
		"manifest", cfg.Paths.Manifest,
		"project_dir", cfg.ProjectDir)

	return cfg, nil
}

func newStoreClient(cfg *config.Config) (*store.Client, error) {
	token, err := store.TokenFromFile(cfg.Remote.TokenFile)
	if err != nil {
		return nil, err
	}
	httpClient := &http.Client{
		Timeout: time.Duration(cfg.Remote.TimeoutSeconds) * time.Second,
	}
	return store.New(cfg.Remote.BaseURL, token, httpClient), nil
}

// loadSpec resolves the spec file (configured name or the single *.spec
// in the project directory) and parses its declared sources.
func loadSpec(cfg *config.Config) (string, []specfile.Source, error) {
	specPath := cfg.SpecPath()
	if specPath == "" {
		found, err := specfile.Find(cfg.ProjectDir)
		if err != nil {
			return "", nil, err
		}
		specPath = found
	}

	sources, err := specfile.Load(specPath)
	if err != nil {
		return "", nil, err
	}
	return specPath, sources, nil
}

// declaredNames is the effective source set for reconciliation: the
// spec's sources plus the project files pkgsync itself relies on, so
// the stale-file sweep never removes them.
func declaredNames(cfg *config.Config, specPath string, sources []specfile.Source) []string {
	names := specfile.Names(sources)
	names = append(names, filepath.Base(specPath))

	local := filepath.Join(cfg.ProjectDir, ".pkgsync.yaml")
	if _, err := os.Stat(local); err == nil {
		names = append(names, ".pkgsync.yaml")
	}
	return names
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	return ctx, cancel
}
