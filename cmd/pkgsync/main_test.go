package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/pkgsync/internal/config"
	"github.com/example/pkgsync/internal/reconcile"
	"github.com/example/pkgsync/internal/specfile"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testProjectConfig(dir string) *config.Config {
	return &config.Config{
		Remote:     config.RemoteConfig{BaseURL: "https://pkgs.example.org"},
		Paths:      config.PathsConfig{Manifest: "sources.yaml"},
		Sync:       config.SyncConfig{OnUnknown: config.UnknownUpload},
		ProjectDir: dir,
	}
}

func TestSetupLogger(t *testing.T) {
	// Save original globals.
	origLevel := logLevel
	origFormat := logFormat
	t.Cleanup(func() {
		logLevel = origLevel
		logFormat = origFormat
	})

	for _, tc := range []struct {
		name      string
		logLevel  string
		logFormat string
	}{
		{name: "debug/text", logLevel: "debug", logFormat: "text"},
		{name: "info/json", logLevel: "info", logFormat: "json"},
		{name: "warn/text", logLevel: "warn", logFormat: "text"},
		{name: "error/text", logLevel: "error", logFormat: "text"},
		{name: "unknown/text", logLevel: "unknown", logFormat: "text"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			logLevel = tc.logLevel
			logFormat = tc.logFormat

			logger := setupLogger()
			if logger == nil {
				t.Fatal("setupLogger returned nil")
			}
		})
	}
}

func TestLoadConfig_WithExplicitPath(t *testing.T) {
	origCfgFile := cfgFile
	origProjectDir := projectDir
	t.Cleanup(func() {
		cfgFile = origCfgFile
		projectDir = origProjectDir
	})

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	configContent := []byte(`remote:
  base_url: "https://pkgs.example.org/lookaside"
paths:
  manifest: "sources.yaml"
`)
	if err := os.WriteFile(cfgPath, configContent, 0o600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfgFile = cfgPath
	projectDir = tmpDir
	logger := testLogger()

	cfg, err := loadConfig(logger)
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}
	if cfg.ProjectDir != tmpDir {
		t.Errorf("ProjectDir = %q, want %q", cfg.ProjectDir, tmpDir)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	origCfgFile := cfgFile
	origProjectDir := projectDir
	t.Cleanup(func() {
		cfgFile = origCfgFile
		projectDir = origProjectDir
	})

	cfgFile = filepath.Join(t.TempDir(), "nonexistent.yaml")
	projectDir = t.TempDir()

	_, err := loadConfig(testLogger())
	if err == nil {
		t.Fatal("expected error for missing config file, got nil")
	}
}

func TestDeclaredNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".pkgsync.yaml"), []byte("remote: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := testProjectConfig(dir)
	sources := []specfile.Source{
		{Name: "demo.tar.gz", URL: "https://example.org/demo.tar.gz"},
		{Name: "fix.patch"},
	}

	got := declaredNames(cfg, filepath.Join(dir, "demo.spec"), sources)
	want := []string{"demo.tar.gz", "fix.patch", "demo.spec", ".pkgsync.yaml"}
	if len(got) != len(want) {
		t.Fatalf("declaredNames = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("declaredNames[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRenderReport(t *testing.T) {
	report := &reconcile.Report{}
	report.Actions = []reconcile.Action{
		{Op: reconcile.OpTrack, Name: "fix.patch"},
		{Op: reconcile.OpManifestAdd, Name: "demo.tar.gz"},
		{Op: reconcile.OpUpload, Name: "demo.tar.gz"},
	}
	report.Warnings = []string{"b.tar.gz: remote check was inconclusive"}

	var out bytes.Buffer
	renderReport(&out, report, true)

	text := out.String()
	for _, want := range []string{"dry run", "fix.patch", "demo.tar.gz", "inconclusive"} {
		if !strings.Contains(text, want) {
			t.Errorf("report output missing %q:\n%s", want, text)
		}
	}
}

func TestRenderReport_Empty(t *testing.T) {
	var out bytes.Buffer
	renderReport(&out, &reconcile.Report{}, false)
	if !strings.Contains(out.String(), "nothing to do") {
		t.Errorf("empty report output = %q", out.String())
	}
}

func TestSetupSignalHandler(t *testing.T) {
	ctx, cancel := setupSignalHandler()
	if ctx == nil {
		t.Fatal("setupSignalHandler returned nil context")
	}

	cancel()

	<-ctx.Done()
	if err := ctx.Err(); err == nil {
		t.Fatal("expected context error after cancel, got nil")
	}
}

func TestVersionCmd(t *testing.T) {
	// versionCmd.Run simply prints version info; should not panic.
	versionCmd.Run(versionCmd, []string{})
}
