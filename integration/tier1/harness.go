//go:build integration

package tier1

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/example/pkgsync/internal/config"
	"github.com/example/pkgsync/internal/reconcile"
	"github.com/example/pkgsync/internal/store"
	"github.com/example/pkgsync/internal/store/storetest"
	"github.com/example/pkgsync/internal/testutil"
	"github.com/example/pkgsync/internal/vcs"
	"github.com/go-git/go-git/v5"
)

// Harness wires the real pieces together: a git repository on disk, a
// fake lookaside store over real HTTP, and a store client pointed at
// it. Only the store's persistence is faked; everything else is the
// production code path.
type Harness struct {
	t      *testing.T
	Dir    string
	Repo   *git.Repository
	Server *storetest.Server
	Client *store.Client
	Cfg    *config.Config
	Logger *slog.Logger
}

// NewHarness scaffolds an empty project with an initialized repository
// and a running fake store. Cleanup is registered on t.
func NewHarness(t *testing.T) *Harness {
	t.Helper()

	dir := t.TempDir()
	repo := testutil.InitRepo(t, dir)

	server := storetest.New()
	t.Cleanup(server.Close)

	cfg := &config.Config{
		Remote:     config.RemoteConfig{BaseURL: server.URL(), TimeoutSeconds: 10},
		Paths:      config.PathsConfig{Manifest: "sources.yaml"},
		Sync:       config.SyncConfig{OnUnknown: config.UnknownUpload},
		ProjectDir: dir,
	}

	return &Harness{
		t:      t,
		Dir:    dir,
		Repo:   repo,
		Server: server,
		Client: store.New(server.URL(), "", nil),
		Cfg:    cfg,
		Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
	}
}

// Engine builds a reconciliation engine over a freshly opened
// repository handle, so each run sees the current index state.
func (h *Harness) Engine(dryRun bool) *reconcile.Engine {
	h.t.Helper()
	tracker, err := vcs.Open(h.Dir)
	if err != nil {
		h.t.Fatalf("open repository: %v", err)
	}
	return reconcile.NewEngine(h.Cfg, tracker, h.Client, h.Logger, dryRun)
}

// IndexNames snapshots the repository index.
func (h *Harness) IndexNames() map[string]bool {
	h.t.Helper()
	tracker, err := vcs.Open(h.Dir)
	if err != nil {
		h.t.Fatalf("open repository: %v", err)
	}
	names, err := tracker.Tracked()
	if err != nil {
		h.t.Fatalf("read index: %v", err)
	}
	return names
}

// FileExists reports whether a project-relative file is on disk.
func (h *Harness) FileExists(name string) bool {
	_, err := os.Stat(filepath.Join(h.Dir, filepath.FromSlash(name)))
	return err == nil
}
