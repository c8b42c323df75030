// Package reconcile converges three places a package project keeps its
// sources: the git working tree, the local manifest, and the remote
// blob store. One pass classifies every declared source, routes text
// files into version control and binary files into the manifest, and
// returns the set of blobs that still need uploading.
package reconcile

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/example/pkgsync/internal/classify"
	"github.com/example/pkgsync/internal/config"
	"github.com/example/pkgsync/internal/digest"
	"github.com/example/pkgsync/internal/manifest"
	"github.com/example/pkgsync/internal/store"
	"github.com/example/pkgsync/internal/vcs"
)

// Engine orchestrates one reconciliation pass. Each file is handled
// independently; per-file failures land in the report while structural
// failures (corrupt manifest, unreadable index) abort the run before
// anything is mutated.
type Engine struct {
	cfg    *config.Config
	vcs    vcs.Tracker
	oracle store.Checker
	logger *slog.Logger
	dryRun bool
}

// NewEngine creates a reconciliation engine. With dryRun set it decides
// and reports every action but mutates nothing.
func NewEngine(cfg *config.Config, tracker vcs.Tracker, oracle store.Checker, logger *slog.Logger, dryRun bool) *Engine {
	return &Engine{
		cfg:    cfg,
		vcs:    tracker,
		oracle: oracle,
		logger: logger,
		dryRun: dryRun,
	}
}

// Reconcile runs the pass over the declared source names. The order of
// phases matters: manifest pruning feeds the pending resolution, which
// feeds new-source classification, and the manifest must be persisted
// before stale tracked files are swept.
func (e *Engine) Reconcile(ctx context.Context, declared []string) (*Report, error) {
	m, err := manifest.Load(e.cfg.ManifestPath())
	if err != nil {
		return nil, err
	}

	tracked, err := e.vcs.Tracked()
	if err != nil {
		return nil, err
	}

	report := &Report{}
	inDeclared := make(map[string]bool, len(declared))
	for _, name := range declared {
		inDeclared[name] = true
	}

	// Phase 1: prune manifest entries whose name is no longer declared.
	for _, name := range m.Names() {
		if !inDeclared[name] {
			delete(m, name)
			report.record(OpManifestPrune, name)
			e.logger.Info("removed from manifest", "file", name)
		}
	}

	// Phase 2: resolve the entries that survived pruning.
	for _, name := range m.Names() {
		e.resolvePending(ctx, report, m, name)
	}

	// Phase 3: classify and process newly-declared sources.
	for _, name := range declared {
		if _, ok := m[name]; ok {
			continue
		}
		e.processDeclared(ctx, report, m, tracked, name)
	}

	// Phase 4: persist the manifest, then make sure the manifest file
	// itself is under version control.
	if !e.dryRun {
		if err := m.Save(e.cfg.ManifestPath()); err != nil {
			return nil, err
		}
		// re-stage so the index always holds the just-saved content
		if err := e.vcs.Add(e.cfg.Paths.Manifest); err != nil {
			report.errorf("%s: %v", e.cfg.Paths.Manifest, err)
		}
	}
	if !tracked[e.cfg.Paths.Manifest] {
		report.record(OpTrack, e.cfg.Paths.Manifest)
	}

	// Phase 5: sweep tracked files against the effective source set.
	effective := inDeclared
	effective[e.cfg.Paths.Manifest] = true
	e.sweepTracked(report, m, tracked, effective)

	e.logger.Info("reconciliation complete",
		"actions", len(report.Actions),
		"uploads", len(report.Uploads),
		"warnings", len(report.Warnings),
		"errors", len(report.Errors),
		"dry_run", e.dryRun)
	return report, nil
}

// resolvePending handles a name that is declared and already in the
// manifest. The file is re-classified when present on disk, so a source
// edited from binary down to plain text migrates back into version
// control instead of being stuck behind its stale manifest entry.
func (e *Engine) resolvePending(ctx context.Context, report *Report, m manifest.Manifest, name string) {
	path := e.filePath(name)

	onDisk := true
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			report.errorf("%s: %v", name, err)
			return
		}
		onDisk = false
	}

	if onDisk {
		kind, err := classify.File(path)
		if err != nil {
			report.errorf("%s: %v", name, err)
			return
		}
		if kind == classify.Text {
			// Reclassified; phase 3 picks it up as a plain text source.
			delete(m, name)
			report.record(OpManifestPrune, name)
			e.logger.Info("reclassified as text", "file", name)
			return
		}

		d, err := digest.Sum(path)
		if err != nil {
			report.errorf("%s: %v", name, err)
			return
		}
		if d != m[name] {
			m[name] = d
			report.record(OpManifestAdd, name)
			e.logger.Info("content changed, manifest digest refreshed", "file", name)
		}
	}

	e.resolveRemote(ctx, report, name, m[name], onDisk)
}

// processDeclared handles a declared name with no manifest entry.
func (e *Engine) processDeclared(ctx context.Context, report *Report, m manifest.Manifest, tracked map[string]bool, name string) {
	if !fs.ValidPath(name) || name == "." {
		report.errorf("%s: not a valid project-relative path", name)
		return
	}

	path := e.filePath(name)
	kind, err := classify.File(path)
	if errors.Is(err, fs.ErrNotExist) {
		report.errorf("%s: no such file", name)
		return
	}
	if err != nil {
		report.errorf("%s: %v", name, err)
		return
	}

	if kind == classify.Text {
		if tracked[name] {
			return
		}
		if !e.dryRun {
			if err := e.vcs.Add(name); err != nil {
				report.errorf("%s: %v", name, err)
				return
			}
		}
		report.record(OpTrack, name)
		e.logger.Info("added to version control", "file", name)
		return
	}

	d, err := digest.Sum(path)
	if err != nil {
		report.errorf("%s: %v", name, err)
		return
	}
	m[name] = d
	report.record(OpManifestAdd, name)
	e.logger.Info("added to manifest", "file", name, "digest", d)

	e.resolveRemote(ctx, report, name, d, true)
}

// resolveRemote asks the oracle about one digest and queues an upload
// when needed. An inconclusive answer is never treated as present or
// absent: it is always surfaced, and the configured policy decides
// whether to queue anyway.
func (e *Engine) resolveRemote(ctx context.Context, report *Report, name, dig string, onDisk bool) {
	res, err := e.oracle.Exists(ctx, dig)
	switch res {
	case store.Present:
		// converged
	case store.Absent:
		if onDisk {
			report.enqueue(name)
		} else {
			report.warnf("%s: blob %s is missing both locally and remotely", name, dig)
		}
	default:
		if err != nil {
			report.warnf("%s: remote check failed: %v", name, err)
		} else {
			report.warnf("%s: remote check was inconclusive", name)
		}
		e.logger.Warn("remote existence unknown", "file", name, "digest", dig, "error", err)
		if e.cfg.Sync.OnUnknown == config.UnknownUpload && onDisk {
			report.enqueue(name)
		}
	}
}

// sweepTracked removes tracked files that no longer belong in version
// control: manifest-backed binaries leave the index but stay on disk,
// files that are not declared at all leave both.
func (e *Engine) sweepTracked(report *Report, m manifest.Manifest, tracked map[string]bool, effective map[string]bool) {
	for _, name := range sortedNames(tracked) {
		if effective[name] {
			if _, ok := m[name]; !ok {
				continue
			}
			if !e.dryRun {
				if err := e.vcs.Forget(name); err != nil {
					report.errorf("%s: %v", name, err)
					continue
				}
			}
			report.record(OpForget, name)
			e.logger.Info("binary source removed from index, local copy kept", "file", name)
			continue
		}

		if !e.dryRun {
			if err := e.vcs.Remove(name); err != nil {
				report.errorf("%s: %v", name, err)
				continue
			}
		}
		report.record(OpRemove, name)
		e.logger.Info("stale file removed from version control and working tree", "file", name)
	}
}

func (e *Engine) filePath(name string) string {
	return filepath.Join(e.cfg.ProjectDir, filepath.FromSlash(name))
}

func sortedNames(set map[string]bool) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
