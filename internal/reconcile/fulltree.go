package reconcile

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/pkgsync/internal/classify"
	"github.com/example/pkgsync/internal/config"
	"github.com/example/pkgsync/internal/digest"
	"github.com/example/pkgsync/internal/manifest"
	"github.com/example/pkgsync/internal/store"
)

// Migrate is the full-tree variant of the pass: it runs over every file
// in the working tree instead of the declared source list, records each
// binary in the manifest, pushes it through the uploader, and deletes
// the local copy of every binary confirmed present remotely. The result
// is a text-only tree backed entirely by the remote store.
//
// Local copies are deleted only after the manifest recording them has
// been persisted.
func (e *Engine) Migrate(ctx context.Context, uploader store.Uploader) (*Report, error) {
	m, err := manifest.Load(e.cfg.ManifestPath())
	if err != nil {
		return nil, err
	}

	tracked, err := e.vcs.Tracked()
	if err != nil {
		return nil, err
	}

	files, err := e.workingTreeFiles()
	if err != nil {
		return nil, err
	}

	report := &Report{}
	var offload []string // binaries confirmed remote, to delete locally

	for _, name := range files {
		path := e.filePath(name)

		kind, err := classify.File(path)
		if err != nil {
			report.errorf("%s: %v", name, err)
			continue
		}

		if kind == classify.Text {
			if tracked[name] {
				continue
			}
			if !e.dryRun {
				if err := e.vcs.Add(name); err != nil {
					report.errorf("%s: %v", name, err)
					continue
				}
			}
			report.record(OpTrack, name)
			continue
		}

		d, err := digest.Sum(path)
		if err != nil {
			report.errorf("%s: %v", name, err)
			continue
		}
		if m[name] != d {
			m[name] = d
			report.record(OpManifestAdd, name)
		}

		res, err := e.oracle.Exists(ctx, d)
		switch res {
		case store.Present:
			offload = append(offload, name)
		case store.Absent:
			report.enqueue(name)
			if e.dryRun {
				offload = append(offload, name)
				continue
			}
			if err := uploader.Upload(ctx, name, d, path); err != nil {
				report.errorf("upload %s: %v", name, err)
				continue
			}
			e.logger.Info("uploaded", "file", name, "digest", d)
			offload = append(offload, name)
		default:
			if err != nil {
				report.warnf("%s: remote check failed: %v", name, err)
			} else {
				report.warnf("%s: remote check was inconclusive", name)
			}
			if e.cfg.Sync.OnUnknown != config.UnknownUpload {
				continue
			}
			report.enqueue(name)
			if e.dryRun {
				continue
			}
			if err := uploader.Upload(ctx, name, d, path); err != nil {
				report.errorf("upload %s: %v", name, err)
				continue
			}
			e.logger.Info("uploaded", "file", name, "digest", d)
			offload = append(offload, name)
		}
	}

	if !e.dryRun {
		if err := m.Save(e.cfg.ManifestPath()); err != nil {
			return nil, err
		}
		if err := e.vcs.Add(e.cfg.Paths.Manifest); err != nil {
			report.errorf("%s: %v", e.cfg.Paths.Manifest, err)
		}
	}
	if !tracked[e.cfg.Paths.Manifest] {
		report.record(OpTrack, e.cfg.Paths.Manifest)
	}

	for _, name := range offload {
		if !e.dryRun {
			if tracked[name] {
				if err := e.vcs.Forget(name); err != nil {
					report.errorf("%s: %v", name, err)
					continue
				}
				report.record(OpForget, name)
			}
			if err := os.Remove(e.filePath(name)); err != nil {
				report.errorf("%s: %v", name, err)
				continue
			}
		} else if tracked[name] {
			report.record(OpForget, name)
		}
		report.record(OpLocalDelete, name)
		e.logger.Info("local binary offloaded to remote store", "file", name)
	}

	e.logger.Info("migration complete",
		"files", len(files),
		"offloaded", len(offload),
		"warnings", len(report.Warnings),
		"errors", len(report.Errors),
		"dry_run", e.dryRun)
	return report, nil
}

// workingTreeFiles lists every regular file under the project directory
// as a slash-separated relative name. Hidden files and directories
// (.git included) and the manifest itself are skipped.
func (e *Engine) workingTreeFiles() ([]string, error) {
	var files []string

	root := e.cfg.ProjectDir
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path != root && strings.HasPrefix(info.Name(), ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if name == e.cfg.Paths.Manifest {
			return nil
		}
		files = append(files, name)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
