package reconcile

import "fmt"

// Op identifies one reconciliation action.
type Op string

const (
	// OpTrack adds a file to version control.
	OpTrack Op = "track"
	// OpForget drops a file from the index, keeping the local copy.
	OpForget Op = "forget"
	// OpRemove drops a file from the index and the working tree.
	OpRemove Op = "remove"
	// OpManifestAdd records or refreshes a manifest entry.
	OpManifestAdd Op = "manifest-add"
	// OpManifestPrune drops a manifest entry.
	OpManifestPrune Op = "manifest-prune"
	// OpUpload queues a file for upload to the remote store.
	OpUpload Op = "upload"
	// OpLocalDelete deletes the local copy of a binary confirmed present
	// remotely (full-tree mode only).
	OpLocalDelete Op = "local-delete"
)

// Action is one applied mutation, or one planned mutation in dry-run
// mode.
type Action struct {
	Op   Op
	Name string
}

// Report accumulates the outcome of a single reconciliation pass. It is
// only valid for the run that produced it.
type Report struct {
	// Actions in the order they were decided.
	Actions []Action
	// Uploads is the queue of file names that need pushing to the
	// remote store, in decision order without duplicates.
	Uploads []string
	// Warnings are conditions the caller must see but that do not stop
	// the run, e.g. inconclusive remote checks.
	Warnings []string
	// Errors are per-file failures; they never abort processing of the
	// remaining files.
	Errors []string
}

// Empty reports whether the pass decided no mutations at all.
func (r *Report) Empty() bool {
	return len(r.Actions) == 0
}

func (r *Report) record(op Op, name string) {
	r.Actions = append(r.Actions, Action{Op: op, Name: name})
}

func (r *Report) enqueue(name string) {
	for _, queued := range r.Uploads {
		if queued == name {
			return
		}
	}
	r.Uploads = append(r.Uploads, name)
	r.record(OpUpload, name)
}

func (r *Report) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Report) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}
