// Package manifest persists the mapping from declared source file names
// to content digests for one project. Every entry is expected to exist
// in the remote blob store eventually; text files never get an entry.
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/example/pkgsync/internal/digest"
)

// ErrCorrupt marks a manifest that exists but cannot be parsed. Callers
// must abort before mutating anything.
var ErrCorrupt = errors.New("manifest is corrupt")

// Manifest maps a relative source file name to its content digest.
type Manifest map[string]string

// Load reads the manifest at path. A missing file means a fresh project
// and yields an empty manifest.
func Load(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Manifest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	m := make(Manifest, len(raw))
	for name, d := range raw {
		if !digest.Valid(d) {
			return nil, fmt.Errorf("%w: entry %q has malformed digest %q", ErrCorrupt, name, d)
		}
		m[name] = d
	}
	return m, nil
}

// Save serializes the manifest deterministically and writes it with a
// temp-file-then-rename so a crash mid-write never corrupts the
// previous manifest.
func (m Manifest) Save(path string) error {
	data, err := m.marshal()
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".pkgsync-sources-*")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}

// Names returns all entry names in sorted order.
func (m Manifest) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// marshal builds the YAML document with keys in sorted order so repeated
// saves of equal content produce byte-identical files.
func (m Manifest) marshal() ([]byte, error) {
	doc := yaml.Node{Kind: yaml.MappingNode}
	for _, name := range m.Names() {
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: name},
			&yaml.Node{Kind: yaml.ScalarNode, Value: m[name]},
		)
	}
	return yaml.Marshal(&doc)
}
