// Package specfile extracts the declared source list from a package
// spec file. Only the Source/Patch tags matter to pkgsync; everything
// else in the file belongs to the build tooling.
package specfile

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Source is one declared source file. URL is set when the tag value is
// an upstream location; Name is always the bare file name.
type Source struct {
	Name string
	URL  string
}

var tagPattern = regexp.MustCompile(`(?i)^(Source|Patch)([0-9]*)\s*:\s*(\S+)\s*$`)

// Parse reads declared sources in declaration order. Duplicate names
// keep their first occurrence; comment and unrelated lines are skipped.
func Parse(r io.Reader) ([]Source, error) {
	var sources []Source
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m := tagPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		value := m[3]
		src := Source{Name: value}
		if strings.Contains(value, "://") {
			u, err := url.Parse(value)
			if err != nil {
				return nil, fmt.Errorf("malformed source url %q: %w", value, err)
			}
			src = Source{Name: path.Base(u.Path), URL: value}
		}
		if src.Name == "" || src.Name == "." || src.Name == "/" {
			return nil, fmt.Errorf("source tag %q has no usable file name", value)
		}

		if !seen[src.Name] {
			seen[src.Name] = true
			sources = append(sources, src)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read spec: %w", err)
	}
	return sources, nil
}

// Load parses the spec file at path.
func Load(path string) ([]Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open spec file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	return Parse(f)
}

// Find locates the project's spec file when the configuration does not
// name one: exactly one *.spec file must exist in dir.
func Find(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.spec"))
	if err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no spec file found in %s", dir)
	case 1:
		return matches[0], nil
	default:
		sort.Strings(matches)
		return "", fmt.Errorf("multiple spec files in %s: %s", dir, strings.Join(matches, ", "))
	}
}

// Names returns the file names of sources, order preserved.
func Names(sources []Source) []string {
	names := make([]string, 0, len(sources))
	for _, s := range sources {
		names = append(names, s.Name)
	}
	return names
}
