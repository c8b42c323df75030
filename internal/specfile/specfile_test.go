package specfile

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	spec := `
# demo package
Name: demo
Version: 1.2

Source0: https://example.org/releases/demo-1.2.tar.gz
Source1: local-data.bin
Patch0: fix-build.patch
patch1: fix-tests.patch
Source2: https://example.org/releases/demo-1.2.tar.gz

%build
make
`
	got, err := Parse(strings.NewReader(spec))
	if err != nil {
		t.Fatal(err)
	}

	want := []Source{
		{Name: "demo-1.2.tar.gz", URL: "https://example.org/releases/demo-1.2.tar.gz"},
		{Name: "local-data.bin"},
		{Name: "fix-build.patch"},
		{Name: "fix-tests.patch"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Parse() = %v, want %v", got, want)
	}

	if names := Names(got); !reflect.DeepEqual(names, []string{
		"demo-1.2.tar.gz", "local-data.bin", "fix-build.patch", "fix-tests.patch",
	}) {
		t.Errorf("Names() = %v", names)
	}
}

func TestParseRejectsBareURLDirectory(t *testing.T) {
	_, err := Parse(strings.NewReader("Source0: https://example.org/\n"))
	if err == nil {
		t.Error("expected error for URL without a file name")
	}
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	if _, err := Find(dir); err == nil {
		t.Error("expected error for missing spec file")
	}

	specPath := filepath.Join(dir, "demo.spec")
	if err := os.WriteFile(specPath, []byte("Name: demo\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Find(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got != specPath {
		t.Errorf("Find() = %s, want %s", got, specPath)
	}

	if err := os.WriteFile(filepath.Join(dir, "other.spec"), []byte("Name: other\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Find(dir); err == nil {
		t.Error("expected error for ambiguous spec files")
	}
}
