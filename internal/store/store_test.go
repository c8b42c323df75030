package store

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/example/pkgsync/internal/store/storetest"
)

func sha1Hex(b []byte) string {
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])
}

func TestExists(t *testing.T) {
	srv := storetest.New()
	defer srv.Close()

	content := []byte("archive bytes")
	digest := sha1Hex(content)
	srv.Put(digest, content)

	client := New(srv.URL(), "", nil)

	got, err := client.Exists(context.Background(), digest)
	if err != nil || got != Present {
		t.Errorf("Exists(seeded) = %s, %v; want present", got, err)
	}

	got, err = client.Exists(context.Background(), sha1Hex([]byte("other")))
	if err != nil || got != Absent {
		t.Errorf("Exists(missing) = %s, %v; want absent", got, err)
	}
}

func TestExistsUnknown(t *testing.T) {
	srv := storetest.New()
	defer srv.Close()
	srv.FailWith(http.StatusInternalServerError)

	client := New(srv.URL(), "", nil)
	got, err := client.Exists(context.Background(), sha1Hex([]byte("x")))
	if got != Unknown {
		t.Errorf("Exists() = %s, want unknown", got)
	}
	if err == nil {
		t.Error("unknown result must carry the cause")
	}

	// connection errors map to unknown too
	srv.Close()
	got, err = client.Exists(context.Background(), sha1Hex([]byte("x")))
	if got != Unknown || err == nil {
		t.Errorf("Exists(closed server) = %s, %v; want unknown with error", got, err)
	}
}

func TestUploadThenExists(t *testing.T) {
	srv := storetest.New()
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "b.tar.gz")
	content := []byte{0x1f, 0x8b, 0x00, 0x01, 0x02}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	digest := sha1Hex(content)

	client := New(srv.URL(), "", nil)
	if err := client.Upload(context.Background(), "b.tar.gz", digest, path); err != nil {
		t.Fatal(err)
	}
	if !srv.Has(digest) {
		t.Error("blob missing after upload")
	}

	got, err := client.Exists(context.Background(), digest)
	if err != nil || got != Present {
		t.Errorf("Exists(after upload) = %s, %v", got, err)
	}
}

func TestUploadRejectsDigestMismatch(t *testing.T) {
	srv := storetest.New()
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "b.bin")
	if err := os.WriteFile(path, []byte("real content"), 0o644); err != nil {
		t.Fatal(err)
	}

	client := New(srv.URL(), "", nil)
	err := client.Upload(context.Background(), "b.bin", sha1Hex([]byte("claimed other")), path)
	if err == nil {
		t.Error("expected upload with wrong digest to fail")
	}
}

func TestDownload(t *testing.T) {
	srv := storetest.New()
	defer srv.Close()

	content := []byte("stored blob")
	digest := sha1Hex(content)
	srv.Put(digest, content)

	dest := filepath.Join(t.TempDir(), "restored.bin")
	client := New(srv.URL(), "", nil)
	if err := client.Download(context.Background(), digest, dest); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Errorf("downloaded %q, want %q", got, content)
	}

	err = client.Download(context.Background(), sha1Hex([]byte("missing")), dest)
	if err == nil {
		t.Error("expected error for missing blob")
	}
}

func TestAuthorizeHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := New(srv.URL, "sekrit", nil)
	if _, err := client.Exists(context.Background(), sha1Hex([]byte("x"))); err != nil {
		t.Fatal(err)
	}
	if gotAuth != "Bearer sekrit" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestTokenFromFile(t *testing.T) {
	token, err := TokenFromFile("")
	if err != nil || token != "" {
		t.Errorf("TokenFromFile(\"\") = %q, %v", token, err)
	}

	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("abc123\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	token, err = TokenFromFile(path)
	if err != nil || token != "abc123" {
		t.Errorf("TokenFromFile() = %q, %v", token, err)
	}

	if _, err := TokenFromFile(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing token file")
	}
}
