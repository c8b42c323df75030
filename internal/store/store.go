// Package store talks to the remote content-addressable blob store that
// hosts binary sources outside version control.
package store

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Existence is the tri-state result of a remote blob check. Unknown
// means the check itself failed; it must never be silently folded into
// Present or Absent.
type Existence int

const (
	Unknown Existence = iota
	Present
	Absent
)

func (e Existence) String() string {
	switch e {
	case Present:
		return "present"
	case Absent:
		return "absent"
	default:
		return "unknown"
	}
}

// Checker is the read side of the store used by the reconciliation
// engine to decide what needs uploading.
type Checker interface {
	// Exists reports whether a blob with the given digest is in the
	// store. When the result is Unknown the returned error carries the
	// cause and the caller must surface it as a warning.
	Exists(ctx context.Context, digest string) (Existence, error)
}

// Uploader pushes local files into the store.
type Uploader interface {
	Upload(ctx context.Context, name, digest, path string) error
}

// Client implements Checker and Uploader against an HTTP lookaside
// store. Blobs live at <base>/<digest[:2]>/<digest>; uploads are
// multipart POSTs to the base URL.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a store client. token may be empty; a nil httpClient gets
// a default with a bounded timeout so a hanging check resolves to
// Unknown instead of blocking the run.
func New(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
	}
}

// BlobURL derives the store location of a digest.
func (c *Client) BlobURL(digest string) string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, digest[:2], digest)
}

// Exists issues a single HEAD request for the digest. A success status
// maps to Present, 404 to Absent, everything else to Unknown.
func (c *Client) Exists(ctx context.Context, digest string) (Existence, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.BlobURL(digest), nil)
	if err != nil {
		return Unknown, fmt.Errorf("existence check for %s: %w", digest, err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return Unknown, fmt.Errorf("existence check for %s: %w", digest, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return Present, nil
	case resp.StatusCode == http.StatusNotFound:
		return Absent, nil
	default:
		return Unknown, fmt.Errorf("existence check for %s: unexpected status %s", digest, resp.Status)
	}
}

// Upload streams the file at path into the store as a multipart POST
// carrying the file name and its digest.
func (c *Client) Upload(ctx context.Context, name, digest, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		if err := mw.WriteField("digest", digest); err != nil {
			pw.CloseWithError(err)
			return
		}
		part, err := mw.CreateFormFile("file", name)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, f); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/", pr)
	if err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("upload %s: unexpected status %s", name, resp.Status)
	}
	return nil
}

// Download fetches the blob with the given digest into dest, writing
// through a temp file so an interrupted transfer leaves nothing behind.
func (c *Client) Download(ctx context.Context, digest, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BlobURL(digest), nil)
	if err != nil {
		return fmt.Errorf("download %s: %w", digest, err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", digest, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: unexpected status %s", digest, resp.Status)
	}

	return writeAtomic(dest, resp.Body)
}

// FetchURL downloads an upstream source that is not hosted in the
// store, e.g. the original tarball location declared in the spec file.
func (c *Client) FetchURL(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}

	return writeAtomic(dest, resp.Body)
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func writeAtomic(dest string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".pkgsync-dl-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", dest, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, dest)
}

// TokenFromFile reads a bearer token, trimming trailing whitespace. An
// empty path means no authentication and yields an empty token.
func TokenFromFile(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
