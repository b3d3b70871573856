package preprocess

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JaimeStill/specimen/pkg/formatting"
)

const (
	defaultMaxBytes     = 20 << 20
	defaultMaxPixels    = 50_000_000
	defaultFetchTimeout = 15 * time.Second
)

// Source resolves image URIs to raw bytes. Supported forms are plain file
// paths, file:// URIs, http(s):// URLs, and base64 data: URIs.
//
// File paths resolve inside Root and may not escape it; an empty Root
// disables file access. Remote URLs are only fetched when AllowRemote is set.
type Source struct {
	Client      *http.Client  // nil = http.DefaultClient
	Root        string        // directory file paths are confined to
	AllowRemote bool          // permit http(s) fetches
	MaxBytes    int64         // default: 20MB
	MaxPixels   int64         // decoded width*height limit (default: 50M)
	Timeout     time.Duration // per-download timeout (default: 15s)
}

func (s *Source) client() *http.Client {
	if s.Client == nil {
		return http.DefaultClient
	}
	return s.Client
}

func (s *Source) maxBytes() int64 {
	if s.MaxBytes <= 0 {
		return defaultMaxBytes
	}
	return s.MaxBytes
}

func (s *Source) maxPixels() int64 {
	if s.MaxPixels <= 0 {
		return defaultMaxPixels
	}
	return s.MaxPixels
}

func (s *Source) timeout() time.Duration {
	if s.Timeout <= 0 {
		return defaultFetchTimeout
	}
	return s.Timeout
}

// Read returns the bytes referenced by uri. Every failure wraps ErrImageRead.
func (s *Source) Read(ctx context.Context, uri string) ([]byte, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, fmt.Errorf("%w: empty uri", ErrImageRead)
	}

	var (
		data []byte
		err  error
	)
	switch {
	case strings.HasPrefix(uri, "data:"):
		data, err = decodeDataURI(uri)
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		data, err = s.fetch(ctx, uri)
	case strings.HasPrefix(uri, "file://"):
		var u *url.URL
		if u, err = url.Parse(uri); err == nil {
			data, err = s.readFile(u.Path)
		}
	default:
		data, err = s.readFile(uri)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImageRead, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image data", ErrImageRead)
	}
	return data, nil
}

func (s *Source) readFile(path string) ([]byte, error) {
	if s.Root == "" {
		return nil, fmt.Errorf("local file access is disabled")
	}

	name, err := s.relative(path)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenInRoot(s.Root, name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return readLimited(f, s.maxBytes())
}

// relative maps path to a name under Root. Absolute paths must already
// point inside Root; os.OpenInRoot rejects anything that escapes.
func (s *Source) relative(path string) (string, error) {
	if !filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}

	root, err := filepath.Abs(s.Root)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(root, filepath.Clean(path))
	if err != nil || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("path %s is outside the image root", path)
	}
	return rel, nil
}

func (s *Source) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if !s.AllowRemote {
		return nil, fmt.Errorf("remote images are disabled")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	if idx := strings.IndexByte(ct, ';'); idx >= 0 {
		ct = strings.TrimSpace(ct[:idx])
	}
	if !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("unexpected content type %q", ct)
	}

	return readLimited(resp.Body, s.maxBytes())
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("image exceeds %s", formatting.FormatBytes(limit, 0))
	}
	return data, nil
}

// decodeDataURI decodes "data:<mime>;base64,<payload>".
func decodeDataURI(uri string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("malformed data uri")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("data uri must be base64 encoded")
	}
	return base64.StdEncoding.DecodeString(payload)
}
