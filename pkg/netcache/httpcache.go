// Package netcache keeps local copies of remote entry logs and template
// descriptors so that reports can be rendered from http(s) sources, and
// re-rendered offline once a source has been fetched.
package netcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Cache is a persistent HTTP cache with ETag/Last-Modified revalidation.
type Cache struct {
	Dir    string
	Client *http.Client
	// Retries is the number of full fetch attempts for an uncached URL.
	Retries int
	// Backoff is the wait before the second attempt; it doubles after
	// each failure.
	Backoff time.Duration
	Logger  *slog.Logger
}

// New returns a Cache storing files in dir.
func New(dir string) *Cache {
	return &Cache{
		Dir:     dir,
		Client:  &http.Client{Timeout: 30 * time.Second},
		Retries: 3,
		Backoff: time.Second,
	}
}

// DefaultDir is the cache directory used when none is configured.
func DefaultDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "worklog")
	}
	return filepath.Join(os.TempDir(), "worklog-cache")
}

type meta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	DataFile     string    `json:"data_file"`
	Fetched      time.Time `json:"fetched"`
}

// IsRemote reports whether ref is an http or https URL.
func IsRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// Resolve returns a local path for ref. Local paths are returned unchanged;
// URLs are fetched through c.
func (c *Cache) Resolve(ctx context.Context, ref string) (string, error) {
	if !IsRemote(ref) {
		return ref, nil
	}
	path, _, err := c.Get(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", ref, err)
	}
	return path, nil
}

// Get fetches url into the cache and returns the local file path and
// whether the cached copy was reused. A cached copy is revalidated with a
// conditional request; if the server cannot be reached it is used as is.
func (c *Cache) Get(ctx context.Context, url string) (string, bool, error) {
	key := hash(url)
	mpath := filepath.Join(c.Dir, key+".json")
	m, ok := readMeta(mpath, url, c.Dir)
	if ok {
		path, fresh, err := c.revalidate(ctx, m, mpath)
		if err == nil {
			return path, fresh, nil
		}
		c.log().Warn("revalidation failed, using cached copy", "url", url, "error", err)
		return filepath.Join(c.Dir, m.DataFile), true, nil
	}

	backoff := c.Backoff
	var lastErr error
	for attempt := 0; attempt < max(c.Retries, 1); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", false, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		path, err := c.fetch(ctx, url, nil, key, mpath)
		if err == nil {
			return path, false, nil
		}
		lastErr = err
		c.log().Debug("fetch failed", "url", url, "attempt", attempt+1, "error", err)
	}
	return "", false, lastErr
}

func (c *Cache) revalidate(ctx context.Context, m meta, mpath string) (string, bool, error) {
	header := http.Header{}
	if m.ETag != "" {
		header.Set("If-None-Match", m.ETag)
	}
	if m.LastModified != "" {
		header.Set("If-Modified-Since", m.LastModified)
	}
	path, err := c.fetch(ctx, m.URL, header, hash(m.URL), mpath)
	if errors.Is(err, errNotModified) {
		return filepath.Join(c.Dir, m.DataFile), true, nil
	}
	return path, false, err
}

var errNotModified = errors.New("not modified")

func (c *Cache) fetch(ctx context.Context, url string, header http.Header, key, mpath string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	for k, vs := range header {
		req.Header[k] = vs
	}
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotModified {
		return "", errNotModified
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	dataFile := key + ".data"
	path := filepath.Join(c.Dir, dataFile)
	if err := streamToFile(resp.Body, path, 0o644); err != nil {
		return "", err
	}
	nm := meta{
		URL:          url,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		DataFile:     dataFile,
		Fetched:      time.Now().UTC(),
	}
	if err := writeMeta(mpath, nm); err != nil {
		return "", err
	}
	c.log().Debug("fetched", "url", url, "path", path)
	return path, nil
}

func (c *Cache) log() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func readMeta(mpath, url, dir string) (meta, bool) {
	b, err := os.ReadFile(mpath)
	if err != nil {
		return meta{}, false
	}
	var m meta
	if err := json.Unmarshal(b, &m); err != nil {
		return meta{}, false
	}
	if m.URL != url || m.DataFile == "" || !fileExists(filepath.Join(dir, m.DataFile)) {
		return meta{}, false
	}
	return m, true
}

// streamToFile writes r to dst through a temporary file so a failed
// download never replaces a good cached copy.
func streamToFile(r io.Reader, dst string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp := dst + ".part"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}

func writeMeta(path string, m meta) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}
