// Package assets resolves image references from deck documents to bytes and
// natural pixel dimensions - the measurements the positioning driver needs
// before it can lay anything out.
package assets

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Fetcher resolves an image reference (as written in the document) to its
// raw content.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// DirFetcher resolves references against the directory of the document being
// processed. References escaping the root are rejected.
type DirFetcher struct {
	Root string
}

func (f *DirFetcher) Fetch(_ context.Context, ref string) ([]byte, error) {
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" && u.Scheme != "file" {
		return nil, fmt.Errorf("remote reference %q not allowed", ref)
	}
	path := filepath.Join(f.Root, filepath.FromSlash(ref))
	if rel, err := filepath.Rel(f.Root, path); err != nil || strings.HasPrefix(rel, "..") {
		return nil, fmt.Errorf("reference %q escapes document root", ref)
	}
	return os.ReadFile(path)
}

// ZipFetcher resolves references against entries of an open zip archive,
// relative to the directory of the document entry being processed.
type ZipFetcher struct {
	Archive *zip.Reader
	Base    string
}

func (f *ZipFetcher) Fetch(_ context.Context, ref string) ([]byte, error) {
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" {
		return nil, fmt.Errorf("remote reference %q not allowed inside archive", ref)
	}
	name := path.Join(f.Base, path.Clean(ref))
	if strings.HasPrefix(name, "..") {
		return nil, fmt.Errorf("reference %q escapes archive", ref)
	}
	r, err := f.Archive.Open(name)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// WebFetcher resolves local references against the document root and
// http(s) references over the network with a bounded timeout.
type WebFetcher struct {
	Local   *DirFetcher
	Client  *http.Client
	MaxSize int64
}

// NewWebFetcher builds a fetcher rooted at dir with the given request timeout.
func NewWebFetcher(dir string, timeout time.Duration) *WebFetcher {
	return &WebFetcher{
		Local:   &DirFetcher{Root: dir},
		Client:  &http.Client{Timeout: timeout},
		MaxSize: 64 << 20,
	}
}

func (f *WebFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	u, err := url.Parse(ref)
	if err != nil || u.Scheme == "" || u.Scheme == "file" {
		return f.Local.Fetch(ctx, ref)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported reference scheme %q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %q: unexpected status %s", ref, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.MaxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > f.MaxSize {
		return nil, fmt.Errorf("fetching %q: response exceeds %d bytes", ref, f.MaxSize)
	}
	return data, nil
}
