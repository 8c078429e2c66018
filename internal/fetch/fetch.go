// Package fetch loads note sources: local files, note directories, web
// pages and standard input.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"
)

// Stdin names standard input as a source.
const Stdin = "-"

const (
	MaxFileSizeBytes   = 10 << 20 // files and stdin
	MaxHTTPSizeBytes   = 20 << 20 // pages, which may omit Content-Length
	HTTPRequestTimeout = 30 * time.Second
)

// NoteExtensions are the file types picked up when a source is a directory.
var NoteExtensions = []string{".md", ".markdown", ".txt", ".html", ".htm"}

var httpClient = &http.Client{Timeout: HTTPRequestTimeout}

// capped fails the read that would take a source past its size limit.
type capped struct {
	io.ReadCloser
	left  int64
	limit int64
	name  string
}

func (c *capped) Read(p []byte) (int, error) {
	if c.left <= 0 {
		return 0, fmt.Errorf("%s is larger than %d bytes", c.name, c.limit)
	}
	if int64(len(p)) > c.left {
		p = p[:c.left]
	}
	n, err := c.ReadCloser.Read(p)
	c.left -= int64(n)
	return n, err
}

func capReader(rc io.ReadCloser, limit int64, name string) io.ReadCloser {
	return &capped{ReadCloser: rc, left: limit, limit: limit, name: name}
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// GetContent opens one note source. "-" is standard input, http(s) URLs are
// fetched and anything else is a local file. The caller closes the reader.
func GetContent(ctx context.Context, source string) (io.ReadCloser, error) {
	switch {
	case source == Stdin:
		return capReader(os.Stdin, MaxFileSizeBytes, "stdin"), nil
	case isURL(source):
		return fetchURL(ctx, source)
	default:
		return fetchFile(ctx, source)
	}
}

func fetchURL(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for URL %q: %w", url, err)
	}
	req.Header.Set("User-Agent", "notecard/0.1")
	req.Header.Set("Accept", "text/markdown, text/plain;q=0.9, text/html;q=0.8")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL %q: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP request failed for URL %q: %s", url, resp.Status)
	}
	if resp.ContentLength > MaxHTTPSizeBytes {
		resp.Body.Close()
		return nil, fmt.Errorf("page %q is too large (%d bytes > %d bytes limit)", url, resp.ContentLength, MaxHTTPSizeBytes)
	}
	return capReader(resp.Body, MaxHTTPSizeBytes, url), nil
}

func fetchFile(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("file %q does not exist", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open file %q: %w", path, err)
	}

	info, err := f.Stat()
	switch {
	case err != nil:
		f.Close()
		return nil, fmt.Errorf("failed to access file %q: %w", path, err)
	case info.IsDir():
		f.Close()
		return nil, fmt.Errorf("%q is a directory", path)
	case info.Size() > MaxFileSizeBytes:
		f.Close()
		return nil, fmt.Errorf("file %q is too large (%d bytes > %d bytes limit)", path, info.Size(), MaxFileSizeBytes)
	}
	return f, nil
}

// ExpandSources replaces every directory among sources with the note files
// under it, in lexical order. Hidden directories are skipped. Other sources
// are returned as given; a missing file fails later, when it is read.
func ExpandSources(sources []string) ([]string, error) {
	var out []string
	for _, source := range sources {
		if source == Stdin || isURL(source) {
			out = append(out, source)
			continue
		}
		if info, err := os.Stat(source); err != nil || !info.IsDir() {
			out = append(out, source)
			continue
		}

		var files []string
		err := filepath.WalkDir(source, func(path string, d fs.DirEntry, err error) error {
			switch {
			case err != nil:
				return err
			case d.IsDir() && path != source && strings.HasPrefix(d.Name(), "."):
				return filepath.SkipDir
			case !d.IsDir() && slices.Contains(NoteExtensions, strings.ToLower(filepath.Ext(d.Name()))):
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list notes in %q: %w", source, err)
		}
		sort.Strings(files)
		out = append(out, files...)
	}
	return out, nil
}
