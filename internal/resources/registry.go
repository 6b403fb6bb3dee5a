// Package resources maps the images and stylesheets referenced by content
// documents to opaque destinations, the way a reader front-end swaps book
// paths for URLs it can serve.
package resources

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	epub "github.com/simp-lee/epubkit"
)

// Entry is one registered resource.
type Entry struct {
	Path      string `json:"path"`
	Dest      string `json:"dest"`
	MediaType string `json:"media_type"`
	Size      int    `json:"size"`

	// File is the extracted copy, or "" when extraction is disabled.
	File string `json:"file,omitempty"`
}

// Source supplies resource bytes by archive-relative path. *epub.Book
// satisfies it.
type Source interface {
	ReadBinary(name string) ([]byte, error)
}

// Registry hands out one destination per archive path. It is not safe for
// concurrent use.
type Registry struct {
	prefix string
	dir    string
	newID  func() string

	byPath map[string]int
	order  []Entry
}

// New creates a Registry. Destinations are prefix followed by a random
// UUID. When extractDir is not empty every registered resource is also
// written there.
func New(prefix, extractDir string) *Registry {
	return &Registry{
		prefix: prefix,
		dir:    extractDir,
		newID:  uuid.NewString,
		byPath: make(map[string]int),
	}
}

// Lookup returns the entry registered for p.
func (r *Registry) Lookup(p string) (Entry, bool) {
	i, ok := r.byPath[p]
	if !ok {
		return Entry{}, false
	}
	return r.order[i], true
}

// Add registers data under p and returns its entry. A path registered
// earlier keeps its first destination.
func (r *Registry) Add(p string, data []byte) (Entry, error) {
	if e, ok := r.Lookup(p); ok {
		return e, nil
	}
	id := r.newID()
	e := Entry{
		Path:      p,
		Dest:      r.prefix + id,
		MediaType: MediaType(p),
		Size:      len(data),
	}
	if r.dir != "" {
		file, err := r.extract(id, p, data)
		if err != nil {
			return Entry{}, err
		}
		e.File = file
	}
	r.byPath[p] = len(r.order)
	r.order = append(r.order, e)
	return e, nil
}

func (r *Registry) extract(id, p string, data []byte) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create extract directory %q: %w", r.dir, err)
	}
	file := filepath.Join(r.dir, id+strings.ToLower(path.Ext(p)))
	if err := os.WriteFile(file, data, 0o644); err != nil {
		return "", fmt.Errorf("extract %s: %w", p, err)
	}
	return file, nil
}

// Entries returns the registered resources in registration order.
func (r *Registry) Entries() []Entry {
	return append([]Entry(nil), r.order...)
}

// Rewrite points every resource reference in c at a registered
// destination, reading unseen resources from src. It returns the number of
// references rewritten.
func (r *Registry) Rewrite(src Source, c *epub.Content) (int, error) {
	n := 0
	for _, p := range c.Resources() {
		e, ok := r.Lookup(p)
		if !ok {
			data, err := src.ReadBinary(p)
			if err != nil {
				return n, err
			}
			if e, err = r.Add(p, data); err != nil {
				return n, err
			}
		}
		// Each call replaces one occurrence; duplicates in paths cover the rest.
		if c.RewriteResource(p, e.Dest) {
			n++
		}
	}
	return n, nil
}

var mediaTypes = map[string]string{
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".webp":  "image/webp",
	".svg":   "image/svg+xml",
	".css":   "text/css",
	".xhtml": "application/xhtml+xml",
	".html":  "text/html",
	".ttf":   "font/ttf",
	".otf":   "font/otf",
	".woff":  "font/woff",
	".woff2": "font/woff2",
}

// MediaType guesses the media type of p from its extension.
func MediaType(p string) string {
	if mt, ok := mediaTypes[strings.ToLower(path.Ext(p))]; ok {
		return mt
	}
	return "application/octet-stream"
}
