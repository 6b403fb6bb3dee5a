package epub

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/simp-lee/epubkit/xmldoc"
)

// resolveHost is the synthetic origin relative references are joined
// against. Only the path of the result is kept.
const resolveHost = "localhost"

// Content is a parsed XHTML content document. Resource references can be
// listed with Resources and redirected with RewriteResource; String
// reflects every rewrite made so far.
//
// Content is not safe for concurrent use.
type Content struct {
	path string
	doc  *xmldoc.Document
}

// newContent parses a content document fetched from the archive-relative
// path p.
func newContent(p string, data []byte) (*Content, error) {
	doc, err := xmldoc.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("epub: parse content %s: %w", p, err)
	}
	return &Content{path: p, doc: doc}, nil
}

// Path returns the archive-relative path the document was read from.
func (c *Content) Path() string { return c.path }

// Dir returns the directory of Path, or "" at the archive root.
func (c *Content) Dir() string {
	dir := path.Dir(c.path)
	if dir == "." {
		return ""
	}
	return dir
}

// Document exposes the parsed tree.
func (c *Content) Document() *xmldoc.Document { return c.doc }

// Resources lists the archive-relative paths referenced by <img src> and by
// <link type="text/css" href>, images first, each group in document order.
// References starting with "http" are external and skipped, as are
// references that are not valid URLs. Duplicates are kept.
func (c *Content) Resources() []string {
	var out []string
	for _, ref := range c.references() {
		if isExternal(ref) {
			continue
		}
		p, err := c.resolve(ref)
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out
}

// RewriteResource replaces the first reference that resolves to resolved
// with dest: the first matching <img src>, else the first matching
// <link href>. Only one attribute is changed. It reports whether a match
// was found.
func (c *Content) RewriteResource(resolved, dest string) bool {
	if c.rewriteFirst("img", "src", resolved, dest) {
		return true
	}
	return c.rewriteFirst("link", "href", resolved, dest)
}

func (c *Content) rewriteFirst(tag, attr, resolved, dest string) bool {
	for _, n := range c.doc.FindAll(tag) {
		v, ok := c.doc.Attr(n, attr)
		if !ok || isExternal(v) {
			continue
		}
		p, err := c.resolve(v)
		if err != nil || p != resolved {
			continue
		}
		return c.doc.SetAttr(n, attr, dest)
	}
	return false
}

// String serialises the document, rewrites included.
func (c *Content) String() (string, error) {
	s, err := c.doc.String()
	if err != nil {
		return "", fmt.Errorf("epub: serialise %s: %w", c.path, err)
	}
	return s, nil
}

// Text returns the readable text of the document. See extractText.
func (c *Content) Text() (string, error) {
	s, err := c.htmlString()
	if err != nil {
		return "", err
	}
	return extractText(s)
}

// BodyHTML returns the inner markup of <body> without scripts, styles,
// event handlers and unsafe URLs. Rewrites are reflected.
func (c *Content) BodyHTML() (string, error) {
	s, err := c.htmlString()
	if err != nil {
		return "", err
	}
	return extractBodyHTML(s)
}

// htmlString serialises the document with explicit end tags on empty
// elements so the HTML tokenizer and parser see the same tree.
func (c *Content) htmlString() (string, error) {
	s, err := c.doc.HTMLString()
	if err != nil {
		return "", fmt.Errorf("epub: serialise %s: %w", c.path, err)
	}
	return s, nil
}

func (c *Content) references() []string {
	var refs []string
	for _, n := range c.doc.FindAll("img") {
		if v, ok := c.doc.Attr(n, "src"); ok {
			refs = append(refs, v)
		}
	}
	for _, n := range c.doc.FindAll("link") {
		if t, _ := c.doc.Attr(n, "type"); t != "text/css" {
			continue
		}
		if v, ok := c.doc.Attr(n, "href"); ok {
			refs = append(refs, v)
		}
	}
	return refs
}

// resolve joins ref against the document path with RFC 3986 reference
// resolution and returns the decoded path without its leading slash.
func (c *Content) resolve(ref string) (string, error) {
	return resolveURL(c.path, ref)
}

// resolveURL fails with ErrURL when ref is not a valid URL reference. The
// base is a decoded archive path and is never parsed.
func resolveURL(base, ref string) (string, error) {
	b := &url.URL{Scheme: "http", Host: resolveHost, Path: "/" + base}
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("%w: reference %q: %w", ErrURL, ref, err)
	}
	return strings.TrimPrefix(b.ResolveReference(r).Path, "/"), nil
}

func isExternal(ref string) bool {
	return strings.HasPrefix(ref, "http")
}
