package epub

import (
	"fmt"
	"strings"

	"github.com/simp-lee/epubkit/xmldoc"
)

// NavItem is one entry of the table of contents. TOC is a tree; each item
// may have nested children.
type NavItem struct {
	// Href is the raw link target as written in the navigation source,
	// relative to that source and possibly carrying a fragment.
	Href string

	// Text is the display text of the entry.
	Text string

	Children []NavItem
}

// Navigation is the table of contents read from either the EPUB 3
// Navigation Document or the EPUB 2 NCX.
type Navigation struct {
	Title string
	TOC   []NavItem
}

// Flatten returns the TOC items in depth-first document order.
func (n *Navigation) Flatten() []NavItem {
	var out []NavItem
	var walk func([]NavItem)
	walk = func(items []NavItem) {
		for _, it := range items {
			out = append(out, it)
			walk(it.Children)
		}
	}
	walk(n.TOC)
	return out
}

// parseNavDocument parses an EPUB 3 XHTML Navigation Document. Every <nav>
// whose type attribute carries the "toc" token is read in document order
// and replaces the previous one, so the last such <nav> wins.
func parseNavDocument(data []byte) (*Navigation, error) {
	doc, err := xmldoc.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("epub: parse nav document: %w", err)
	}

	nav := &Navigation{Title: documentTitle(doc)}
	for _, n := range doc.FindAll("nav") {
		if !hasToken(doc, n, "type", "toc") {
			continue
		}
		var toc []NavItem
		for _, ol := range doc.Children(n, "ol") {
			toc = append(toc, parseNavList(doc, ol)...)
		}
		nav.TOC = toc
	}
	return nav, nil
}

// parseNavList converts the <li> children of an <ol>. An <li> without a
// direct <a> child (a bare heading span, say) is skipped along with its
// subtree.
func parseNavList(doc *xmldoc.Document, ol xmldoc.NodeID) []NavItem {
	var items []NavItem
	for _, li := range doc.Children(ol, "li") {
		a, ok := doc.FirstChild(li, "a")
		if !ok {
			continue
		}
		href, _ := doc.Attr(a, "href")
		item := NavItem{Href: href, Text: doc.Text(a)}
		for _, sub := range doc.Children(li, "ol") {
			item.Children = append(item.Children, parseNavList(doc, sub)...)
		}
		items = append(items, item)
	}
	return items
}

// hasToken reports whether the space-separated attribute attr of n
// contains token.
func hasToken(doc *xmldoc.Document, n xmldoc.NodeID, attr, token string) bool {
	v, _ := doc.Attr(n, attr)
	for _, t := range strings.Fields(v) {
		if t == token {
			return true
		}
	}
	return false
}

// documentTitle returns the direct text of the first <title> element.
func documentTitle(doc *xmldoc.Document) string {
	if n, ok := doc.Find("title"); ok {
		return doc.Text(n)
	}
	return ""
}
