package epub

import (
	"fmt"

	"github.com/simp-lee/epubkit/xmldoc"
)

// parseNCX parses an EPUB 2 NCX file. An NCX without a navMap yields an
// empty table of contents.
func parseNCX(data []byte) (*Navigation, error) {
	doc, err := xmldoc.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("epub: parse NCX: %w", err)
	}

	nav := &Navigation{Title: documentTitle(doc)}
	navMap, ok := doc.Find("navMap")
	if !ok {
		return nav, nil
	}
	if nav.TOC, err = parseNavPoints(doc, navMap); err != nil {
		return nil, err
	}
	return nav, nil
}

// parseNavPoints converts the navPoint children of parent, recursively.
func parseNavPoints(doc *xmldoc.Document, parent xmldoc.NodeID) ([]NavItem, error) {
	var items []NavItem
	for _, np := range doc.Children(parent, "navPoint") {
		label, ok := doc.FirstChild(np, "navLabel")
		if !ok {
			return nil, fmt.Errorf("%w: navPoint has no navLabel", ErrParse)
		}
		var text string
		if t, ok := doc.FirstChild(label, "text"); ok {
			text = doc.Text(t)
		}

		content, ok := doc.FirstChild(np, "content")
		if !ok {
			return nil, fmt.Errorf("%w: navPoint %q has no content", ErrParse, text)
		}
		src, err := doc.RequireAttr(content, "src")
		if err != nil {
			return nil, fmt.Errorf("epub: navPoint %q: %w", text, err)
		}

		children, err := parseNavPoints(doc, np)
		if err != nil {
			return nil, err
		}
		items = append(items, NavItem{Href: src, Text: text, Children: children})
	}
	return items, nil
}
