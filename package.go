package epub

import (
	"fmt"
	"path"
	"strings"

	"github.com/simp-lee/epubkit/xmldoc"
)

// Fixed manifest ids used to locate the navigation sources.
const (
	navManifestID = "nav"
	ncxManifestID = "ncx"
)

// MetaItem is one direct child of the OPF <metadata> element.
type MetaItem struct {
	// Name is the local tag name (e.g., "title", "creator", "meta").
	Name string

	// Content is the concatenated direct text of the element.
	Content string

	// Attrs maps attribute local names to values.
	Attrs map[string]string
}

// ManifestItem is an <item> of the OPF manifest. Optional attributes are nil
// when absent.
type ManifestItem struct {
	ID           string
	Href         string // relative to the OPF file
	MediaType    string
	Fallback     *string
	Properties   *string
	MediaOverlay *string
}

// ItemRef is an <itemref> of the OPF spine.
type ItemRef struct {
	IDRef      string
	ID         *string
	Linear     *string
	Properties *string
}

// IsLinear reports whether the item is part of the linear reading order.
// Only linear="no" excludes it.
func (r ItemRef) IsLinear() bool {
	return r.Linear == nil || *r.Linear != "no"
}

// Reference is a <reference> of the OPF guide.
type Reference struct {
	Type  string
	Title *string
	Href  *string
}

// Package is the parsed OPF package document.
type Package struct {
	// Path is the archive-relative location the OPF was read from.
	Path string

	// Metadata holds one item per tag name; a later element with the same
	// name replaces an earlier one.
	Metadata map[string]MetaItem

	// Manifest maps item id to item.
	Manifest map[string]ManifestItem

	Spine []ItemRef
	Guide []Reference

	doc           *xmldoc.Document
	manifestOrder []string
}

// parsePackage parses OPF bytes read from opfPath.
func parsePackage(opfPath string, data []byte) (*Package, error) {
	doc, err := xmldoc.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("epub: parse OPF %s: %w", opfPath, err)
	}

	pkg := &Package{Path: opfPath, doc: doc}
	if err := pkg.parseMetadata(); err != nil {
		return nil, err
	}
	if err := pkg.parseManifest(); err != nil {
		return nil, err
	}
	if err := pkg.parseSpine(); err != nil {
		return nil, err
	}
	if err := pkg.parseGuide(); err != nil {
		return nil, err
	}
	return pkg, nil
}

func (p *Package) parseMetadata() error {
	doc := p.doc
	md, ok := doc.Find("metadata")
	if !ok {
		return fmt.Errorf("%w: package has no metadata element", ErrFormat)
	}
	p.Metadata = make(map[string]MetaItem)
	for _, n := range doc.Elements(md) {
		item := MetaItem{
			Name:    doc.Name(n),
			Content: doc.Text(n),
			Attrs:   make(map[string]string),
		}
		for _, a := range doc.Attrs(n) {
			item.Attrs[a.Key] = a.Value
		}
		p.Metadata[item.Name] = item
	}
	return nil
}

func (p *Package) parseManifest() error {
	doc := p.doc
	manifest, ok := doc.Find("manifest")
	if !ok {
		return fmt.Errorf("%w: package has no manifest element", ErrFormat)
	}
	items := doc.Children(manifest, "item")
	p.Manifest = make(map[string]ManifestItem, len(items))
	for _, n := range items {
		var item ManifestItem
		var err error
		if item.ID, err = doc.RequireAttr(n, "id"); err != nil {
			return fmt.Errorf("epub: manifest item: %w", err)
		}
		if item.Href, err = doc.RequireAttr(n, "href"); err != nil {
			return fmt.Errorf("epub: manifest item %s: %w", item.ID, err)
		}
		if item.MediaType, err = doc.RequireAttr(n, "media-type"); err != nil {
			return fmt.Errorf("epub: manifest item %s: %w", item.ID, err)
		}
		item.Fallback = optionalAttr(doc, n, "fallback")
		item.Properties = optionalAttr(doc, n, "properties")
		item.MediaOverlay = optionalAttr(doc, n, "media-overlay")

		if _, dup := p.Manifest[item.ID]; !dup {
			p.manifestOrder = append(p.manifestOrder, item.ID)
		}
		p.Manifest[item.ID] = item
	}
	return nil
}

func (p *Package) parseSpine() error {
	doc := p.doc
	spine, ok := doc.Find("spine")
	if !ok {
		return nil
	}
	for _, n := range doc.Children(spine, "itemref") {
		idref, err := doc.RequireAttr(n, "idref")
		if err != nil {
			return fmt.Errorf("epub: spine itemref: %w", err)
		}
		p.Spine = append(p.Spine, ItemRef{
			IDRef:      idref,
			ID:         optionalAttr(doc, n, "id"),
			Linear:     optionalAttr(doc, n, "linear"),
			Properties: optionalAttr(doc, n, "properties"),
		})
	}
	return nil
}

// parseGuide reads the optional <guide>; its absence is not an error.
func (p *Package) parseGuide() error {
	doc := p.doc
	guide, ok := doc.Find("guide")
	if !ok {
		return nil
	}
	for _, n := range doc.Children(guide, "reference") {
		typ, err := doc.RequireAttr(n, "type")
		if err != nil {
			return fmt.Errorf("epub: guide reference: %w", err)
		}
		p.Guide = append(p.Guide, Reference{
			Type:  typ,
			Title: optionalAttr(doc, n, "title"),
			Href:  optionalAttr(doc, n, "href"),
		})
	}
	return nil
}

func optionalAttr(doc *xmldoc.Document, n xmldoc.NodeID, name string) *string {
	v, ok := doc.Attr(n, name)
	if !ok {
		return nil
	}
	return &v
}

// Title returns the text of the title metadata item, or "".
func (p *Package) Title() string {
	return p.Metadata["title"].Content
}

// Version returns the version attribute of the package element, or "".
func (p *Package) Version() string {
	if n, ok := p.doc.Find("package"); ok {
		v, _ := p.doc.Attr(n, "version")
		return v
	}
	return ""
}

// Dir returns the directory holding the OPF file; manifest hrefs are
// relative to it. It is "" for an OPF at the archive root.
func (p *Package) Dir() string {
	dir := path.Dir(p.Path)
	if dir == "." {
		return ""
	}
	return dir
}

// GetManifest looks a manifest item up by id. The book uses the fixed ids
// "nav" and "ncx" to find its navigation sources.
func (p *Package) GetManifest(id string) (ManifestItem, bool) {
	item, ok := p.Manifest[id]
	return item, ok
}

// ManifestItems returns the manifest in document order.
func (p *Package) ManifestItems() []ManifestItem {
	out := make([]ManifestItem, 0, len(p.manifestOrder))
	for _, id := range p.manifestOrder {
		out = append(out, p.Manifest[id])
	}
	return out
}

// Chapter returns the manifest item of spine position n. It reports
// ok=false past the end of the spine and fails with ErrFormat when the
// itemref points at an id missing from the manifest.
func (p *Package) Chapter(n int) (item ManifestItem, ok bool, err error) {
	if n < 0 || n >= len(p.Spine) {
		return ManifestItem{}, false, nil
	}
	idref := p.Spine[n].IDRef
	item, found := p.Manifest[idref]
	if !found {
		return ManifestItem{}, false, fmt.Errorf("%w: spine item %d references unknown manifest id %q", ErrFormat, n, idref)
	}
	return item, true, nil
}

// metaContent returns the content attribute of the first <meta> whose
// name attribute equals name, ignoring case. The Metadata map keeps only the last <meta>,
// so this walks the document instead.
func (p *Package) metaContent(name string) (string, bool) {
	md, ok := p.doc.Find("metadata")
	if !ok {
		return "", false
	}
	for _, n := range p.doc.Children(md, "meta") {
		if v, _ := p.doc.Attr(n, "name"); strings.EqualFold(v, name) {
			return p.doc.Attr(n, "content")
		}
	}
	return "", false
}
