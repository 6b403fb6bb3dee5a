// Package xmldoc parses XML and XHTML documents into a mutable tree whose
// nodes live in a single arena and are addressed by [NodeID].
//
// Lookups are namespace-agnostic: tags and attributes are matched by their
// local name. Prefixes are kept so that [Document.String] writes the markup
// back the way it was read, including any attribute updated through
// [Document.SetAttr].
package xmldoc

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"
)

// ErrXML is returned when a document fails to parse or a required attribute
// is absent.
var ErrXML = errors.New("xml: malformed document")

// NodeID addresses a node inside a Document.
type NodeID int

// Root is the document node. It has no name and holds the top-level tokens
// (declaration, doctype, comments and the root element).
const Root NodeID = 0

// Kind identifies the type of a node.
type Kind uint8

const (
	DocumentNode Kind = iota
	ElementNode
	TextNode
	CDataNode
	CommentNode
	ProcInstNode
	DirectiveNode
)

// Attr is an element attribute. Space holds the prefix as written in the
// source ("xmlns", "epub", ...), Key the local name.
type Attr struct {
	Space string
	Key   string
	Value string
}

type node struct {
	kind     Kind
	space    string
	name     string // element local name or processing-instruction target
	data     string // text, comment, directive or instruction body
	attrs    []Attr
	parent   NodeID
	children []NodeID
}

// Document is a parsed markup tree.
//
// A Document is not safe for concurrent use.
type Document struct {
	nodes []node
}

// Parse parses data into a Document. A leading UTF-8 BOM is ignored, HTML
// named entities such as &nbsp; are accepted and documents declaring a
// non-UTF-8 encoding are transcoded.
func Parse(data []byte) (*Document, error) {
	src := etree.NewDocument()
	src.ReadSettings = etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
		Entity:        xml.HTMLEntity,
	}
	if err := src.ReadFromBytes(stripBOM(data)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrXML, err)
	}
	if src.Root() == nil {
		return nil, fmt.Errorf("%w: no root element", ErrXML)
	}

	d := &Document{nodes: []node{{kind: DocumentNode, parent: -1}}}
	d.appendTokens(Root, src.Child)
	return d, nil
}

// appendTokens flattens etree tokens into the arena under parent.
func (d *Document) appendTokens(parent NodeID, tokens []etree.Token) {
	for _, tok := range tokens {
		switch t := tok.(type) {
		case *etree.Element:
			id := d.add(parent, node{kind: ElementNode, space: t.Space, name: t.Tag})
			attrs := make([]Attr, 0, len(t.Attr))
			for _, a := range t.Attr {
				attrs = append(attrs, Attr{Space: a.Space, Key: a.Key, Value: a.Value})
			}
			d.nodes[id].attrs = attrs
			d.appendTokens(id, t.Child)
		case *etree.CharData:
			kind := TextNode
			if t.IsCData() {
				kind = CDataNode
			}
			d.add(parent, node{kind: kind, data: t.Data})
		case *etree.Comment:
			d.add(parent, node{kind: CommentNode, data: t.Data})
		case *etree.ProcInst:
			d.add(parent, node{kind: ProcInstNode, name: t.Target, data: t.Inst})
		case *etree.Directive:
			d.add(parent, node{kind: DirectiveNode, data: t.Data})
		}
	}
}

func (d *Document) add(parent NodeID, n node) NodeID {
	id := NodeID(len(d.nodes))
	n.parent = parent
	d.nodes = append(d.nodes, n)
	d.nodes[parent].children = append(d.nodes[parent].children, id)
	return id
}

// Len reports the number of nodes in the arena, the document node included.
func (d *Document) Len() int {
	return len(d.nodes)
}

// Kind returns the kind of n.
func (d *Document) Kind(n NodeID) Kind {
	return d.nodes[n].kind
}

// Name returns the local tag name of an element, or "" for other nodes.
func (d *Document) Name(n NodeID) string {
	if d.nodes[n].kind != ElementNode {
		return ""
	}
	return d.nodes[n].name
}

// Parent returns the parent of n. The document node is its own parent.
func (d *Document) Parent(n NodeID) NodeID {
	if n == Root {
		return Root
	}
	return d.nodes[n].parent
}

// Find returns the first element named tag in document order.
func (d *Document) Find(tag string) (NodeID, bool) {
	return d.FindFrom(Root, tag)
}

// FindFrom returns the first element named tag in the subtree rooted at n,
// n itself included, searching depth-first in pre-order.
func (d *Document) FindFrom(n NodeID, tag string) (NodeID, bool) {
	nd := &d.nodes[n]
	if nd.kind == ElementNode && nd.name == tag {
		return n, true
	}
	for _, c := range nd.children {
		if d.nodes[c].kind != ElementNode {
			continue
		}
		if found, ok := d.FindFrom(c, tag); ok {
			return found, true
		}
	}
	return 0, false
}

// FindAll returns every element named tag in document order.
func (d *Document) FindAll(tag string) []NodeID {
	var out []NodeID
	d.collect(Root, tag, &out)
	return out
}

func (d *Document) collect(n NodeID, tag string, out *[]NodeID) {
	nd := &d.nodes[n]
	if nd.kind == ElementNode && nd.name == tag {
		*out = append(*out, n)
	}
	for _, c := range nd.children {
		if d.nodes[c].kind == ElementNode {
			d.collect(c, tag, out)
		}
	}
}

// Children returns the direct element children of n named tag.
func (d *Document) Children(n NodeID, tag string) []NodeID {
	var out []NodeID
	for _, c := range d.nodes[n].children {
		if d.nodes[c].kind == ElementNode && d.nodes[c].name == tag {
			out = append(out, c)
		}
	}
	return out
}

// FirstChild returns the first direct element child of n named tag.
func (d *Document) FirstChild(n NodeID, tag string) (NodeID, bool) {
	for _, c := range d.nodes[n].children {
		if d.nodes[c].kind == ElementNode && d.nodes[c].name == tag {
			return c, true
		}
	}
	return 0, false
}

// Elements returns all direct element children of n.
func (d *Document) Elements(n NodeID) []NodeID {
	var out []NodeID
	for _, c := range d.nodes[n].children {
		if d.nodes[c].kind == ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// Attr returns the value of the attribute whose local name is name.
func (d *Document) Attr(n NodeID, name string) (string, bool) {
	for _, a := range d.nodes[n].attrs {
		if a.Key == name {
			return a.Value, true
		}
	}
	return "", false
}

// RequireAttr is like Attr but fails with ErrXML when the attribute is absent.
func (d *Document) RequireAttr(n NodeID, name string) (string, error) {
	if v, ok := d.Attr(n, name); ok {
		return v, nil
	}
	return "", fmt.Errorf("%w: attribute %q missing on <%s>", ErrXML, name, d.nodes[n].name)
}

// Attrs returns a copy of the attributes of n in source order.
func (d *Document) Attrs(n NodeID) []Attr {
	return append([]Attr(nil), d.nodes[n].attrs...)
}

// SetAttr sets the value of the first attribute whose local name is name.
// The attribute is appended when n does not carry it yet. SetAttr reports
// false when n is not an element.
func (d *Document) SetAttr(n NodeID, name, value string) bool {
	nd := &d.nodes[n]
	if nd.kind != ElementNode {
		return false
	}
	for i := range nd.attrs {
		if nd.attrs[i].Key == name {
			nd.attrs[i].Value = value
			return true
		}
	}
	nd.attrs = append(nd.attrs, Attr{Key: name, Value: value})
	return true
}

// Text concatenates the text and CDATA children of n. Text nested in child
// elements is not included.
func (d *Document) Text(n NodeID) string {
	var buf bytes.Buffer
	for _, c := range d.nodes[n].children {
		if k := d.nodes[c].kind; k == TextNode || k == CDataNode {
			buf.WriteString(d.nodes[c].data)
		}
	}
	return buf.String()
}

// WriteTo serialises the document to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	out := etree.NewDocument()
	d.build(&out.Element, Root, false)
	return out.WriteTo(w)
}

// String serialises the document.
func (d *Document) String() (string, error) {
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("%w: serialise: %w", ErrXML, err)
	}
	return buf.String(), nil
}

// HTMLString serialises the document for an HTML parser: empty elements
// other than the HTML void elements get an explicit end tag, since HTML
// ignores the self-closing flag on <script/> or <a/>.
func (d *Document) HTMLString() (string, error) {
	out := etree.NewDocument()
	d.build(&out.Element, Root, true)
	var buf bytes.Buffer
	if _, err := out.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("%w: serialise: %w", ErrXML, err)
	}
	return buf.String(), nil
}

// voidElements never have content or an end tag in HTML.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

func (d *Document) build(dst *etree.Element, n NodeID, html bool) {
	for _, c := range d.nodes[n].children {
		nd := &d.nodes[c]
		switch nd.kind {
		case ElementNode:
			el := dst.CreateElement(qualify(nd.space, nd.name))
			for _, a := range nd.attrs {
				el.CreateAttr(qualify(a.Space, a.Key), a.Value)
			}
			d.build(el, c, html)
			if html && len(el.Child) == 0 && !voidElements[strings.ToLower(nd.name)] {
				// An empty text child makes etree write <a></a>.
				el.CreateText("")
			}
		case TextNode:
			dst.CreateText(nd.data)
		case CDataNode:
			dst.CreateCData(nd.data)
		case CommentNode:
			dst.CreateComment(nd.data)
		case ProcInstNode:
			dst.CreateProcInst(nd.name, nd.data)
		case DirectiveNode:
			dst.CreateDirective(nd.data)
		}
	}
}

func qualify(space, local string) string {
	if space == "" {
		return local
	}
	return space + ":" + local
}

func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte("\xEF\xBB\xBF"))
}
