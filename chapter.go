package epub

// Chapter is one spine entry together with its markup.
type Chapter struct {
	// Index is the spine position.
	Index int

	// ID is the manifest id the itemref points at.
	ID string

	// Href is the archive-relative path of the content document.
	Href string

	// Linear is false only for itemrefs marked linear="no".
	Linear bool

	// Content is the raw markup as stored in the book.
	Content string
}

// Parse parses the chapter markup for resource discovery and rewriting.
func (c Chapter) Parse() (*Content, error) {
	return newContent(c.Href, []byte(c.Content))
}
