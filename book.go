package epub

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"path"

	"github.com/simp-lee/epubkit/cfi"
)

// expectedMimetype is the required content of the "mimetype" entry.
const expectedMimetype = "application/epub+zip"

// Book is an opened ePub. Use Open, OpenBytes or NewReader to create one.
//
// Nothing is cached beyond the container, package and navigation: every
// chapter or resource read goes back to storage.
//
// A Book is not safe for concurrent use by multiple goroutines.
type Book struct {
	backend   backend
	container *Container
	pkg       *Package
	nav       *Navigation
	warnings  []string
}

// Open opens the ePub at name, which may be a ZIP archive or a directory
// holding an unpacked book. The caller must call Close when done.
func Open(name string) (*Book, error) {
	be, err := openBackend(name)
	if err != nil {
		return nil, err
	}
	b, err := newBook(be)
	if err != nil {
		be.close()
		return nil, err
	}
	return b, nil
}

// OpenBytes opens an ePub archive held in memory.
func OpenBytes(data []byte) (*Book, error) {
	be, err := openMemoryBackend(data)
	if err != nil {
		return nil, err
	}
	return newBook(be)
}

// NewReader creates a Book from an io.ReaderAt holding size bytes of ZIP
// data. The caller is responsible for the lifetime of r.
func NewReader(r io.ReaderAt, size int64) (*Book, error) {
	be, err := openReaderAtBackend(r, size)
	if err != nil {
		return nil, err
	}
	return newBook(be)
}

// newBook runs the open sequence: mimetype check, DRM detection,
// container, package, navigation. Only the mimetype check is lenient.
func newBook(be backend) (*Book, error) {
	b := &Book{backend: be}
	b.checkMimetype()

	obfuscated, err := checkDRM(be)
	if err != nil {
		return nil, err
	}
	if obfuscated {
		b.warn("font obfuscation detected; obfuscated fonts may not render correctly")
	}

	data, err := be.fetchContainer()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContainer, err)
	}
	if b.container, err = parseContainer(data); err != nil {
		return nil, err
	}
	opfPath, ok := b.container.FullPath()
	if !ok {
		return nil, fmt.Errorf("%w: no rootfile in container.xml", ErrContainer)
	}

	opf, err := be.fetch(opfPath)
	if err != nil {
		return nil, err
	}
	if b.pkg, err = parsePackage(opfPath, opf); err != nil {
		return nil, err
	}

	if b.nav, err = b.loadNavigation(); err != nil {
		return nil, err
	}
	return b, nil
}

// checkMimetype records a warning when the mimetype entry is missing, is
// not the first archive entry, or has unexpected content.
func (b *Book) checkMimetype() {
	if zb, ok := b.backend.(*zipBackend); ok {
		if len(zb.zr.File) == 0 {
			b.warn("empty ZIP archive; mimetype entry missing")
			return
		}
		if zb.zr.File[0].Name != "mimetype" {
			b.warn(`first ZIP entry is not "mimetype"`)
		}
	}
	data, err := b.backend.fetch("mimetype")
	if err != nil {
		b.warn(fmt.Sprintf("cannot read mimetype entry: %v", err))
		return
	}
	if string(data) != expectedMimetype {
		b.warn(fmt.Sprintf("unexpected mimetype: %q", string(data)))
	}
}

// loadNavigation reads the manifest item with id "nav" as a Navigation
// Document, else the item with id "ncx" as an NCX. A book with neither has
// no navigation. Items are looked up by these fixed ids only, so a nav
// document registered under another id is not found.
func (b *Book) loadNavigation() (*Navigation, error) {
	if item, ok := b.pkg.GetManifest(navManifestID); ok {
		data, err := b.backend.fetch(b.ResolvePath(item.Href))
		if err != nil {
			return nil, err
		}
		return parseNavDocument(data)
	}
	if item, ok := b.pkg.GetManifest(ncxManifestID); ok {
		data, err := b.backend.fetch(b.ResolvePath(item.Href))
		if err != nil {
			return nil, err
		}
		return parseNCX(data)
	}
	return nil, nil
}

func (b *Book) warn(msg string) {
	b.warnings = append(b.warnings, msg)
}

// Close releases the archive file when the Book was created by Open.
// Close is idempotent.
func (b *Book) Close() error {
	return b.backend.close()
}

// Title returns the package title, or "".
func (b *Book) Title() string { return b.pkg.Title() }

// Container returns the parsed META-INF/container.xml.
func (b *Book) Container() *Container { return b.container }

// Package returns the parsed OPF package document.
func (b *Book) Package() *Package { return b.pkg }

// Navigation returns the table of contents source, or nil when the book
// has neither a "nav" nor an "ncx" manifest item.
func (b *Book) Navigation() *Navigation { return b.nav }

// TableOfContents returns the top-level TOC entries, or nil.
func (b *Book) TableOfContents() []NavItem {
	if b.nav == nil {
		return nil
	}
	return b.nav.TOC
}

// Warnings returns the non-fatal problems noticed while opening the book.
func (b *Book) Warnings() []string {
	return append([]string(nil), b.warnings...)
}

// ResolvePath joins href, relative to the OPF file, onto the OPF
// directory, giving an archive-relative path.
func (b *Book) ResolvePath(href string) string {
	return path.Join(b.pkg.Dir(), href)
}

// Chapter reads spine position n. It reports ok=false past the end of the
// spine.
func (b *Book) Chapter(n int) (Chapter, bool, error) {
	item, ok, err := b.pkg.Chapter(n)
	if err != nil || !ok {
		return Chapter{}, false, err
	}
	href := b.ResolvePath(item.Href)
	data, err := b.backend.fetch(href)
	if err != nil {
		return Chapter{}, false, err
	}
	return Chapter{
		Index:   n,
		ID:      item.ID,
		Href:    href,
		Linear:  b.pkg.Spine[n].IsLinear(),
		Content: string(data),
	}, true, nil
}

// Chapters iterates the spine in order, reading each chapter on demand.
// Iteration stops after the first error.
func (b *Book) Chapters() iter.Seq2[Chapter, error] {
	return func(yield func(Chapter, error) bool) {
		for n := 0; ; n++ {
			ch, ok, err := b.Chapter(n)
			if err != nil {
				yield(Chapter{}, err)
				return
			}
			if !ok || !yield(ch, nil) {
				return
			}
		}
	}
}

// ReadContent fetches and parses the content document at the
// archive-relative path href.
func (b *Book) ReadContent(href string) (*Content, error) {
	data, err := b.backend.fetch(href)
	if err != nil {
		return nil, err
	}
	return newContent(href, data)
}

// ReadBinary fetches the raw bytes at the archive-relative path name.
func (b *Book) ReadBinary(name string) ([]byte, error) {
	return b.backend.fetch(name)
}

// RewriteResource points the first reference in c that resolves to
// original at dest and returns c. Missing references leave c untouched.
func (b *Book) RewriteResource(c *Content, original, dest string) *Content {
	c.RewriteResource(original, dest)
	return c
}

// ResolveCFI maps the first path of c to a spine position. The path starts
// at the package element: its first step selects the spine, its second the
// itemref.
func (b *Book) ResolveCFI(c *cfi.CFI) (int, error) {
	p, ok := c.Chapter()
	if !ok || len(p.Steps) < 2 {
		return 0, fmt.Errorf("%w: no spine step in %q", ErrCFI, c.String())
	}
	n := p.Steps[1].Index() - 1
	if n < 0 || n >= len(b.pkg.Spine) {
		return 0, fmt.Errorf("%w: spine position %d out of range [0,%d)", ErrFormat, n, len(b.pkg.Spine))
	}
	return n, nil
}

// isNotFound reports whether err is a missing-entry failure.
func isNotFound(err error) bool {
	return errors.Is(err, ErrFileNotFound)
}
