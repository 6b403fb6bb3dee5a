// Package epub reads ePub 2 and ePub 3 books: the OCF container, the OPF
// package document, the Navigation Document or NCX table of contents, and
// XHTML content documents whose resource references can be listed and
// rewritten.
//
// # Opening a book
//
// [Open] accepts a ZIP archive or a directory holding an unpacked book.
// [OpenBytes] and [NewReader] read archives from memory:
//
//	book, err := epub.Open("book.epub")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer book.Close()
//
// # Chapters
//
// [Book.Chapters] walks the spine, fetching each chapter when it is reached:
//
//	for ch, err := range book.Chapters() {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(ch.Index, ch.Href)
//	}
//
// # Resources
//
// [Book.ReadContent] parses a content document. [Content.Resources] lists
// the archive paths of its images and stylesheets; after storing each one
// the caller hands back an opaque destination with [Content.RewriteResource]:
//
//	c, _ := book.ReadContent(ch.Href)
//	for _, p := range c.Resources() {
//	    data, _ := book.ReadBinary(p)
//	    c.RewriteResource(p, store(p, data))
//	}
//	markup, _ := c.String()
//
// # Locations
//
// Canonical Fragment Identifiers are parsed by package cfi and mapped to a
// spine position with [Book.ResolveCFI].
//
// # Errors
//
// Every failure matches one of the sentinel errors through errors.Is:
// [ErrArchive], [ErrReader], [ErrContainer], [ErrFormat], [ErrXML],
// [ErrParse], [ErrURL] or [ErrCFI]. Storage failures are carried by a
// [*ReaderError] naming the path. Protected books fail with
// [ErrDRMProtected]. Non-fatal problems are collected in [Book.Warnings].
package epub
