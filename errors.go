package epub

import (
	"errors"
	"fmt"

	"github.com/simp-lee/epubkit/cfi"
	"github.com/simp-lee/epubkit/xmldoc"
)

// Sentinel errors returned by the epub package. Every failure surfaced by
// the package matches exactly one of the structural kinds below through
// errors.Is.
var (
	// ErrArchive indicates corrupt or unreadable ZIP structure.
	ErrArchive = errors.New("epub: invalid archive")

	// ErrReader indicates an I/O failure or a missing entry. The error is
	// carried by a *ReaderError naming the path.
	ErrReader = errors.New("epub: read failed")

	// ErrContainer indicates a missing or structurally invalid
	// META-INF/container.xml.
	ErrContainer = errors.New("epub: invalid container")

	// ErrFormat indicates a package-level structural violation
	// (e.g., missing manifest, wrong root file media type).
	ErrFormat = errors.New("epub: invalid package format")

	// ErrXML indicates a document failed to parse or a required attribute
	// is absent.
	ErrXML = xmldoc.ErrXML

	// ErrParse indicates a higher-level structural expectation was not met
	// (e.g., an NCX navPoint without content).
	ErrParse = errors.New("epub: parse failed")

	// ErrURL indicates a relative reference could not be resolved.
	ErrURL = errors.New("epub: invalid url")

	// ErrCFI indicates a malformed CFI expression.
	ErrCFI = cfi.ErrCFI

	// ErrFileNotFound indicates the requested file does not exist
	// in the archive or directory.
	ErrFileNotFound = errors.New("epub: file not found")

	// ErrDRMProtected indicates the book is protected by DRM
	// (e.g., Adobe ADEPT, Apple FairPlay, Readium LCP) and cannot be read.
	ErrDRMProtected = errors.New("epub: file is DRM protected")

	// ErrNoCover indicates no cover image could be detected.
	ErrNoCover = errors.New("epub: no cover image found")
)

// ReaderError records a failed fetch and the path that caused it.
type ReaderError struct {
	Path string
	Err  error
}

func (e *ReaderError) Error() string {
	return fmt.Sprintf("epub: read %s: %v", e.Path, e.Err)
}

// Unwrap exposes both ErrReader and the underlying cause.
func (e *ReaderError) Unwrap() []error {
	return []error{ErrReader, e.Err}
}
