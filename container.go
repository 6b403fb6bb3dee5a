package epub

import (
	"fmt"

	"github.com/simp-lee/epubkit/xmldoc"
)

// PackageMediaType is the media type every root file must declare.
const PackageMediaType = "application/oebps-package+xml"

// RootFile is a <rootfile> entry of META-INF/container.xml.
type RootFile struct {
	FullPath  string
	MediaType string
}

// Container models META-INF/container.xml.
type Container struct {
	Version   string
	RootFiles []RootFile
}

// FullPath returns the path of the first root file in document order.
func (c *Container) FullPath() (string, bool) {
	if len(c.RootFiles) == 0 {
		return "", false
	}
	return c.RootFiles[0].FullPath, true
}

// parseContainer parses container.xml bytes.
//
// The container element and its version attribute are required. Every
// rootfile must carry full-path and media-type, and the media type must be
// PackageMediaType.
func parseContainer(data []byte) (*Container, error) {
	doc, err := xmldoc.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("epub: parse container.xml: %w", err)
	}

	root, ok := doc.Find("container")
	if !ok {
		return nil, fmt.Errorf("%w: no container element in container.xml", ErrContainer)
	}
	version, ok := doc.Attr(root, "version")
	if !ok {
		return nil, fmt.Errorf("%w: container element has no version", ErrContainer)
	}

	c := &Container{Version: version}
	for _, n := range doc.FindAll("rootfile") {
		fullPath, err := doc.RequireAttr(n, "full-path")
		if err != nil {
			return nil, fmt.Errorf("epub: container.xml rootfile: %w", err)
		}
		mediaType, err := doc.RequireAttr(n, "media-type")
		if err != nil {
			return nil, fmt.Errorf("epub: container.xml rootfile: %w", err)
		}
		if mediaType != PackageMediaType {
			return nil, fmt.Errorf("%w: rootfile %s has media type %q, want %q",
				ErrFormat, fullPath, mediaType, PackageMediaType)
		}
		c.RootFiles = append(c.RootFiles, RootFile{FullPath: fullPath, MediaType: mediaType})
	}
	return c, nil
}
