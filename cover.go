package epub

import (
	"slices"
	"strings"
)

// CoverImage holds the detected cover image.
type CoverImage struct {
	// Path is the archive-relative path of the image.
	Path string

	MediaType string
	Data      []byte
}

// Cover detects the cover image. Strategies, in order:
//  1. manifest item with the "cover-image" property (EPUB 3)
//  2. <meta name="cover" content="ID"/> (EPUB 2), an image or a cover page
//  3. guide reference of type "cover", first image of that page
//  4. image manifest item whose id or href contains "cover"
//
// It returns ErrNoCover when every strategy fails.
func (b *Book) Cover() (CoverImage, error) {
	for _, find := range []func() (ManifestItem, bool){
		b.coverFromProperties,
		b.coverFromMeta,
		b.coverFromGuide,
		b.coverFromName,
	} {
		if item, ok := find(); ok {
			return b.loadCover(item)
		}
	}
	return CoverImage{}, ErrNoCover
}

func (b *Book) coverFromProperties() (ManifestItem, bool) {
	for _, item := range b.pkg.ManifestItems() {
		if item.Properties != nil && slices.Contains(strings.Fields(*item.Properties), "cover-image") {
			return item, true
		}
	}
	return ManifestItem{}, false
}

func (b *Book) coverFromMeta() (ManifestItem, bool) {
	id, ok := b.pkg.metaContent("cover")
	if !ok {
		return ManifestItem{}, false
	}
	item, ok := b.pkg.GetManifest(id)
	if !ok {
		return ManifestItem{}, false
	}
	if isImage(item.MediaType) {
		return item, true
	}
	return b.coverFromPage(b.ResolvePath(item.Href))
}

func (b *Book) coverFromGuide() (ManifestItem, bool) {
	for _, ref := range b.pkg.Guide {
		if !strings.EqualFold(ref.Type, "cover") || ref.Href == nil {
			continue
		}
		href, _, _ := strings.Cut(*ref.Href, "#")
		if item, ok := b.coverFromPage(b.ResolvePath(href)); ok {
			return item, true
		}
	}
	return ManifestItem{}, false
}

func (b *Book) coverFromName() (ManifestItem, bool) {
	for _, item := range b.pkg.ManifestItems() {
		if !isImage(item.MediaType) {
			continue
		}
		if strings.Contains(strings.ToLower(item.ID), "cover") ||
			strings.Contains(strings.ToLower(item.Href), "cover") {
			return item, true
		}
	}
	return ManifestItem{}, false
}

// coverFromPage returns the manifest image behind the first <img> or SVG
// <image> of the content document at p.
func (b *Book) coverFromPage(p string) (ManifestItem, bool) {
	c, err := b.ReadContent(p)
	if err != nil {
		return ManifestItem{}, false
	}
	src, ok := firstImage(c)
	if !ok {
		return ManifestItem{}, false
	}
	for _, item := range b.pkg.ManifestItems() {
		if isImage(item.MediaType) && strings.EqualFold(b.ResolvePath(item.Href), src) {
			return item, true
		}
	}
	return ManifestItem{}, false
}

// firstImage returns the resolved source of the first <img src> or SVG
// <image href>.
func firstImage(c *Content) (string, bool) {
	doc := c.Document()
	for _, tag := range []struct{ name, attr string }{{"img", "src"}, {"image", "href"}} {
		for _, n := range doc.FindAll(tag.name) {
			v, ok := doc.Attr(n, tag.attr)
			if !ok || v == "" || isExternal(v) {
				continue
			}
			if p, err := c.resolve(v); err == nil {
				return p, true
			}
		}
	}
	return "", false
}

func (b *Book) loadCover(item ManifestItem) (CoverImage, error) {
	p := b.ResolvePath(item.Href)
	data, err := b.backend.fetch(p)
	if err != nil {
		return CoverImage{}, err
	}
	return CoverImage{Path: p, MediaType: item.MediaType, Data: data}, nil
}

func isImage(mediaType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mediaType)), "image/")
}
