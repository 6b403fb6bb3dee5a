package epub

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

// validContainerXML is a well-formed META-INF/container.xml pointing to an OPF.
const validContainerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const sampleOPF = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="uid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:identifier id="uid">urn:uuid:12345</dc:identifier>
    <dc:title>Sample Book</dc:title>
    <dc:creator id="author">Jane Doe</dc:creator>
    <dc:language>en</dc:language>
    <meta name="cover" content="cover-img"/>
  </metadata>
  <manifest>
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="chap1" href="text/chap1.xhtml" media-type="application/xhtml+xml"/>
    <item id="chap2" href="text/chap2.xhtml" media-type="application/xhtml+xml"/>
    <item id="css" href="styles/main.css" media-type="text/css"/>
    <item id="pic" href="images/pic.png" media-type="image/png"/>
    <item id="cover-img" href="images/cover.jpg" media-type="image/jpeg" properties="cover-image"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="chap1"/>
    <itemref idref="chap2" linear="no"/>
  </spine>
</package>`

const sampleNav = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head><title>Sample Book</title></head>
<body>
  <nav epub:type="toc" id="toc">
    <ol>
      <li><a href="text/chap1.xhtml">Chapter 1</a>
        <ol>
          <li><a href="text/chap1.xhtml#s1">Section 1.1</a></li>
        </ol>
      </li>
      <li><a href="text/chap2.xhtml">Chapter 2</a></li>
    </ol>
  </nav>
</body>
</html>`

const sampleNCX = `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <head><meta name="dtb:uid" content="urn:uuid:12345"/></head>
  <docTitle><text>Sample Book</text></docTitle>
  <navMap>
    <navPoint id="np1" playOrder="1">
      <navLabel><text>Chapter 1</text></navLabel>
      <content src="text/chap1.xhtml"/>
      <navPoint id="np2" playOrder="2">
        <navLabel><text>Section 1.1</text></navLabel>
        <content src="text/chap1.xhtml#s1"/>
      </navPoint>
    </navPoint>
    <navPoint id="np3" playOrder="3">
      <navLabel><text>Chapter 2</text></navLabel>
      <content src="text/chap2.xhtml"/>
    </navPoint>
  </navMap>
</ncx>`

const sampleChap1 = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
  <title>Chapter 1</title>
  <link rel="stylesheet" type="text/css" href="../styles/main.css"/>
</head>
<body>
  <h1>Chapter 1</h1>
  <p>It was a dark night.</p>
  <img src="../images/pic.png" alt="first"/>
  <img src="http://example.com/remote.png" alt="remote"/>
  <img src="../images/pic.png" alt="second"/>
</body>
</html>`

const sampleChap2 = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>Chapter 2</title></head>
<body><p>The end.</p></body>
</html>`

// sampleBookFiles returns a small ePub 3 book carrying both a Navigation
// Document and an NCX.
func sampleBookFiles() map[string]string {
	return map[string]string{
		"mimetype":               "application/epub+zip",
		"META-INF/container.xml": validContainerXML,
		"OEBPS/content.opf":      sampleOPF,
		"OEBPS/nav.xhtml":        sampleNav,
		"OEBPS/toc.ncx":          sampleNCX,
		"OEBPS/text/chap1.xhtml": sampleChap1,
		"OEBPS/text/chap2.xhtml": sampleChap2,
		"OEBPS/styles/main.css":  "body { margin: 0; }",
		"OEBPS/images/pic.png":   "PNGDATA",
		"OEBPS/images/cover.jpg": "JPEGDATA",
	}
}

// buildTestEPubBytes serialises files into a ZIP archive. The mimetype entry,
// when present, is written first; the rest follow in name order.
func buildTestEPubBytes(t testing.TB, files map[string]string) []byte {
	t.Helper()
	names := make([]string, 0, len(files))
	for name := range files {
		if name != "mimetype" {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	if _, ok := files["mimetype"]; ok {
		names = append([]string{"mimetype"}, names...)
	}

	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	for _, name := range names {
		fw, err := zw.Create(name)
		if err != nil {
			t.Fatalf("buildTestEPubBytes: create %s: %v", name, err)
		}
		if _, err := io.WriteString(fw, files[name]); err != nil {
			t.Fatalf("buildTestEPubBytes: write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("buildTestEPubBytes: close writer: %v", err)
	}
	return buf.Bytes()
}

// buildTestZip creates an in-memory ZIP archive and returns a reader over it.
func buildTestZip(t testing.TB, files map[string]string) *zip.Reader {
	t.Helper()
	data := buildTestEPubBytes(t, files)
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("buildTestZip: open reader: %v", err)
	}
	return r
}

// buildTestEPubFile writes an ePub archive to a temporary file and returns
// its path.
func buildTestEPubFile(t testing.TB, files map[string]string) string {
	t.Helper()
	fp := filepath.Join(t.TempDir(), "test.epub")
	if err := os.WriteFile(fp, buildTestEPubBytes(t, files), 0644); err != nil {
		t.Fatalf("buildTestEPubFile: write file: %v", err)
	}
	return fp
}

// buildTestEPubDir writes files as an unpacked book and returns the root.
func buildTestEPubDir(t testing.TB, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		fp := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
			t.Fatalf("buildTestEPubDir: mkdir %s: %v", name, err)
		}
		if err := os.WriteFile(fp, []byte(content), 0o644); err != nil {
			t.Fatalf("buildTestEPubDir: write %s: %v", name, err)
		}
	}
	return root
}

// openTestBook opens files as an in-memory book.
func openTestBook(t testing.TB, files map[string]string) *Book {
	t.Helper()
	book, err := OpenBytes(buildTestEPubBytes(t, files))
	if err != nil {
		t.Fatalf("OpenBytes() error = %v", err)
	}
	return book
}
