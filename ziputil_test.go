package epub

import (
	"errors"
	"strings"
	"testing"
)

func TestZipIndexLookup(t *testing.T) {
	zr := buildTestZip(t, map[string]string{
		"META-INF/container.xml":  "<container/>",
		"OEBPS/content.opf":       "<package/>",
		"OEBPS/Cafe\u0301.xhtml": "<html/>",
	})
	idx := newZipIndex(zr.File)

	tests := []struct {
		name   string
		lookup string
		want   string // expected matched Name, or "" if nil
	}{
		{"exact match", "META-INF/container.xml", "META-INF/container.xml"},
		{"case insensitive", "meta-inf/CONTAINER.XML", "META-INF/container.xml"},
		{"mixed case", "oebps/Content.OPF", "OEBPS/content.opf"},
		{"nfc form of nfd entry", "OEBPS/Caf\u00e9.xhtml", "OEBPS/Cafe\u0301.xhtml"},
		{"nfc and case", "oebps/CAF\u00c9.XHTML", "OEBPS/Cafe\u0301.xhtml"},
		{"not found", "nonexistent.file", ""},
		{"empty path", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := idx.lookup(tt.lookup)
			if tt.want == "" {
				if got != nil {
					t.Errorf("lookup(%q) = %q; want nil", tt.lookup, got.Name)
				}
				return
			}
			if got == nil {
				t.Fatalf("lookup(%q) = nil; want %q", tt.lookup, tt.want)
			}
			if got.Name != tt.want {
				t.Errorf("lookup(%q).Name = %q; want %q", tt.lookup, got.Name, tt.want)
			}
		})
	}
}

func TestZipIndexLookup_PrefersExactMatch(t *testing.T) {
	zr := buildTestZip(t, map[string]string{
		"File.txt": "exact",
		"file.txt": "lower",
	})
	idx := newZipIndex(zr.File)

	for _, name := range []string{"File.txt", "file.txt"} {
		got := idx.lookup(name)
		if got == nil || got.Name != name {
			t.Errorf("lookup(%q) = %v; want exact match", name, got)
		}
	}
}

func TestIsSafePath(t *testing.T) {
	tests := []struct {
		name string
		path string
		safe bool
	}{
		{"normal path", "OEBPS/content.opf", true},
		{"root file", "mimetype", true},
		{"nested", "a/b/c/d.txt", true},
		{"dot", ".", true},
		{"double dot", "..", false},
		{"traversal prefix", "../etc/passwd", false},
		{"deep traversal", "a/../../etc/passwd", false},
		{"absolute path", "/etc/passwd", false},
		{"traversal with trailing", "../", false},
		{"clean traversal", "OEBPS/../../secret", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isSafePath(tt.path)
			if got != tt.safe {
				t.Errorf("isSafePath(%q) = %v; want %v", tt.path, got, tt.safe)
			}
		})
	}
}

func TestReadZipFile(t *testing.T) {
	zr := buildTestZip(t, map[string]string{
		"test.txt":    "hello world",
		"empty.txt":   "",
		"subdir/a.md": "# Title",
	})
	idx := newZipIndex(zr.File)

	tests := []struct {
		entry string
		want  string
	}{
		{"test.txt", "hello world"},
		{"empty.txt", ""},
		{"subdir/a.md", "# Title"},
	}
	for _, tt := range tests {
		t.Run(tt.entry, func(t *testing.T) {
			f := idx.lookup(tt.entry)
			if f == nil {
				t.Fatalf("entry %q not found in zip", tt.entry)
			}
			got, err := readZipFile(f)
			if err != nil {
				t.Fatalf("readZipFile(%q) error = %v", tt.entry, err)
			}
			if string(got) != tt.want {
				t.Errorf("readZipFile(%q) = %q; want %q", tt.entry, string(got), tt.want)
			}
		})
	}
}

func TestReadZipFile_ZipBomb(t *testing.T) {
	zr := buildTestZip(t, map[string]string{
		"big.txt": strings.Repeat("A", 200),
	})

	_, err := readZipFileWithLimit(zr.File[0], 100)
	if err == nil {
		t.Fatal("readZipFileWithLimit should have returned an error for oversized entry")
	}
	if !strings.Contains(err.Error(), "too large") && !strings.Contains(err.Error(), "exceeds limit") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestZipBackendFetch(t *testing.T) {
	be, err := openMemoryBackend(buildTestEPubBytes(t, map[string]string{
		"META-INF/container.xml": "<container/>",
		"OEBPS/a.xhtml":          "<html/>",
	}))
	if err != nil {
		t.Fatalf("openMemoryBackend() error = %v", err)
	}
	defer be.close()

	data, err := be.fetchContainer()
	if err != nil {
		t.Fatalf("fetchContainer() error = %v", err)
	}
	if string(data) != "<container/>" {
		t.Errorf("fetchContainer() = %q, want %q", data, "<container/>")
	}

	_, err = be.fetch("OEBPS/missing.xhtml")
	if !errors.Is(err, ErrReader) || !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("fetch(missing) error = %v, want ErrReader and ErrFileNotFound", err)
	}
	var re *ReaderError
	if !errors.As(err, &re) || re.Path != "OEBPS/missing.xhtml" {
		t.Errorf("fetch(missing) error = %#v, want *ReaderError naming the path", err)
	}
}

func TestOpenMemoryBackend_NotZip(t *testing.T) {
	_, err := openMemoryBackend([]byte("this is not a zip archive"))
	if !errors.Is(err, ErrArchive) {
		t.Fatalf("openMemoryBackend() error = %v, want ErrArchive", err)
	}
}

func TestDirBackendFetch(t *testing.T) {
	root := buildTestEPubDir(t, map[string]string{
		"META-INF/container.xml": "<container/>",
		"OEBPS/a.xhtml":          "<html/>",
	})
	be, err := openBackend(root)
	if err != nil {
		t.Fatalf("openBackend() error = %v", err)
	}
	if _, ok := be.(*dirBackend); !ok {
		t.Fatalf("openBackend(dir) = %T, want *dirBackend", be)
	}

	data, err := be.fetch("OEBPS/a.xhtml")
	if err != nil {
		t.Fatalf("fetch() error = %v", err)
	}
	if string(data) != "<html/>" {
		t.Errorf("fetch() = %q, want %q", data, "<html/>")
	}

	if _, err := be.fetch("OEBPS/none.xhtml"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("fetch(missing) error = %v, want ErrFileNotFound", err)
	}
	if _, err := be.fetch("../outside.txt"); !errors.Is(err, ErrReader) {
		t.Errorf("fetch(traversal) error = %v, want ErrReader", err)
	}
}

func TestOpenBackend_Missing(t *testing.T) {
	_, err := openBackend("/nonexistent/book.epub")
	if !errors.Is(err, ErrReader) {
		t.Fatalf("openBackend() error = %v, want ErrReader", err)
	}
}
