package epub

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// maxDecompressSize is the maximum allowed decompressed size for a single ZIP entry.
// This guards against zip bomb attacks. Defaults to 256 MB.
const maxDecompressSize int64 = 256 * 1024 * 1024

// zipIndex resolves entry names with three lookups, in order: exact, Unicode
// NFC normalised, case-insensitive. The first entry wins in each map.
type zipIndex struct {
	exact map[string]*zip.File
	nfc   map[string]*zip.File
	lower map[string]*zip.File
}

func newZipIndex(files []*zip.File) zipIndex {
	idx := zipIndex{
		exact: make(map[string]*zip.File, len(files)),
		nfc:   make(map[string]*zip.File, len(files)),
		lower: make(map[string]*zip.File, len(files)),
	}
	for _, f := range files {
		if _, ok := idx.exact[f.Name]; !ok {
			idx.exact[f.Name] = f
		}
		n := norm.NFC.String(f.Name)
		if _, ok := idx.nfc[n]; !ok {
			idx.nfc[n] = f
		}
		l := strings.ToLower(n)
		if _, ok := idx.lower[l]; !ok {
			idx.lower[l] = f
		}
	}
	return idx
}

// lookup returns the entry for name, or nil.
func (idx zipIndex) lookup(name string) *zip.File {
	if f, ok := idx.exact[name]; ok {
		return f
	}
	n := norm.NFC.String(name)
	if f, ok := idx.nfc[n]; ok {
		return f
	}
	if f, ok := idx.lower[strings.ToLower(n)]; ok {
		return f
	}
	return nil
}

// isSafePath checks whether p is a safe archive-internal path that does not
// escape the archive root via path traversal (e.g., "../../../etc/passwd").
func isSafePath(p string) bool {
	cleaned := path.Clean(p)
	if strings.HasPrefix(cleaned, "/") {
		return false
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return false
	}
	return true
}

// readZipFile reads the full contents of a ZIP entry.
// It enforces maxDecompressSize to guard against zip bombs and validates
// that the entry path is safe (no path traversal).
func readZipFile(f *zip.File) ([]byte, error) {
	return readZipFileWithLimit(f, maxDecompressSize)
}

// readZipFileWithLimit is the implementation of readZipFile with a configurable
// size limit. It is separated to allow tests to use a smaller limit.
func readZipFileWithLimit(f *zip.File, limit int64) ([]byte, error) {
	if !isSafePath(f.Name) {
		return nil, fmt.Errorf("unsafe zip entry path: %s", f.Name)
	}

	if f.UncompressedSize64 > uint64(limit) {
		return nil, fmt.Errorf("zip entry too large: %d bytes (max %d)", f.UncompressedSize64, limit)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open entry: %w", ErrArchive, err)
	}
	defer rc.Close()

	// Read up to limit+1 to detect if the actual decompressed data
	// exceeds the limit (the declared size might be wrong/forged).
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: decompress entry: %w", ErrArchive, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("zip entry decompressed size exceeds limit (%d bytes)", limit)
	}

	return data, nil
}
