package epub

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// containerPath is the well-known location of container.xml in an ePub.
const containerPath = "META-INF/container.xml"

// backend fetches raw bytes from the storage behind a Book. There are two
// implementations: zipBackend and dirBackend.
//
// A backend is not safe for concurrent use.
type backend interface {
	fetchContainer() ([]byte, error)
	fetch(name string) ([]byte, error)
	close() error
}

// openBackend picks a dirBackend when name is a directory and a file-backed
// zipBackend otherwise.
func openBackend(name string) (backend, error) {
	info, err := os.Stat(name)
	if err != nil {
		return nil, &ReaderError{Path: name, Err: err}
	}
	if info.IsDir() {
		return &dirBackend{root: name}, nil
	}
	zrc, err := zip.OpenReader(name)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrArchive, name, err)
	}
	return newZipBackend(&zrc.Reader, zrc), nil
}

// openMemoryBackend reads an archive held entirely in memory.
func openMemoryBackend(data []byte) (backend, error) {
	return openReaderAtBackend(bytes.NewReader(data), int64(len(data)))
}

func openReaderAtBackend(r io.ReaderAt, size int64) (backend, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArchive, err)
	}
	return newZipBackend(zr, nil), nil
}

// zipBackend decompresses the named entry on each fetch.
type zipBackend struct {
	zr     *zip.Reader
	index  zipIndex
	closer io.Closer // non-nil only for file-backed archives
}

func newZipBackend(zr *zip.Reader, closer io.Closer) *zipBackend {
	return &zipBackend{zr: zr, index: newZipIndex(zr.File), closer: closer}
}

func (z *zipBackend) fetchContainer() ([]byte, error) {
	return z.fetch(containerPath)
}

func (z *zipBackend) fetch(name string) ([]byte, error) {
	f := z.index.lookup(name)
	if f == nil {
		return nil, &ReaderError{Path: name, Err: ErrFileNotFound}
	}
	data, err := readZipFile(f)
	if err != nil {
		return nil, &ReaderError{Path: name, Err: err}
	}
	return data, nil
}

func (z *zipBackend) close() error {
	if z.closer == nil {
		return nil
	}
	err := z.closer.Close()
	z.closer = nil
	return err
}

// dirBackend reads files from an unpacked book rooted at root.
type dirBackend struct {
	root string
}

func (d *dirBackend) fetchContainer() ([]byte, error) {
	return d.fetch(containerPath)
}

func (d *dirBackend) fetch(name string) ([]byte, error) {
	if !isSafePath(name) {
		return nil, &ReaderError{Path: name, Err: fmt.Errorf("%w: path escapes book root", fs.ErrInvalid)}
	}
	data, err := os.ReadFile(filepath.Join(d.root, filepath.FromSlash(path.Clean(name))))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%w: %w", ErrFileNotFound, err)
		}
		return nil, &ReaderError{Path: name, Err: err}
	}
	return data, nil
}

func (d *dirBackend) close() error { return nil }
