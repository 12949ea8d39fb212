// Package mmap opens read-only files for random access.
//
// On unix systems the file is memory mapped so concurrent spectrum reads are
// plain memory copies; elsewhere, or when mapping fails, reads fall back to
// (*os.File).ReadAt. Both paths implement io.ReaderAt and are safe for
// concurrent use.
package mmap

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// File is a read-only random-access file.
type File struct {
	data []byte
	f    *os.File
	size int64
}

var _ io.ReaderAt = (*File)(nil)

// Open opens path for random access, memory mapping it when possible.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, fmt.Errorf("%s is not a regular file", path)
	}

	m := &File{f: f, size: info.Size()}
	if data, ok := mapFile(f, m.size); ok {
		m.data = data
	}

	return m, nil
}

// OpenNoMap opens path without memory mapping.
func OpenNoMap(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return &File{f: f, size: info.Size()}, nil
}

// Size returns the file size in bytes.
func (m *File) Size() int64 {
	return m.size
}

// Mapped reports whether the file is memory mapped.
func (m *File) Mapped() bool {
	return m.data != nil
}

// ReadAt implements io.ReaderAt.
func (m *File) ReadAt(p []byte, off int64) (int, error) {
	if m.data == nil {
		if m.f == nil {
			return 0, os.ErrClosed
		}

		return m.f.ReadAt(p, off)
	}

	if off < 0 {
		return 0, errors.New("mmap: negative offset")
	}
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}

	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}

	return n, nil
}

// Close unmaps and closes the file.
func (m *File) Close() error {
	var err error
	if m.data != nil {
		err = unmap(m.data)
		m.data = nil
	}
	if m.f != nil {
		if cerr := m.f.Close(); err == nil {
			err = cerr
		}
		m.f = nil
	}

	return err
}
