// Package mscompress compresses mzML mass spectrometry runs into the msz
// container format and reads them back.
//
// An msz container stores every spectrum as three independently compressed
// blocks (structural markup, m/z array, intensity array) behind a trailing
// index, so single spectra can be read without decompressing the run, and the
// original document can be restored byte for byte when lossless transforms
// are used.
//
// # Core Features
//
//   - Streaming conversion with a parallel worker pool and deterministic output
//   - Per-role array transforms: lossless, cast32, delta (absolute tolerance)
//     and log (relative tolerance), each verified against its tolerance
//   - Block compression with zstd, s2, lz4 or zlib
//   - xxHash checksums on every block, the index and the header
//   - Random access to spectra of both mzML files and containers
//
// # Basic Usage
//
// Compressing and restoring a run:
//
//	stats, err := convert.CompressFile(ctx, "run.mzML", "run.msz")
//	stats, err = convert.DecompressFile(ctx, "run.msz", "restored.mzML")
//
// Reading spectra from either kind of file:
//
//	f, err := mscompress.Read("run.msz")
//	if err != nil {
//	    return err
//	}
//	defer f.Close()
//
//	for i, sp := range f.Spectra() {
//	    peaks, err := sp.Peaks()
//	    ...
//	}
//
// # Package Structure
//
// This package is a thin polymorphic surface over the container, mzml and
// convert packages. Use those packages directly for fine-grained control.
package mscompress

import (
	"bytes"
	"context"
	"errors"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/arloliu/mscompress/container"
	"github.com/arloliu/mscompress/convert"
	"github.com/arloliu/mscompress/errs"
	"github.com/arloliu/mscompress/format"
	"github.com/arloliu/mscompress/section"
)

// Peak is one (m/z, intensity) pair.
type Peak = container.Peak

// Spectrum is one spectrum of a File. Accessors decode on first use.
type Spectrum interface {
	// Ordinal returns the zero-based position of the spectrum in its run.
	Ordinal() int
	// Size returns the number of peaks.
	Size() (int, error)
	Mz() ([]float64, error)
	Intensity() ([]float64, error)
	Peaks() ([]Peak, error)
	// MzBinary returns the m/z array as packed little-endian floats of the
	// source width.
	MzBinary() ([]byte, error)
	// IntensityBinary returns the intensity array as packed little-endian
	// floats of the source width.
	IntensityBinary() ([]byte, error)
	// XML returns the spectrum element.
	XML() ([]byte, error)
}

// File is an opened mzML run or msz container.
//
// Operations that make no sense for the file kind, such as decompressing an
// mzML file, return errs.ErrNotImplemented.
type File interface {
	Kind() format.FileKind
	Path() string
	Describe() Description
	Len() int
	Spectrum(i int) (Spectrum, error)
	// Spectra iterates over every spectrum in ordinal order. Spectra load
	// lazily, so errors surface from their accessors.
	Spectra() iter.Seq2[int, Spectrum]
	MzBinary(i int) ([]byte, error)
	IntensityBinary(i int) ([]byte, error)
	XML(i int) ([]byte, error)
	// Compress converts an mzML file into a container at dst.
	Compress(ctx context.Context, dst string, opts ...convert.Option) (convert.Stats, error)
	// Decompress restores a container into an mzML file at dst.
	Decompress(ctx context.Context, dst string, opts ...convert.Option) (convert.Stats, error)
	Close() error
}

// Description summarizes a File.
type Description struct {
	Kind          string                 `json:"kind" yaml:"kind"`
	Path          string                 `json:"path" yaml:"path"`
	FileSize      int64                  `json:"file_size" yaml:"file_size"`
	SpectrumCount int                    `json:"spectrum_count" yaml:"spectrum_count"`
	Namespace     string                 `json:"namespace" yaml:"namespace"`
	Container     *container.Description `json:"container,omitempty" yaml:"container,omitempty"`
	Source        *SourceDescription     `json:"source,omitempty" yaml:"source,omitempty"`
}

// SourceDescription holds the details specific to mzML files.
type SourceDescription struct {
	// DeclaredCount is the spectrumList count attribute, or -1 when absent.
	DeclaredCount int `json:"declared_count" yaml:"declared_count"`
	// FirstOffset and LastOffset are the byte offsets of the first and last
	// spectrum elements.
	FirstOffset int64 `json:"first_offset" yaml:"first_offset"`
	LastOffset  int64 `json:"last_offset" yaml:"last_offset"`
	ParamGroups int   `json:"param_groups" yaml:"param_groups"`
}

const sniffSize = 512

// Sniff reports whether path holds an mzML run or an msz container.
//
// The container magic is checked first, then the start of the content for an
// XML declaration or an mzML root element, and finally the file extension.
func Sniff(path string) (format.FileKind, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	head := make([]byte, sniffSize)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return 0, err
	}

	return sniffBytes(head[:n], path)
}

func sniffBytes(head []byte, path string) (format.FileKind, error) {
	if section.HasMagic(head) {
		return format.KindContainer, nil
	}

	text := bytes.TrimPrefix(head, []byte("\xef\xbb\xbf"))
	text = bytes.TrimLeft(text, " \t\r\n")
	for _, prefix := range []string{"<?xml", "<mzML", "<indexedmzML"} {
		if bytes.HasPrefix(text, []byte(prefix)) {
			return format.KindSource, nil
		}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".msz":
		return format.KindContainer, nil
	case ".mzml":
		return format.KindSource, nil
	default:
		return 0, errs.ErrUnknownFileKind
	}
}

// Read opens path as an mzML run or msz container, whichever Sniff reports.
// Reader options apply to containers only.
func Read(path string, opts ...container.ReaderOption) (File, error) {
	kind, err := Sniff(path)
	if err != nil {
		return nil, err
	}

	if kind == format.KindContainer {
		c, err := OpenContainer(path, opts...)
		if err != nil {
			return nil, err
		}

		return c, nil
	}

	s, err := OpenSource(path)
	if err != nil {
		return nil, err
	}

	return s, nil
}
