// Package convert runs whole-file conversions between mzML and msz.
//
// Both directions use the same pipeline: a single producer walks the input
// in order, a pool of workers does the per-spectrum codec work, and a
// collector writes results strictly in ordinal order. The output is therefore
// byte-identical for a given input and DataFormat whatever the worker count.
package convert

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/arloliu/mscompress/container"
	"github.com/arloliu/mscompress/internal/hash"
	"github.com/arloliu/mscompress/internal/logger"
	"github.com/arloliu/mscompress/internal/pool"
	"github.com/arloliu/mscompress/mzml"
)

// Stats summarizes one conversion.
type Stats struct {
	Spectra        int
	SourceBytes    int64
	ContainerBytes int64
	Duration       time.Duration
	// Checksum is the checksum of the restored document; Compress leaves it zero.
	Checksum uint32
}

// Ratio returns the source size divided by the container size.
func (s Stats) Ratio() float64 {
	if s.ContainerBytes == 0 {
		return 0
	}

	return float64(s.SourceBytes) / float64(s.ContainerBytes)
}

func (c *Config) log(ctx context.Context) logger.Logger {
	if c.logger != nil {
		return c.logger
	}

	return logger.FromContext(ctx)
}

// Compress converts the mzML document read from src into a container written
// to dst.
//
// On failure dst holds a partial, unreadable container; use CompressFile to
// have it removed.
func Compress(ctx context.Context, src io.Reader, dst io.WriteSeeker, opts ...Option) (Stats, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return Stats{}, err
	}

	w, err := container.NewWriter(dst, cfg.format, container.WithWriterLogger(cfg.log(ctx)))
	if err != nil {
		return Stats{}, err
	}

	return compress(ctx, src, w, cfg)
}

// CompressFile converts the mzML file at srcPath into a container at dstPath.
// The container appears at dstPath only if the conversion succeeds.
func CompressFile(ctx context.Context, srcPath string, dstPath string, opts ...Option) (Stats, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return Stats{}, err
	}
	if cfg.sourceName == "" {
		cfg.sourceName = filepath.Base(srcPath)
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return Stats{}, err
	}
	defer src.Close()

	w, err := container.Create(dstPath, cfg.format, container.WithWriterLogger(cfg.log(ctx)))
	if err != nil {
		return Stats{}, err
	}

	stats, err := compress(ctx, src, w, cfg)
	if err != nil {
		_ = w.Abort()
		return stats, err
	}

	return stats, w.Close()
}

func compress(ctx context.Context, src io.Reader, w *container.Writer, cfg *Config) (Stats, error) {
	start := time.Now()
	log := cfg.log(ctx).With("source", cfg.sourceName)

	var decOpts []mzml.DecoderOption
	if cfg.readBuffer > 0 {
		decOpts = append(decOpts, mzml.WithReadBufferSize(cfg.readBuffer))
	}
	dec, err := mzml.NewDecoder(src, decOpts...)
	if err != nil {
		return Stats{}, err
	}
	defer dec.Close()

	prologue, err := dec.Prologue()
	if err != nil {
		return Stats{}, err
	}
	if err := w.WritePrologue(prologue); err != nil {
		return Stats{}, err
	}

	df := w.Encoder().Format()
	log.Info("compressing",
		"workers", cfg.workers,
		"array_compression", df.ArrayCompression,
		"meta_compression", df.MetaCompression,
		"mz_transform", df.MzTransform,
		"intensity_transform", df.IntensityTransform,
	)

	enc := w.Encoder()
	st := stage[*mzml.Spectrum, *container.EncodedSpectrum]{
		workers: cfg.workers,
		next: func() (int, *mzml.Spectrum, error) {
			sp, err := dec.Next()
			if err != nil {
				return 0, nil, err
			}

			return sp.Ordinal, sp, nil
		},
		work:    enc.Encode,
		emit:    w.WriteSpectrum,
		release: (*mzml.Spectrum).Release,
	}
	if err := st.run(ctx); err != nil {
		log.Error("compression aborted", "written", w.Len(), "error", err)
		return Stats{Spectra: w.Len()}, err
	}

	epilogue, err := dec.Epilogue()
	if err != nil {
		return Stats{}, err
	}
	if err := w.WriteEpilogue(epilogue); err != nil {
		return Stats{}, err
	}

	if declared := dec.DeclaredCount(); declared >= 0 && declared != w.Len() {
		log.Warn("spectrumList count disagrees with the spectra found", "declared", declared, "found", w.Len())
	}

	if err := w.SetSourceInfo(cfg.sourceName, dec.Namespace(), uint64(dec.Offset())); err != nil { //nolint: gosec
		return Stats{}, err
	}
	if err := w.Finish(); err != nil {
		return Stats{}, err
	}

	stats := Stats{
		Spectra:        w.Len(),
		SourceBytes:    dec.Offset(),
		ContainerBytes: int64(w.Size()), //nolint: gosec
		Duration:       time.Since(start),
	}
	log.Info("compressed",
		"spectra", stats.Spectra,
		"source_bytes", stats.SourceBytes,
		"container_bytes", stats.ContainerBytes,
		"ratio", fmt.Sprintf("%.2f", stats.Ratio()),
		"duration", stats.Duration,
	)

	return stats, nil
}

// Decompress restores the mzML document stored in r and writes it to dst.
func Decompress(ctx context.Context, r *container.Reader, dst io.Writer, opts ...Option) (Stats, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return Stats{}, err
	}

	return decompress(ctx, r, dst, cfg)
}

// DecompressFile restores the container at srcPath into an mzML file at
// dstPath. The file appears at dstPath only if the conversion succeeds.
func DecompressFile(ctx context.Context, srcPath string, dstPath string, opts ...Option) (Stats, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return Stats{}, err
	}

	// every spectrum is read exactly once
	r, err := container.Open(srcPath, container.WithCacheSize(0), container.WithReaderLogger(cfg.log(ctx)))
	if err != nil {
		return Stats{}, err
	}
	defer r.Close()

	dir, base := filepath.Split(dstPath)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return Stats{}, err
	}

	stats, err := decompress(ctx, r, f, cfg)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(f.Name(), dstPath)
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return stats, err
	}

	return stats, nil
}

func decompress(ctx context.Context, r *container.Reader, dst io.Writer, cfg *Config) (Stats, error) {
	start := time.Now()
	log := cfg.log(ctx).With("container", r.Path())
	log.Info("decompressing", "workers", cfg.workers, "spectra", r.Len())

	bw := bufio.NewWriterSize(dst, 1<<20)
	digest := hash.NewDigest()
	out := &countingWriter{w: io.MultiWriter(bw, digest)}

	prologue, err := r.Prologue()
	if err != nil {
		return Stats{}, err
	}
	if _, err := out.Write(prologue); err != nil {
		return Stats{}, err
	}

	written := 0
	next := 0
	st := stage[int, *pool.ByteBuffer]{
		workers: cfg.workers,
		next: func() (int, int, error) {
			if next >= r.Len() {
				return 0, 0, io.EOF
			}
			i := next
			next++

			return i, i, nil
		},
		work: func(i int) (*pool.ByteBuffer, error) {
			sp, err := r.Spectrum(i)
			if err != nil {
				return nil, err
			}

			buf := pool.GetBlockBuffer()
			if buf.B, err = sp.AppendSource(buf.B); err != nil {
				pool.PutBlockBuffer(buf)
				return nil, err
			}

			return buf, nil
		},
		emit: func(buf *pool.ByteBuffer) error {
			_, err := out.Write(buf.B)
			pool.PutBlockBuffer(buf)
			if err != nil {
				return err
			}
			written++

			return nil
		},
	}
	if err := st.run(ctx); err != nil {
		log.Error("decompression aborted", "written", written, "error", err)
		return Stats{Spectra: written}, err
	}

	epilogue, err := r.Epilogue()
	if err != nil {
		return Stats{}, err
	}
	if _, err := out.Write(epilogue); err != nil {
		return Stats{}, err
	}
	if err := bw.Flush(); err != nil {
		return Stats{}, err
	}

	stats := Stats{
		Spectra:        written,
		SourceBytes:    out.n,
		ContainerBytes: r.Size(),
		Duration:       time.Since(start),
		Checksum:       digest.Sum32(),
	}
	if size := r.Division().SourceSize; size != 0 && uint64(out.n) != size && !r.Header().IsLossy() { //nolint: gosec
		log.Warn("restored size differs from the source", "source_bytes", size, "restored_bytes", out.n)
	}
	log.Info("decompressed",
		"spectra", stats.Spectra,
		"bytes", stats.SourceBytes,
		"checksum", fmt.Sprintf("%08x", stats.Checksum),
		"duration", stats.Duration,
	)

	return stats, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	if err != nil {
		return n, fmt.Errorf("write output: %w", err)
	}

	return n, nil
}
