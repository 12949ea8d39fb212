package convert

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/mscompress/container"
	"github.com/arloliu/mscompress/encoding"
	"github.com/arloliu/mscompress/errs"
	"github.com/arloliu/mscompress/format"
	"github.com/arloliu/mscompress/internal/hash"
	"github.com/arloliu/mscompress/internal/logger"
	"github.com/arloliu/mscompress/internal/mzmltest"
	"github.com/arloliu/mscompress/section"
)

func TestCompressFile_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*mzmltest.Options)
	}{
		{"Default", func(*mzmltest.Options) {}},
		{"NoCompression", func(o *mzmltest.Options) { o.Compression = format.SourceNone }},
		{"Indexed", func(o *mzmltest.Options) { o.Indexed = true; o.Chromatogram = true; o.ParamGroups = true }},
		{"EmptySpectrum", func(o *mzmltest.Options) { o.EmptySpectrum = true; o.Spectra = 30 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := mzmltest.DefaultOptions()
			tt.modify(&opts)
			dir := t.TempDir()
			src, want := mzmltest.WriteFile(t, dir, "run.mzML", opts)
			msz := filepath.Join(dir, "run.msz")
			out := filepath.Join(dir, "restored.mzML")

			cstats, err := CompressFile(context.Background(), src, msz, WithWorkers(3))
			require.NoError(t, err)
			require.Equal(t, len(want), cstats.Spectra)
			require.Positive(t, cstats.ContainerBytes)

			doc, err := os.ReadFile(src)
			require.NoError(t, err)
			require.Equal(t, int64(len(doc)), cstats.SourceBytes)

			dstats, err := DecompressFile(context.Background(), msz, out, WithWorkers(2))
			require.NoError(t, err)
			require.Equal(t, len(want), dstats.Spectra)

			restored, err := os.ReadFile(out)
			require.NoError(t, err)
			require.Equal(t, string(doc), string(restored))
			require.Equal(t, hash.Checksum32(doc), dstats.Checksum)

			r, err := container.Open(msz)
			require.NoError(t, err)
			defer r.Close()
			require.Equal(t, "run.mzML", r.Describe().SourceName)
		})
	}
}

func TestCompress_Lossy(t *testing.T) {
	opts := mzmltest.DefaultOptions()
	opts.Spectra = 25
	doc, want := mzmltest.Generate(opts)

	df := section.DefaultDataFormat()
	df.MzTransform = format.TransformDelta
	df.MzTolerance = 5e-4
	df.IntensityTransform = format.TransformLog
	df.IntensityTolerance = 1e-3

	path := filepath.Join(t.TempDir(), "run.msz")
	f, err := os.Create(path)
	require.NoError(t, err)
	_, err = Compress(context.Background(), bytes.NewReader(doc), f, WithFormat(df), WithSourceName("lossy.mzML"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	r, err := container.Open(path)
	require.NoError(t, err)
	defer r.Close()

	mzTol := encoding.ToleranceFor(format.RoleMz, df.MzTolerance)
	intTol := encoding.ToleranceFor(format.RoleIntensity, df.IntensityTolerance)
	for i := range want {
		sp, err := r.Spectrum(i)
		require.NoError(t, err)
		peaks, err := sp.Peaks()
		require.NoError(t, err)
		for j, p := range peaks {
			require.True(t, mzTol.Within(want[i].Mz[j], p.Mz))
			require.True(t, intTol.Within(want[i].Intensity[j], p.Intensity))
		}
	}

	var restored bytes.Buffer
	stats, err := Decompress(context.Background(), r, &restored)
	require.NoError(t, err)
	require.Equal(t, len(want), stats.Spectra)
	require.Equal(t, int64(restored.Len()), stats.SourceBytes)
}

func TestCompress_DeterministicAcrossWorkers(t *testing.T) {
	opts := mzmltest.DefaultOptions()
	opts.Spectra = 40
	opts.ParamGroups = true
	dir := t.TempDir()
	src, _ := mzmltest.WriteFile(t, dir, "run.mzML", opts)

	var first []byte
	for _, workers := range []int{1, 2, 7} {
		dst := filepath.Join(dir, "run.msz")
		_, err := CompressFile(context.Background(), src, dst, WithWorkers(workers))
		require.NoError(t, err)

		data, err := os.ReadFile(dst)
		require.NoError(t, err)
		if first == nil {
			first = data
			continue
		}
		require.Equal(t, first, data, "workers=%d", workers)
	}
}

func TestCompressFile_AbortRemovesOutput(t *testing.T) {
	opts := mzmltest.DefaultOptions()
	opts.Spectra = 20
	doc, _ := mzmltest.Generate(opts)

	// corrupt the base64 of the tenth spectrum's m/z array
	marker := []byte(`id="scan=10"`)
	at := bytes.Index(doc, marker)
	require.Positive(t, at)
	bin := bytes.Index(doc[at:], []byte("<binary>")) + at + len("<binary>")
	doc[bin] = '!'

	dir := t.TempDir()
	src := filepath.Join(dir, "bad.mzML")
	require.NoError(t, os.WriteFile(src, doc, 0o600))
	dst := filepath.Join(dir, "bad.msz")

	_, err := CompressFile(context.Background(), src, dst, WithWorkers(4))
	require.ErrorIs(t, err, errs.ErrEncoding)
	require.ErrorIs(t, err, errs.ErrMalformedArray)

	var ee *errs.EncodingError
	require.ErrorAs(t, err, &ee)
	require.Equal(t, 9, ee.Ordinal)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "only the source may remain")
}

func TestCompress_ParseError(t *testing.T) {
	opts := mzmltest.DefaultOptions()
	doc, _ := mzmltest.Generate(opts)
	cut := bytes.LastIndex(doc, []byte("</spectrum>"))
	broken := string(doc[:cut]) + "</spectrumX>"

	dst := filepath.Join(t.TempDir(), "out.msz")
	f, err := os.Create(dst)
	require.NoError(t, err)
	defer f.Close()

	_, err = Compress(context.Background(), strings.NewReader(broken), f, WithWorkers(2))
	var perr *errs.ParseError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, int64(cut), perr.Offset)
}

func TestCompress_Canceled(t *testing.T) {
	doc, _ := mzmltest.Generate(mzmltest.DefaultOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f, err := os.Create(filepath.Join(t.TempDir(), "out.msz"))
	require.NoError(t, err)
	defer f.Close()

	_, err = Compress(ctx, bytes.NewReader(doc), f)
	require.ErrorIs(t, err, context.Canceled)
}

func TestDecompress_CorruptContainer(t *testing.T) {
	dir := t.TempDir()
	src, _ := mzmltest.WriteFile(t, dir, "run.mzML", mzmltest.DefaultOptions())
	msz := filepath.Join(dir, "run.msz")
	_, err := CompressFile(context.Background(), src, msz)
	require.NoError(t, err)

	data, err := os.ReadFile(msz)
	require.NoError(t, err)
	r, err := container.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	data[r.Division().Entries[5].Intensity.Offset+section.BlockPrefixSize+1] ^= 0xff
	require.NoError(t, os.WriteFile(msz, data, 0o600))

	out := filepath.Join(dir, "restored.mzML")
	_, err = DecompressFile(context.Background(), msz, out)
	require.ErrorIs(t, err, errs.ErrContainerIntegrity)

	_, err = os.Stat(out)
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestOptions(t *testing.T) {
	_, err := newConfig(WithWorkers(0))
	require.Error(t, err)

	df := section.DefaultDataFormat()
	df.IntensityTransform = format.TransformDelta
	_, err = newConfig(WithFormat(df))
	require.ErrorIs(t, err, errs.ErrInvalidDataFormat)

	var buf bytes.Buffer
	l := logger.Text(&buf, logger.ParseLevel("debug"))
	cfg, err := newConfig(WithLogger(l))
	require.NoError(t, err)
	require.Equal(t, l, cfg.log(context.Background()))

	cfg, err = newConfig()
	require.NoError(t, err)
	ctx := logger.WithContext(context.Background(), l)
	require.Equal(t, l, cfg.log(ctx))
}

func TestStage_Order(t *testing.T) {
	const n = 200
	next := 0
	var got []int
	var released atomic.Int32

	st := stage[int, int]{
		workers: 8,
		next: func() (int, int, error) {
			if next == n {
				return 0, 0, io.EOF
			}
			next++

			return next - 1, next - 1, nil
		},
		work: func(i int) (int, error) {
			return i * 2, nil
		},
		emit: func(v int) error {
			got = append(got, v)
			return nil
		},
		release: func(int) { released.Add(1) },
	}
	require.NoError(t, st.run(context.Background()))
	require.Len(t, got, n)
	require.Equal(t, int32(n), released.Load())
	for i, v := range got {
		require.Equal(t, i*2, v)
	}
}

func TestStage_Error(t *testing.T) {
	boom := errors.New("boom")
	next := 0

	st := stage[int, int]{
		workers: 4,
		next: func() (int, int, error) {
			next++
			return next - 1, next - 1, nil
		},
		work: func(i int) (int, error) {
			if i == 50 {
				return 0, boom
			}

			return i, nil
		},
		emit: func(int) error { return nil },
	}
	require.ErrorIs(t, st.run(context.Background()), boom)
}
