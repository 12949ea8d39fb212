package mscompress

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/mscompress/convert"
	"github.com/arloliu/mscompress/errs"
	"github.com/arloliu/mscompress/format"
	"github.com/arloliu/mscompress/internal/mzmltest"
)

func TestSniff(t *testing.T) {
	dir := t.TempDir()
	src, _ := mzmltest.WriteFile(t, dir, "run.mzML", mzmltest.DefaultOptions())
	msz := filepath.Join(dir, "run.bin")
	_, err := convert.CompressFile(context.Background(), src, msz)
	require.NoError(t, err)

	write := func(name string, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		return path
	}

	tests := []struct {
		name string
		path string
		want format.FileKind
		err  error
	}{
		{"Source", src, format.KindSource, nil},
		{"ContainerByMagic", msz, format.KindContainer, nil},
		{"BareRoot", write("bare.xml", "\n  <mzML xmlns=\"x\"></mzML>"), format.KindSource, nil},
		{"ByteOrderMark", write("bom.dat", "\xef\xbb\xbf<indexedmzML>"), format.KindSource, nil},
		{"SourceExtension", write("empty.MZML", ""), format.KindSource, nil},
		{"ContainerExtension", write("empty.msz", "junk"), format.KindContainer, nil},
		{"Unknown", write("notes.txt", "hello"), 0, errs.ErrUnknownFileKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, err := Sniff(tt.path)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, kind)
		})
	}

	_, err = Sniff(filepath.Join(dir, "missing.mzML"))
	require.Error(t, err)
}

func TestRead_BothKinds(t *testing.T) {
	opts := mzmltest.DefaultOptions()
	opts.Compression = format.SourceNone
	opts.ParamGroups = true
	dir := t.TempDir()
	src, want := mzmltest.WriteFile(t, dir, "run.mzML", opts)
	msz := filepath.Join(dir, "run.msz")

	source, err := Read(src)
	require.NoError(t, err)
	defer source.Close()
	require.Equal(t, format.KindSource, source.Kind())

	_, err = source.Compress(context.Background(), msz, convert.WithWorkers(2))
	require.NoError(t, err)

	packed, err := Read(msz)
	require.NoError(t, err)
	defer packed.Close()
	require.Equal(t, format.KindContainer, packed.Kind())

	for _, f := range []File{source, packed} {
		t.Run(f.Kind().String(), func(t *testing.T) {
			require.Equal(t, len(want), f.Len())

			d := f.Describe()
			require.Equal(t, f.Kind().String(), d.Kind)
			require.Equal(t, len(want), d.SpectrumCount)
			require.Equal(t, mzmltest.Namespace, d.Namespace)
			require.Positive(t, d.FileSize)

			n := 0
			for i, sp := range f.Spectra() {
				require.Equal(t, n, i)
				require.Equal(t, i, sp.Ordinal())

				size, err := sp.Size()
				require.NoError(t, err)
				require.Equal(t, len(want[i].Mz), size)

				mz, err := sp.Mz()
				require.NoError(t, err)
				require.Equal(t, want[i].Mz, mz)

				intensity, err := sp.Intensity()
				require.NoError(t, err)
				require.Equal(t, want[i].Intensity, intensity)

				peaks, err := sp.Peaks()
				require.NoError(t, err)
				require.Len(t, peaks, size)
				n++
			}
			require.Equal(t, len(want), n)

			_, err := f.Spectrum(f.Len())
			require.ErrorIs(t, err, errs.ErrIndexOutOfRange)
		})
	}

	t.Run("SameBinaries", func(t *testing.T) {
		for i := range want {
			a, err := source.MzBinary(i)
			require.NoError(t, err)
			b, err := packed.MzBinary(i)
			require.NoError(t, err)
			require.Equal(t, a, b)

			a, err = source.IntensityBinary(i)
			require.NoError(t, err)
			b, err = packed.IntensityBinary(i)
			require.NoError(t, err)
			require.Equal(t, a, b)
		}
	})

	t.Run("SameXML", func(t *testing.T) {
		for _, i := range []int{0, 5, len(want) - 1} {
			a, err := source.XML(i)
			require.NoError(t, err)
			b, err := packed.XML(i)
			require.NoError(t, err)
			require.Equal(t, string(a), string(b))
		}
	})

	t.Run("NotImplemented", func(t *testing.T) {
		_, err := source.Decompress(context.Background(), filepath.Join(dir, "x.mzML"))
		require.ErrorIs(t, err, errs.ErrNotImplemented)
		_, err = packed.Compress(context.Background(), filepath.Join(dir, "x.msz"))
		require.ErrorIs(t, err, errs.ErrNotImplemented)
	})

	t.Run("Decompress", func(t *testing.T) {
		out := filepath.Join(dir, "restored.mzML")
		stats, err := packed.Decompress(context.Background(), out)
		require.NoError(t, err)
		require.Equal(t, len(want), stats.Spectra)

		a, err := os.ReadFile(src)
		require.NoError(t, err)
		b, err := os.ReadFile(out)
		require.NoError(t, err)
		require.Equal(t, a, b)
	})
}

func TestRead_Describe(t *testing.T) {
	opts := mzmltest.DefaultOptions()
	opts.Indexed = true
	dir := t.TempDir()
	src, _ := mzmltest.WriteFile(t, dir, "run.mzML", opts)

	f, err := Read(src)
	require.NoError(t, err)
	defer f.Close()

	d := f.Describe()
	require.NotNil(t, d.Source)
	require.Nil(t, d.Container)
	require.Equal(t, opts.Spectra, d.Source.DeclaredCount)
	require.Less(t, d.Source.FirstOffset, d.Source.LastOffset)

	msz := filepath.Join(dir, "run.msz")
	_, err = f.Compress(context.Background(), msz)
	require.NoError(t, err)

	c, err := Read(msz)
	require.NoError(t, err)
	defer c.Close()

	d = c.Describe()
	require.Nil(t, d.Source)
	require.NotNil(t, d.Container)
	require.Equal(t, msz, d.Path)
	require.Equal(t, "run.mzML", d.Container.SourceName)
}

func TestRead_MarkupBetweenSpectra(t *testing.T) {
	doc, want := mzmltest.Generate(mzmltest.DefaultOptions())
	comment := "<!-- calibration pause -->\n        "
	doc = bytes.Replace(doc, []byte(`<spectrum index="2"`), []byte(comment+`<spectrum index="2"`), 1)
	require.Contains(t, string(doc), comment)

	dir := t.TempDir()
	src := filepath.Join(dir, "run.mzML")
	require.NoError(t, os.WriteFile(src, doc, 0o600))
	msz := filepath.Join(dir, "run.msz")
	_, err := convert.CompressFile(context.Background(), src, msz)
	require.NoError(t, err)

	source, err := Read(src)
	require.NoError(t, err)
	defer source.Close()
	packed, err := Read(msz)
	require.NoError(t, err)
	defer packed.Close()

	for i := range want {
		a, err := source.XML(i)
		require.NoError(t, err)
		b, err := packed.XML(i)
		require.NoError(t, err)
		require.Equal(t, string(a), string(b), "spectrum %d", i)
		require.True(t, bytes.HasPrefix(b, []byte("<spectrum ")), "spectrum %d", i)
	}

	out := filepath.Join(dir, "restored.mzML")
	_, err = packed.Decompress(context.Background(), out)
	require.NoError(t, err)
	restored, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, doc, restored)
}

func TestRead_Missing(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.msz"))
	require.Error(t, err)
}
