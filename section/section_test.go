package section

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/mscompress/errs"
	"github.com/arloliu/mscompress/format"
)

func TestDataFormat_Validate(t *testing.T) {
	t.Run("Default", func(t *testing.T) {
		df := DefaultDataFormat()
		require.NoError(t, df.Validate())
		require.False(t, df.IsLossy())
	})

	t.Run("LossyNeedsTolerance", func(t *testing.T) {
		df := DefaultDataFormat()
		df.MzTransform = format.TransformDelta
		require.ErrorIs(t, df.Validate(), errs.ErrInvalidTolerance)

		df.MzTolerance = 0.001
		require.NoError(t, df.Validate())
		require.True(t, df.IsLossy())
	})

	t.Run("RoleRestrictions", func(t *testing.T) {
		df := DefaultDataFormat()
		df.MzTransform = format.TransformLog
		df.MzTolerance = 0.01
		require.ErrorIs(t, df.Validate(), errs.ErrInvalidDataFormat)

		df = DefaultDataFormat()
		df.IntensityTransform = format.TransformDelta
		df.IntensityTolerance = 0.01
		require.ErrorIs(t, df.Validate(), errs.ErrInvalidDataFormat)
	})

	t.Run("BadCompression", func(t *testing.T) {
		df := DefaultDataFormat()
		df.ArrayCompression = 0
		require.ErrorIs(t, df.Validate(), errs.ErrInvalidDataFormat)
	})

	t.Run("Accessors", func(t *testing.T) {
		df := DefaultDataFormat()
		df.IntensityTransform = format.TransformLog
		df.IntensityTolerance = 0.05
		require.Equal(t, format.TransformLossless, df.Transform(format.RoleMz))
		require.Equal(t, format.TransformLog, df.Transform(format.RoleIntensity))
		require.InDelta(t, 0.05, df.Tolerance(format.RoleIntensity), 0)
	})
}

func TestHeader_RoundTrip(t *testing.T) {
	df := DefaultDataFormat()
	df.MzTransform = format.TransformCast32
	df.MzTolerance = 1e-4
	df.SourceCompression = format.SourceZlib
	df.MzWidth = format.Width64
	df.IntensityWidth = format.Width32

	h := NewHeader(df)
	h.SpectrumCount = 42
	h.DivisionOffset = 1000
	h.DivisionLength = 200
	h.DivisionChecksum = 0xdeadbeef
	require.True(t, h.IsLossy())

	data := h.Bytes()
	require.Len(t, data, HeaderSize)
	require.True(t, HasMagic(data))

	parsed, err := ParseHeader(data)
	require.NoError(t, err)
	require.Equal(t, *h, parsed)

	headerOf := func() Header { return parsed }
	require.True(t, headerOf().IsLossy())
	require.False(t, NewHeader(DefaultDataFormat()).IsLossy())
}

func TestHeader_ParseErrors(t *testing.T) {
	valid := NewHeader(DefaultDataFormat()).Bytes()

	t.Run("Short", func(t *testing.T) {
		_, err := ParseHeader(valid[:10])
		require.ErrorIs(t, err, errs.ErrInvalidHeaderSize)
	})

	t.Run("Magic", func(t *testing.T) {
		data := append([]byte(nil), valid...)
		data[0] ^= 0xff
		_, err := ParseHeader(data)
		require.ErrorIs(t, err, errs.ErrInvalidMagic)
		require.False(t, HasMagic(data))
	})

	t.Run("Version", func(t *testing.T) {
		data := append([]byte(nil), valid...)
		data[4] = 9
		_, err := ParseHeader(data)
		require.ErrorIs(t, err, errs.ErrUnsupportedVersion)
	})

	t.Run("Checksum", func(t *testing.T) {
		data := append([]byte(nil), valid...)
		data[40] ^= 0x01
		_, err := ParseHeader(data)
		require.ErrorIs(t, err, errs.ErrChecksumMismatch)
	})
}

func TestBlock(t *testing.T) {
	payload := []byte("<spectrum index=\"0\">")

	block, err := AppendBlockPrefix(nil, payload)
	require.NoError(t, err)
	block = append(block, payload...)
	require.Len(t, block, BlockPrefixSize+len(payload))

	got, err := ParseBlock(block)
	require.NoError(t, err)
	require.Equal(t, payload, got)

	t.Run("Corrupt", func(t *testing.T) {
		bad := append([]byte(nil), block...)
		bad[len(bad)-1] ^= 0x20
		_, err := ParseBlock(bad)
		require.ErrorIs(t, err, errs.ErrContainerIntegrity)
		require.ErrorIs(t, err, errs.ErrChecksumMismatch)
	})

	t.Run("Truncated", func(t *testing.T) {
		_, err := ParseBlock(block[:len(block)-2])
		require.ErrorIs(t, err, errs.ErrContainerIntegrity)

		_, err = ParseBlock(block[:3])
		require.ErrorIs(t, err, errs.ErrContainerIntegrity)
	})

	t.Run("Ref", func(t *testing.T) {
		ref := BlockRef{Offset: 64, Length: uint64(len(block))}
		require.Equal(t, uint64(64+len(block)), ref.End())
		require.Equal(t, uint64(len(payload)), ref.PayloadLength())
		require.Equal(t, uint64(0), BlockRef{Length: 3}.PayloadLength())
	})
}

func sampleDivision() *Division {
	src64 := ArraySource{Compression: format.SourceZlib, Width: format.Width64}
	src32 := ArraySource{Compression: format.SourceNone, Width: format.Width32}

	return &Division{
		SourceSize: 12345,
		Prologue:   BlockRef{Offset: 64, Length: 100},
		Namespace:  "http://psi.hupo.org/ms/mzml",
		SourceName: "run.mzML",
		Entries: []DivisionEntry{
			{
				Meta:        BlockRef{Offset: 164, Length: 50},
				Mz:          BlockRef{Offset: 214, Length: 30},
				Intensity:   BlockRef{Offset: 244, Length: 20},
				ArrayLength: 3,
				MzSource:    src64,
				IntSource:   src32,
			},
			{
				Meta:        BlockRef{Offset: 264, Length: 40},
				Mz:          BlockRef{Offset: 304, Length: 8},
				Intensity:   BlockRef{Offset: 312, Length: 8},
				ArrayLength: 0,
				MzSource:    src64,
				IntSource:   src64,
			},
		},
		Epilogue: BlockRef{Offset: 320, Length: 30},
	}
}

func TestDivision_RoundTrip(t *testing.T) {
	d := sampleDivision()

	data, err := d.Bytes()
	require.NoError(t, err)
	require.Len(t, data, d.Size())

	parsed, err := ParseDivision(data)
	require.NoError(t, err)
	require.Equal(t, d, parsed)
	require.NoError(t, parsed.Validate(350))

	t.Run("Empty", func(t *testing.T) {
		empty := &Division{
			Prologue: BlockRef{Offset: 64, Length: 20},
			Epilogue: BlockRef{Offset: 84, Length: 8},
			Entries:  []DivisionEntry{},
		}
		data, err := empty.Bytes()
		require.NoError(t, err)

		parsed, err := ParseDivision(data)
		require.NoError(t, err)
		require.Empty(t, parsed.Entries)
		require.NoError(t, parsed.Validate(92))
	})

	t.Run("Truncated", func(t *testing.T) {
		_, err := ParseDivision(data[:len(data)-1])
		require.ErrorIs(t, err, errs.ErrInvalidDivisionSize)

		_, err = ParseDivision(data[:10])
		require.ErrorIs(t, err, errs.ErrInvalidDivisionSize)
	})
}

func TestDivision_Validate(t *testing.T) {
	t.Run("BeyondLimit", func(t *testing.T) {
		require.ErrorIs(t, sampleDivision().Validate(349), errs.ErrInvalidBlockRef)
	})

	t.Run("Overlap", func(t *testing.T) {
		d := sampleDivision()
		d.Entries[1].Meta.Offset = 250
		require.ErrorIs(t, d.Validate(350), errs.ErrInvalidBlockRef)
	})

	t.Run("InsideHeader", func(t *testing.T) {
		d := sampleDivision()
		d.Prologue.Offset = 10
		require.ErrorIs(t, d.Validate(350), errs.ErrInvalidBlockRef)
	})

	t.Run("BadSource", func(t *testing.T) {
		d := sampleDivision()
		d.Entries[0].MzSource.Width = 3
		require.ErrorIs(t, d.Validate(350), errs.ErrInvalidBlockRef)
	})
}

func TestFooter(t *testing.T) {
	f := Footer{DivisionOffset: 4096}
	data := append([]byte("body"), f.Bytes()...)

	parsed, err := ParseFooter(data)
	require.NoError(t, err)
	require.Equal(t, f, parsed)

	_, err = ParseFooter(data[:len(data)-1])
	require.ErrorIs(t, err, errs.ErrContainerIntegrity)

	_, err = ParseFooter([]byte("short"))
	require.ErrorIs(t, err, errs.ErrContainerIntegrity)
}

func TestFragment(t *testing.T) {
	raw := []byte(`<binaryDataArray encodedLength="8"><binary>AAAAAA==</binary></binaryDataArray>`)
	lenStart := len(`<binaryDataArray encodedLength="`)
	binStart := len(`<binaryDataArray encodedLength="8"><binary>`)

	cuts := []Cut{
		{Start: lenStart, End: lenStart + 1, Kind: HoleMzEncodedLength},
		{Start: binStart, End: binStart + 8, Kind: HoleMzBinary},
	}

	frag, err := BuildFragment(nil, raw, 0, cuts)
	require.NoError(t, err)
	require.Equal(t, `<binaryDataArray encodedLength=""><binary></binary></binaryDataArray>`, string(frag.Text))
	require.Len(t, frag.Holes, 2)

	t.Run("SerializeAndSplice", func(t *testing.T) {
		parsed, err := ParseFragment(frag.AppendTo(nil))
		require.NoError(t, err)
		require.Equal(t, frag, parsed)

		var fill Fill
		fill.Set(HoleMzEncodedLength, []byte("12"))
		fill.Set(HoleMzBinary, []byte("AAAAAAAAAAA="))
		want := `<binaryDataArray encodedLength="12"><binary>AAAAAAAAAAA=</binary></binaryDataArray>`
		require.Equal(t, want, string(parsed.AppendSpliced(nil, &fill)))
		require.Equal(t, len(want), parsed.SplicedLen(&fill))
	})

	t.Run("NoHoles", func(t *testing.T) {
		frag, err := BuildFragment(nil, []byte("<spectrum/>"), 0, nil)
		require.NoError(t, err)

		parsed, err := ParseFragment(frag.AppendTo(nil))
		require.NoError(t, err)
		require.Equal(t, "<spectrum/>", string(parsed.AppendSpliced(nil, &Fill{})))
	})

	t.Run("HoleAtEnd", func(t *testing.T) {
		frag, err := BuildFragment(nil, []byte("abc"), 0, []Cut{{Start: 3, End: 3, Kind: HoleIntensityBinary}})
		require.NoError(t, err)

		parsed, err := ParseFragment(frag.AppendTo(nil))
		require.NoError(t, err)

		var fill Fill
		fill.Set(HoleIntensityBinary, []byte("xyz"))
		require.Equal(t, "abcxyz", string(parsed.AppendSpliced(nil, &fill)))
	})

	t.Run("InvalidCuts", func(t *testing.T) {
		_, err := BuildFragment(nil, raw, 0, []Cut{{Start: 5, End: 2, Kind: HoleMzBinary}})
		require.ErrorIs(t, err, errs.ErrInvalidFragment)

		_, err = BuildFragment(nil, raw, 0, []Cut{{Start: 0, End: 1, Kind: 9}})
		require.ErrorIs(t, err, errs.ErrInvalidFragment)

		_, err = BuildFragment(nil, raw, 10, []Cut{{Start: 5, End: 6, Kind: HoleMzBinary}})
		require.ErrorIs(t, err, errs.ErrInvalidFragment)

		_, err = BuildFragment(nil, raw, len(raw)+1, nil)
		require.ErrorIs(t, err, errs.ErrInvalidFragment)
	})

	t.Run("ElementStart", func(t *testing.T) {
		prefix := "\n  <!-- scan 2 -->\n  "
		raw := []byte(prefix + `<spectrum><binary>AAAA</binary></spectrum>`)
		binStart := len(prefix + `<spectrum><binary>`)

		frag, err := BuildFragment(nil, raw, len(prefix), []Cut{{Start: binStart, End: binStart + 4, Kind: HoleMzBinary}})
		require.NoError(t, err)

		parsed, err := ParseFragment(frag.AppendTo(nil))
		require.NoError(t, err)
		require.Equal(t, len(prefix), parsed.Start)

		var fill Fill
		fill.Set(HoleMzBinary, []byte("BBBBBBBB"))
		out := parsed.AppendSpliced(nil, &fill)
		require.Equal(t, prefix, string(out[:parsed.Start]))
		require.Equal(t, `<spectrum><binary>BBBBBBBB</binary></spectrum>`, string(out[parsed.Start:]))
	})

	t.Run("Corrupt", func(t *testing.T) {
		hole := func(dst []byte, delta uint64, kind HoleKind) []byte {
			return append(binary.AppendUvarint(dst, delta), byte(kind))
		}

		wrapping := []byte{0, 2}
		wrapping = hole(wrapping, 5, HoleMzBinary)
		wrapping = hole(wrapping, math.MaxUint64-2, HoleIntensityBinary)
		wrapping = append(wrapping, "abcdefgh"...)

		overrun := []byte{0, 2}
		overrun = hole(overrun, 3, HoleMzBinary)
		overrun = hole(overrun, 4, HoleIntensityBinary)
		overrun = append(overrun, "abcd"...)

		tests := []struct {
			name string
			data []byte
		}{
			{"Empty", nil},
			{"UnknownKind", []byte{0, 1, 0, 7}},
			{"DeltaBeyondData", []byte{0, 1, 50, 1, 'a'}},
			{"WrappingDelta", wrapping},
			{"HoleBeyondText", overrun},
			{"StartBeyondData", []byte{5, 0, 'a'}},
			{"StartBeyondText", []byte{2, 0, 'a'}},
			{"MissingCount", []byte{0}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				require.NotPanics(t, func() {
					_, err := ParseFragment(tt.data)
					require.ErrorIs(t, err, errs.ErrInvalidFragment)
				})
			})
		}
	})
}
