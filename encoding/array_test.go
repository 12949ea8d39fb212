package encoding

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/mscompress/endian"
	"github.com/arloliu/mscompress/errs"
	"github.com/arloliu/mscompress/format"
)

func float32Series(n int) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = float64(float32(100 + float64(i)*0.25))
	}

	return values
}

func TestArray_Float32Scenario(t *testing.T) {
	values := float32Series(100)

	for _, comp := range []format.SourceCompression{format.SourceNone, format.SourceZlib} {
		t.Run(comp.String(), func(t *testing.T) {
			desc := Descriptor{Compression: comp, Width: format.Width32}

			text, err := EncodeArray(nil, values, desc)
			require.NoError(t, err)

			got, err := DecodeArray(text, desc)
			require.NoError(t, err)
			require.Len(t, got, 100)
			require.Equal(t, values, got)
		})
	}
}

func TestArray_MismatchedCompression(t *testing.T) {
	values := float32Series(100)
	text, err := EncodeArray(nil, values, Descriptor{Compression: format.SourceNone, Width: format.Width32})
	require.NoError(t, err)

	_, err = DecodeArray(text, Descriptor{Compression: format.SourceZlib, Width: format.Width32})
	require.ErrorIs(t, err, errs.ErrDecompression)
}

func TestDecodeRaw(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		for _, comp := range []format.SourceCompression{format.SourceNone, format.SourceZlib} {
			got, err := DecodeArray(nil, Descriptor{Compression: comp, Width: format.Width64})
			require.NoError(t, err)
			require.Empty(t, got)
		}
	})

	t.Run("EmptyZlibStream", func(t *testing.T) {
		desc := Descriptor{Compression: format.SourceZlib, Width: format.Width64}
		text, err := EncodeRaw(nil, nil, desc)
		require.NoError(t, err)
		require.NotEmpty(t, text)

		got, err := DecodeArray(text, desc)
		require.NoError(t, err)
		require.Empty(t, got)
	})

	t.Run("Whitespace", func(t *testing.T) {
		packed := endian.AppendFloat64s(endian.GetLittleEndianEngine(), nil, []float64{1.5, 2.5})
		text := base64.StdEncoding.EncodeToString(packed)
		spaced := []byte("\n  " + text[:8] + "\n" + text[8:] + "  \n")

		got, err := DecodeArray(spaced, Descriptor{Compression: format.SourceNone, Width: format.Width64})
		require.NoError(t, err)
		require.Equal(t, []float64{1.5, 2.5}, got)
	})

	t.Run("NotMultipleOfWidth", func(t *testing.T) {
		text := base64.StdEncoding.EncodeToString([]byte{1, 2, 3, 4, 5, 6})
		_, err := DecodeArray([]byte(text), Descriptor{Compression: format.SourceNone, Width: format.Width64})
		require.ErrorIs(t, err, errs.ErrMalformedArray)
	})

	t.Run("InvalidBase64", func(t *testing.T) {
		_, err := DecodeArray([]byte("!!!!"), Descriptor{Compression: format.SourceNone, Width: format.Width32})
		require.ErrorIs(t, err, errs.ErrMalformedArray)
	})

	t.Run("UnknownCompression", func(t *testing.T) {
		_, err := DecodeArray([]byte("AAAAAA=="), Descriptor{Compression: 9, Width: format.Width32})
		require.ErrorIs(t, err, errs.ErrDecompression)
	})

	t.Run("AppendsToDst", func(t *testing.T) {
		packed := endian.AppendFloat32s(endian.GetLittleEndianEngine(), nil, []float64{3})
		text, err := EncodeRaw(nil, packed, Descriptor{Compression: format.SourceZlib, Width: format.Width32})
		require.NoError(t, err)

		got, err := DecodeRaw([]byte("head"), text, Descriptor{Compression: format.SourceZlib, Width: format.Width32})
		require.NoError(t, err)
		require.Equal(t, append([]byte("head"), packed...), got)
	})
}

func TestEncodeRaw_RejectsPartialElements(t *testing.T) {
	_, err := EncodeRaw(nil, []byte{1, 2, 3}, Descriptor{Compression: format.SourceNone, Width: format.Width32})
	require.ErrorIs(t, err, errs.ErrMalformedArray)
}

func TestDescriptor_ByteOrder(t *testing.T) {
	require.Equal(t, endian.GetLittleEndianEngine(), Descriptor{}.ByteOrder())

	desc := Descriptor{Compression: format.SourceNone, Width: format.Width64, Engine: endian.GetBigEndianEngine()}
	text, err := EncodeArray(nil, []float64{42}, desc)
	require.NoError(t, err)

	got, err := DecodeArray(text, desc)
	require.NoError(t, err)
	require.Equal(t, []float64{42}, got)
}
