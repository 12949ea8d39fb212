package compress

import (
	"bytes"
	"math"
	"testing"

	"github.com/arloliu/mscompress/format"
	"github.com/stretchr/testify/require"
)

func samplePayload() []byte {
	var buf bytes.Buffer
	for i := range 2000 {
		v := math.Float64bits(100.0 + float64(i)*0.0125)
		for b := range 8 {
			buf.WriteByte(byte(v >> (8 * b)))
		}
	}
	buf.WriteString(`<spectrum index="0" id="scan=1" defaultArrayLength="2000">`)

	return buf.Bytes()
}

func allTypes() []format.CompressionType {
	return []format.CompressionType{
		format.CompressionNone,
		format.CompressionZstd,
		format.CompressionS2,
		format.CompressionLZ4,
		format.CompressionZlib,
	}
}

func TestCodecRoundTrip(t *testing.T) {
	payload := samplePayload()

	for _, ct := range allTypes() {
		t.Run(ct.String(), func(t *testing.T) {
			codec, err := GetCodec(ct)
			require.NoError(t, err)

			compressed, err := codec.Compress(payload)
			require.NoError(t, err)
			if ct != format.CompressionNone {
				require.Less(t, len(compressed), len(payload))
			}

			decompressed, err := codec.Decompress(compressed)
			require.NoError(t, err)
			require.Equal(t, payload, decompressed)
		})
	}
}

func TestCodecEmptyInput(t *testing.T) {
	for _, ct := range allTypes() {
		t.Run(ct.String(), func(t *testing.T) {
			codec, err := GetCodec(ct)
			require.NoError(t, err)

			compressed, err := codec.Compress(nil)
			require.NoError(t, err)

			decompressed, err := codec.Decompress(compressed)
			require.NoError(t, err)
			require.Empty(t, decompressed)
		})
	}
}

func TestCodecCorruptInput(t *testing.T) {
	garbage := []byte{0xde, 0xad, 0xbe, 0xef, 0x01, 0x02, 0x03, 0x04, 0x05}

	for _, ct := range []format.CompressionType{format.CompressionZstd, format.CompressionZlib, format.CompressionS2} {
		t.Run(ct.String(), func(t *testing.T) {
			codec, err := GetCodec(ct)
			require.NoError(t, err)

			_, err = codec.Decompress(garbage)
			require.Error(t, err)
		})
	}

	t.Run("LZ4 size mismatch", func(t *testing.T) {
		codec := NewLZ4Compressor()
		compressed, err := codec.Compress(samplePayload())
		require.NoError(t, err)

		// inflate the announced length
		compressed[0] ^= 0x01
		_, err = codec.Decompress(compressed)
		require.Error(t, err)
	})
}

func TestCreateCodec(t *testing.T) {
	t.Run("Zstd levels", func(t *testing.T) {
		payload := samplePayload()

		fast, err := CreateCodec(format.CompressionZstd, 1, "array")
		require.NoError(t, err)
		best, err := CreateCodec(format.CompressionZstd, 19, "array")
		require.NoError(t, err)

		a, err := fast.Compress(payload)
		require.NoError(t, err)
		b, err := best.Compress(payload)
		require.NoError(t, err)
		require.NotEmpty(t, a)

		// any level decodes with the shared codec
		reader, err := GetCodec(format.CompressionZstd)
		require.NoError(t, err)
		out, err := reader.Decompress(b)
		require.NoError(t, err)
		require.Equal(t, payload, out)
	})

	t.Run("Default level", func(t *testing.T) {
		codec, err := CreateCodec(format.CompressionZstd, 0, "array")
		require.NoError(t, err)
		require.Equal(t, DefaultZstdLevel, codec.(ZstdCompressor).Level())
	})

	t.Run("Invalid", func(t *testing.T) {
		_, err := CreateCodec(format.CompressionType(0x7f), 0, "metadata")
		require.ErrorContains(t, err, "invalid metadata compression")

		_, err = GetCodec(format.CompressionType(0))
		require.Error(t, err)
	})
}

func TestCodecDeterministic(t *testing.T) {
	payload := samplePayload()

	for _, ct := range allTypes() {
		t.Run(ct.String(), func(t *testing.T) {
			codec, err := CreateCodec(ct, 0, "array")
			require.NoError(t, err)

			a, err := codec.Compress(payload)
			require.NoError(t, err)
			b, err := codec.Compress(payload)
			require.NoError(t, err)
			require.Equal(t, a, b)
		})
	}
}

func TestZlibEmptyStream(t *testing.T) {
	// mzML writers emit a complete zlib stream for zero-length arrays
	stream, err := NewZlibCompressor().Compress(nil)
	require.NoError(t, err)
	require.NotEmpty(t, stream)

	out, err := NewZlibCompressor().Decompress(stream)
	require.NoError(t, err)
	require.Empty(t, out)
}
