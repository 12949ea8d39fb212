package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCompressionType(t *testing.T) {
	tests := []struct {
		in   string
		want CompressionType
	}{
		{"none", CompressionNone},
		{"ZSTD", CompressionZstd},
		{"s2", CompressionS2},
		{"lz4", CompressionLZ4},
		{"zlib", CompressionZlib},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCompressionType(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.True(t, got.IsValid())
		})
	}

	_, err := ParseCompressionType("brotli")
	require.Error(t, err)
	require.False(t, CompressionType(0).IsValid())
}

func TestParseTransformType(t *testing.T) {
	got, err := ParseTransformType("")
	require.NoError(t, err)
	require.Equal(t, TransformLossless, got)
	require.False(t, got.IsLossy())

	got, err = ParseTransformType("log")
	require.NoError(t, err)
	require.Equal(t, TransformLog, got)
	require.True(t, got.IsLossy())

	_, err = ParseTransformType("bitpack")
	require.Error(t, err)
}

func TestStrings(t *testing.T) {
	require.Equal(t, "Zlib", CompressionZlib.String())
	require.Equal(t, "zlib", SourceZlib.String())
	require.Equal(t, "32-bit float", Width32.String())
	require.Equal(t, 8, Width64.Bytes())
	require.Equal(t, "intensity", RoleIntensity.String())
	require.Equal(t, "msz", KindContainer.String())
	require.Equal(t, "unknown", FileKind(9).String())
}
