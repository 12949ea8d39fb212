package hash

import (
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/require"
)

func TestChecksum32(t *testing.T) {
	data := []byte("<spectrum index=\"0\">")
	require.Equal(t, uint32(xxhash.Sum64(data)), Checksum32(data)) //nolint: gosec
	require.NotEqual(t, Checksum32(data), Checksum32(data[1:]))
}

func TestDigestMatchesChecksum(t *testing.T) {
	data := []byte("header-bytes|division-bytes")

	d := NewDigest()
	_, _ = d.Write(data[:12])
	_, _ = d.Write(data[12:])

	require.Equal(t, Checksum32(data), d.Sum32())
}
