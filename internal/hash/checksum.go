// Package hash computes the checksums stored in msz containers.
package hash

import "github.com/cespare/xxhash/v2"

// Checksum32 returns the low 32 bits of the xxHash64 of data.
//
// Block prefixes, the Division and the header all store this value.
func Checksum32(data []byte) uint32 {
	return uint32(xxhash.Sum64(data)) //nolint: gosec
}

// Digest accumulates a checksum over several writes.
type Digest struct {
	d *xxhash.Digest
}

// NewDigest creates an empty Digest.
func NewDigest() *Digest {
	return &Digest{d: xxhash.New()}
}

// Write adds data to the digest. It never returns an error.
func (d *Digest) Write(data []byte) (int, error) {
	return d.d.Write(data)
}

// Sum32 returns the low 32 bits of the xxHash64 accumulated so far.
func (d *Digest) Sum32() uint32 {
	return uint32(d.d.Sum64()) //nolint: gosec
}
