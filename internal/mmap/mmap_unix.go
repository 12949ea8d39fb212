//go:build unix

package mmap

import (
	"math"
	"os"

	"golang.org/x/sys/unix"
)

func mapFile(f *os.File, size int64) ([]byte, bool) {
	if size <= 0 || size > math.MaxInt {
		return nil, false
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED) //nolint: gosec
	if err != nil {
		return nil, false
	}

	return data, true
}

func unmap(data []byte) error {
	return unix.Munmap(data)
}
