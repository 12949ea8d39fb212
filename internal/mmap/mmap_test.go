package mmap

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	return path
}

func TestReadAt(t *testing.T) {
	data := []byte("0123456789abcdef")
	path := writeTemp(t, data)

	for name, open := range map[string]func(string) (*File, error){
		"Mapped": Open,
		"NoMap":  OpenNoMap,
	} {
		t.Run(name, func(t *testing.T) {
			f, err := open(path)
			require.NoError(t, err)
			defer f.Close()

			require.Equal(t, int64(len(data)), f.Size())

			buf := make([]byte, 4)
			n, err := f.ReadAt(buf, 10)
			require.NoError(t, err)
			require.Equal(t, 4, n)
			require.Equal(t, "abcd", string(buf))

			buf = make([]byte, 8)
			n, err = f.ReadAt(buf, 12)
			require.ErrorIs(t, err, io.EOF)
			require.Equal(t, 4, n)

			_, err = f.ReadAt(buf, 100)
			require.ErrorIs(t, err, io.EOF)
		})
	}
}

func TestEmptyFile(t *testing.T) {
	f, err := Open(writeTemp(t, nil))
	require.NoError(t, err)
	defer f.Close()

	require.False(t, f.Mapped())
	require.Equal(t, int64(0), f.Size())
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestCloseTwice(t *testing.T) {
	f, err := Open(writeTemp(t, []byte("x")))
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
}
