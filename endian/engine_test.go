package endian

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/arloliu/mscompress/errs"
	"github.com/arloliu/mscompress/format"
	"github.com/stretchr/testify/require"
)

func TestGetEngines(t *testing.T) {
	require.Equal(t, binary.LittleEndian, GetLittleEndianEngine())
	require.Equal(t, binary.BigEndian, GetBigEndianEngine())
}

func TestAppendFloats(t *testing.T) {
	engine := GetLittleEndianEngine()
	values := []float64{0, 1.5, -2.25, 1234.5678}

	t.Run("Width64", func(t *testing.T) {
		buf, err := AppendFloats(engine, nil, values, format.Width64)
		require.NoError(t, err)
		require.Len(t, buf, len(values)*8)
		require.Equal(t, math.Float64bits(1.5), binary.LittleEndian.Uint64(buf[8:16]))

		decoded, err := ReadFloats(engine, buf, format.Width64, nil)
		require.NoError(t, err)
		require.Equal(t, values, decoded)
	})

	t.Run("Width32", func(t *testing.T) {
		buf, err := AppendFloats(engine, nil, values, format.Width32)
		require.NoError(t, err)
		require.Len(t, buf, len(values)*4)

		decoded, err := ReadFloats(engine, buf, format.Width32, nil)
		require.NoError(t, err)
		for i, v := range values {
			require.Equal(t, float64(float32(v)), decoded[i])
		}
	})

	t.Run("BigEndian", func(t *testing.T) {
		be := GetBigEndianEngine()
		buf := AppendFloat64s(be, nil, values)
		require.Equal(t, math.Float64bits(-2.25), binary.BigEndian.Uint64(buf[16:24]))

		decoded, err := ReadFloats(be, buf, format.Width64, nil)
		require.NoError(t, err)
		require.Equal(t, values, decoded)
	})

	t.Run("InvalidWidth", func(t *testing.T) {
		_, err := AppendFloats(engine, nil, values, format.ElementWidth(3))
		require.ErrorIs(t, err, errs.ErrMalformedArray)
	})
}

func TestReadFloats(t *testing.T) {
	engine := GetLittleEndianEngine()

	t.Run("NotMultipleOfWidth", func(t *testing.T) {
		_, err := ReadFloats(engine, make([]byte, 7), format.Width64, nil)
		require.ErrorIs(t, err, errs.ErrMalformedArray)

		_, err = ReadFloats(engine, make([]byte, 6), format.Width32, nil)
		require.ErrorIs(t, err, errs.ErrMalformedArray)
	})

	t.Run("Empty", func(t *testing.T) {
		decoded, err := ReadFloats(engine, nil, format.Width32, nil)
		require.NoError(t, err)
		require.Empty(t, decoded)
	})

	t.Run("AppendsToDst", func(t *testing.T) {
		buf := AppendFloat64s(engine, nil, []float64{3, 4})
		decoded, err := ReadFloats(engine, buf, format.Width64, []float64{1, 2})
		require.NoError(t, err)
		require.Equal(t, []float64{1, 2, 3, 4}, decoded)
	})
}
