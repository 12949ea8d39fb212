// Package endian provides byte order utilities for packed numeric arrays.
//
// mzML declares its binary arrays little-endian, and the msz container uses
// little-endian for every fixed-width field. The EndianEngine interface keeps
// the byte order pluggable so array descriptors can carry it explicitly:
//
//	engine := endian.GetLittleEndianEngine()
//	buf = endian.AppendFloat64s(engine, buf, values)
//	values, err := endian.ReadFloats(engine, buf, format.Width64, nil)
//
// All functions in this package are safe for concurrent use.
package endian

import (
	"encoding/binary"
)

// EndianEngine combines ByteOrder and AppendByteOrder from encoding/binary.
//
// It is satisfied by binary.LittleEndian and binary.BigEndian.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// GetLittleEndianEngine returns the little-endian engine.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// GetBigEndianEngine returns the big-endian engine.
func GetBigEndianEngine() EndianEngine {
	return binary.BigEndian
}
