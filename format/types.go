package format

import (
	"fmt"
	"strings"
)

type (
	CompressionType   uint8
	SourceCompression uint8
	ElementWidth      uint8
	TransformType     uint8
	ArrayRole         uint8
	FileKind          uint8
)

const (
	CompressionNone CompressionType = 0x1 // CompressionNone stores blocks uncompressed.
	CompressionZstd CompressionType = 0x2 // CompressionZstd represents Zstandard compression.
	CompressionS2   CompressionType = 0x3 // CompressionS2 represents S2 compression.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 represents LZ4 block compression.
	CompressionZlib CompressionType = 0x5 // CompressionZlib represents zlib (RFC 1950) compression.

	SourceNone SourceCompression = 0x1 // SourceNone is the "no compression" array code (MS:1000576).
	SourceZlib SourceCompression = 0x2 // SourceZlib is the "zlib compression" array code (MS:1000574).

	Width32 ElementWidth = 4 // Width32 is a 32-bit IEEE-754 float (MS:1000521).
	Width64 ElementWidth = 8 // Width64 is a 64-bit IEEE-754 float (MS:1000523).

	TransformLossless TransformType = 0x1 // TransformLossless stores packed floats of the source width.
	TransformCast32   TransformType = 0x2 // TransformCast32 narrows 64-bit floats to 32-bit floats.
	TransformDelta    TransformType = 0x3 // TransformDelta quantizes to an absolute step and stores varint deltas.
	TransformLog      TransformType = 0x4 // TransformLog quantizes in the log domain for a relative bound.

	RoleMz        ArrayRole = 0x1 // RoleMz is the m/z array (MS:1000514).
	RoleIntensity ArrayRole = 0x2 // RoleIntensity is the intensity array (MS:1000515).

	KindSource    FileKind = 0x1 // KindSource is an mzML run.
	KindContainer FileKind = 0x2 // KindContainer is an msz container.
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	case CompressionZlib:
		return "Zlib"
	default:
		return "Unknown"
	}
}

// ParseCompressionType parses a case-insensitive algorithm name.
func ParseCompressionType(s string) (CompressionType, error) {
	switch strings.ToLower(s) {
	case "none", "raw":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	case "s2":
		return CompressionS2, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zlib":
		return CompressionZlib, nil
	default:
		return 0, fmt.Errorf("unknown compression type %q", s)
	}
}

// IsValid reports whether c is a known algorithm.
func (c CompressionType) IsValid() bool {
	return c >= CompressionNone && c <= CompressionZlib
}

func (s SourceCompression) String() string {
	switch s {
	case SourceNone:
		return "none"
	case SourceZlib:
		return "zlib"
	default:
		return "unknown"
	}
}

// IsValid reports whether s is a known source compression kind.
func (s SourceCompression) IsValid() bool {
	return s == SourceNone || s == SourceZlib
}

func (w ElementWidth) String() string {
	switch w {
	case Width32:
		return "32-bit float"
	case Width64:
		return "64-bit float"
	default:
		return "unknown"
	}
}

// Bytes returns the element size in bytes.
func (w ElementWidth) Bytes() int {
	return int(w)
}

// IsValid reports whether w is 4 or 8.
func (w ElementWidth) IsValid() bool {
	return w == Width32 || w == Width64
}

func (t TransformType) String() string {
	switch t {
	case TransformLossless:
		return "lossless"
	case TransformCast32:
		return "cast32"
	case TransformDelta:
		return "delta"
	case TransformLog:
		return "log"
	default:
		return "unknown"
	}
}

// ParseTransformType parses a case-insensitive transform name. The empty
// string selects the lossless transform.
func ParseTransformType(s string) (TransformType, error) {
	switch strings.ToLower(s) {
	case "", "lossless", "none":
		return TransformLossless, nil
	case "cast", "cast32":
		return TransformCast32, nil
	case "delta":
		return TransformDelta, nil
	case "log":
		return TransformLog, nil
	default:
		return 0, fmt.Errorf("unknown lossy transform %q", s)
	}
}

// IsValid reports whether t is a known transform.
func (t TransformType) IsValid() bool {
	return t >= TransformLossless && t <= TransformLog
}

// IsLossy reports whether t may alter values.
func (t TransformType) IsLossy() bool {
	return t != TransformLossless
}

func (r ArrayRole) String() string {
	switch r {
	case RoleMz:
		return "m/z"
	case RoleIntensity:
		return "intensity"
	default:
		return "unknown"
	}
}

func (k FileKind) String() string {
	switch k {
	case KindSource:
		return "mzML"
	case KindContainer:
		return "msz"
	default:
		return "unknown"
	}
}
