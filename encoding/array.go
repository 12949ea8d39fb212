package encoding

import (
	"encoding/base64"
	"fmt"

	"github.com/arloliu/mscompress/compress"
	"github.com/arloliu/mscompress/endian"
	"github.com/arloliu/mscompress/errs"
	"github.com/arloliu/mscompress/format"
)

// Descriptor describes how one binary array is encoded in XML.
type Descriptor struct {
	Compression format.SourceCompression
	Width       format.ElementWidth
	// Engine is the byte order of the packed floats; nil means little-endian.
	Engine endian.EndianEngine
}

// ByteOrder returns the descriptor's engine, defaulting to little-endian.
func (d Descriptor) ByteOrder() endian.EndianEngine {
	if d.Engine == nil {
		return endian.GetLittleEndianEngine()
	}

	return d.Engine
}

var zlibCodec = compress.NewZlibCompressor()

// DecodeRaw turns the base64 text of a binary array into packed floats and
// appends them to dst.
//
// Whitespace inside text is ignored. Empty text decodes to zero elements.
//
// Returns:
//   - errs.ErrMalformedArray if the base64 is invalid or the packed length is
//     not a multiple of the element width
//   - errs.ErrDecompression if inflating fails or the compression kind is unknown
func DecodeRaw(dst []byte, text []byte, desc Descriptor) ([]byte, error) {
	if !desc.Width.IsValid() {
		return dst, fmt.Errorf("%w: element width %d", errs.ErrMalformedArray, desc.Width)
	}

	decoded, err := decodeBase64(text)
	if err != nil {
		return dst, err
	}

	var packed []byte
	switch desc.Compression {
	case format.SourceNone:
		packed = decoded
	case format.SourceZlib:
		if len(decoded) == 0 {
			break
		}
		packed, err = zlibCodec.Decompress(decoded)
		if err != nil {
			return dst, fmt.Errorf("%w: %w", errs.ErrDecompression, err)
		}
	default:
		return dst, fmt.Errorf("%w: unknown compression kind %d", errs.ErrDecompression, desc.Compression)
	}

	if len(packed)%desc.Width.Bytes() != 0 {
		return dst, fmt.Errorf("%w: %d bytes is not a multiple of %d", errs.ErrMalformedArray, len(packed), desc.Width.Bytes())
	}

	return append(dst, packed...), nil
}

// DecodeArray decodes the base64 text of a binary array into float64 values.
func DecodeArray(text []byte, desc Descriptor) ([]float64, error) {
	packed, err := DecodeRaw(nil, text, desc)
	if err != nil {
		return nil, err
	}

	return endian.ReadFloats(desc.ByteOrder(), packed, desc.Width, make([]float64, 0, len(packed)/desc.Width.Bytes()))
}

// EncodeRaw turns packed floats into base64 text and appends it to dst.
//
// A zlib descriptor always produces a complete zlib stream, even for zero
// elements.
func EncodeRaw(dst []byte, packed []byte, desc Descriptor) ([]byte, error) {
	if !desc.Width.IsValid() || len(packed)%desc.Width.Bytes() != 0 {
		return dst, fmt.Errorf("%w: %d bytes at element width %d", errs.ErrMalformedArray, len(packed), desc.Width)
	}

	data := packed
	switch desc.Compression {
	case format.SourceNone:
	case format.SourceZlib:
		var err error
		data, err = zlibCodec.Compress(packed)
		if err != nil {
			return dst, fmt.Errorf("%w: %w", errs.ErrEncoding, err)
		}
	default:
		return dst, fmt.Errorf("%w: unknown compression kind %d", errs.ErrEncoding, desc.Compression)
	}

	n := base64.StdEncoding.EncodedLen(len(data))
	start := len(dst)
	dst = growBytes(dst, n)[:start+n]
	base64.StdEncoding.Encode(dst[start:], data)

	return dst, nil
}

// EncodeArray packs values at the descriptor's width and encodes them as
// base64 text appended to dst.
func EncodeArray(dst []byte, values []float64, desc Descriptor) ([]byte, error) {
	packed, err := endian.AppendFloats(desc.ByteOrder(), nil, values, desc.Width)
	if err != nil {
		return dst, err
	}

	return EncodeRaw(dst, packed, desc)
}

func decodeBase64(text []byte) ([]byte, error) {
	text = stripSpace(text)
	if len(text) == 0 {
		return nil, nil
	}

	enc := base64.StdEncoding
	if len(text)%4 != 0 {
		enc = base64.RawStdEncoding
	}

	out := make([]byte, enc.DecodedLen(len(text)))
	n, err := enc.Decode(out, text)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %w", errs.ErrMalformedArray, err)
	}

	return out[:n], nil
}

// stripSpace returns text without XML whitespace. It copies only when
// whitespace is present.
func stripSpace(text []byte) []byte {
	first := -1
	for i, c := range text {
		if isSpace(c) {
			first = i
			break
		}
	}
	if first < 0 {
		return text
	}

	out := make([]byte, first, len(text))
	copy(out, text[:first])
	for _, c := range text[first:] {
		if !isSpace(c) {
			out = append(out, c)
		}
	}

	return out
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t'
}

func growBytes(dst []byte, n int) []byte {
	if cap(dst)-len(dst) >= n {
		return dst
	}

	grown := make([]byte, len(dst), len(dst)+n)
	copy(grown, dst)

	return grown
}
