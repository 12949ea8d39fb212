// Package encoding converts numeric arrays between their three representations:
//
//   - XML text: base64 of packed floats, optionally zlib-deflated, as written in
//     an mzML binaryDataArray (DecodeRaw, DecodeArray, EncodeRaw, EncodeArray)
//   - packed floats: little-endian IEEE-754 values of the source width
//   - container payload: packed floats after a Transform (lossless, cast32,
//     delta or log), before block compression
//
// Lossy transforms verify their own output. Transform.Encode decodes what it
// produced and compares every element with the input at source width; an
// element outside the configured Tolerance fails the encode with an error
// wrapping errs.ErrEncoding, so a container never holds data that breaks its
// recorded bound.
//
// Zigzag varint packing follows the delta encoders used for time-series
// columns: small signed steps between neighbours cost a single byte.
package encoding
