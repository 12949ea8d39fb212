// Package container writes and reads msz containers.
//
// A container holds one mzML run split into independently compressed blocks:
//
//	Header | Prologue | meta, m/z, intensity (spectrum 0) | ... | Epilogue | Division | Footer
//
// The header and footer both locate the Division, which records the offset
// and length of every block, so any spectrum can be read without touching the
// others. Every block carries its own length and checksum.
//
// Writing is sequential: an Encoder turns decoded spectra into blocks (safe to
// call from many goroutines), and a Writer appends them in ordinal order.
// Reading is random access through a Reader, whose Spectrum values decode
// arrays and markup lazily.
package container
