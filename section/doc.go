// Package section defines the on-disk structures of the msz container.
//
// A container is laid out as:
//
//	┌─────────────────────────────────────────────────────────┐
//	│ Header (64 bytes, fixed)                                │
//	│  - magic, version, flags                                │
//	│  - DataFormat (24 bytes)                                │
//	│  - spectrum count, Division offset/length               │
//	│  - Division checksum, header checksum                   │
//	├─────────────────────────────────────────────────────────┤
//	│ Prologue block (document text before the first scan)    │
//	├─────────────────────────────────────────────────────────┤
//	│ Spectrum 0: metadata block, m/z block, intensity block  │
//	│ Spectrum 1: ...                                         │
//	├─────────────────────────────────────────────────────────┤
//	│ Epilogue block (document text after the last scan)      │
//	├─────────────────────────────────────────────────────────┤
//	│ Division (preamble, names, N × 56-byte entries)         │
//	├─────────────────────────────────────────────────────────┤
//	│ Footer (16 bytes): Division offset, end marker          │
//	└─────────────────────────────────────────────────────────┘
//
// Every block is length-prefixed:
//
//	Bytes | Field
//	------|-----------------------------------------------
//	0-3   | payload length (uint32)
//	4-7   | payload checksum (low 32 bits of xxHash64)
//	8-    | payload (compressed)
//
// A DivisionEntry records the three block references of a spectrum so any
// spectrum is located in O(1) without scanning its predecessors. All
// multi-byte fields are little-endian.
//
// The header is patched last. A crash or an aborted conversion therefore
// leaves a zero spectrum count, a zero Division offset and a missing footer,
// which the reader rejects with errs.ErrContainerIntegrity.
package section
