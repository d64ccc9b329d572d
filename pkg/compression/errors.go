// Package compression implements the value compression schemes found in ESE
// databases: the 7-bit packing applied to compressed record values, and the
// Windows Search string encodings (XOR obfuscation, byte-indexed Huffman
// style compression and run-length UTF-16 compression).
package compression

import "errors"

var (
	// ErrInsufficientBufferSize is returned when the destination cannot hold the uncompressed data.
	ErrInsufficientBufferSize = errors.New("insufficient buffer size")
	// ErrInvalidCompressionTable is returned when a byte-indexed code length table does not describe a complete code.
	ErrInvalidCompressionTable = errors.New("invalid compression table")
	// ErrCorruptData is returned for streams that reference data outside what was decompressed so far.
	ErrCorruptData = errors.New("corrupt compressed data")
	// ErrUnsupportedCompressionType is returned for compression type bytes this package does not decode.
	ErrUnsupportedCompressionType = errors.New("unsupported compression type")
)
