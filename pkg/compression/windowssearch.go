package compression

import "fmt"

const windowsSearchKey = 0x05000113

// Windows Search string type byte values.
const (
	TypeRunLengthUTF16 = 0x00
	TypeCodepage       = 0x01
	TypeByteIndexed    = 0x02
	TypeUncompressed   = 0x04
)

// TextEncoding tells the caller how to turn decoded Windows Search bytes into text.
type TextEncoding int

const (
	EncodingUTF16LE TextEncoding = iota
	EncodingCodepage
)

// WindowsSearchDecode removes the XOR obfuscation Windows Search applies to
// some binary columns. The key only depends on the size, so applying it twice
// to the same number of bytes restores the input.
func WindowsSearchDecode(dst, encoded []byte) error {
	if len(dst) < len(encoded) {
		return fmt.Errorf("need %d bytes, have %d: %w", len(encoded), len(dst), ErrInsufficientBufferSize)
	}
	key := uint32(windowsSearchKey) ^ uint32(len(encoded))

	for i, b := range encoded {
		mask := byte(key >> (8 * uint(i&3)))
		mask ^= byte(i)
		dst[i] = b ^ mask
	}
	return nil
}

// DecompressWindowsSearch decodes a Windows Search string column: XOR
// decoding, then the decompression selected by the leading type byte.
func DecompressWindowsSearch(data []byte) ([]byte, TextEncoding, error) {
	if len(data) == 0 {
		return nil, EncodingCodepage, nil
	}
	decoded := make([]byte, len(data))
	if err := WindowsSearchDecode(decoded, data); err != nil {
		return nil, EncodingCodepage, err
	}
	typ := decoded[0]
	payload := decoded[1:]

	if typ&TypeByteIndexed != 0 {
		size, err := ByteIndexedUncompressedSize(payload)
		if err != nil {
			return nil, EncodingCodepage, err
		}
		buf := make([]byte, size)
		n, err := DecompressByteIndexed(buf, payload)
		if err != nil {
			return nil, EncodingCodepage, err
		}
		payload = buf[:n]
		typ &^= TypeByteIndexed
	}

	switch typ {
	case TypeRunLengthUTF16:
		buf := make([]byte, RunLengthUTF16UncompressedSize(payload))
		n, err := DecompressRunLengthUTF16(buf, payload)
		if err != nil {
			return nil, EncodingUTF16LE, err
		}
		return buf[:n], EncodingUTF16LE, nil
	case TypeCodepage:
		return payload, EncodingCodepage, nil
	case TypeUncompressed:
		return payload, EncodingUTF16LE, nil
	}
	return nil, EncodingCodepage, fmt.Errorf("windows search type 0x%02x: %w", decoded[0], ErrUnsupportedCompressionType)
}
