package compression

import "fmt"

// Compressed record values start with a header byte, the compression type is
// stored in its upper 5 bits.
const (
	sevenBitASCII = 1
	sevenBitUTF16 = 2
	lzxpress      = 3
)

// SevenBitUncompressedSize returns the number of bytes DecompressSevenBit
// writes for compressed, which includes the header byte.
func SevenBitUncompressedSize(compressed []byte) (int, error) {
	if len(compressed) < 1 {
		return 0, fmt.Errorf("missing compression header: %w", ErrCorruptData)
	}
	// n payload bytes carry 8n bits, so n*8/7 whole codes. Eight codes fill
	// seven bytes exactly.
	codes := (len(compressed) - 1) * 8 / 7

	switch compressed[0] >> 3 {
	case sevenBitASCII:
		return codes, nil
	case sevenBitUTF16:
		return codes * 2, nil
	}
	return 0, fmt.Errorf("7-bit header 0x%02x: %w", compressed[0], ErrUnsupportedCompressionType)
}

// DecompressSevenBit unpacks the 7-bit codes following the header byte into
// dst, least significant bits first. UTF-16 data gets a zero high byte per code.
func DecompressSevenBit(dst, compressed []byte) (int, error) {
	size, err := SevenBitUncompressedSize(compressed)
	if err != nil {
		return 0, err
	}
	if len(dst) < size {
		return 0, fmt.Errorf("need %d bytes, have %d: %w", size, len(dst), ErrInsufficientBufferSize)
	}
	wide := compressed[0]>>3 == sevenBitUTF16

	var acc uint32
	var bits uint
	w := 0
	for _, b := range compressed[1:] {
		acc |= uint32(b) << bits
		bits += 8

		for bits >= 7 {
			dst[w] = byte(acc & 0x7f)
			w++
			if wide {
				dst[w] = 0
				w++
			}
			acc >>= 7
			bits -= 7
		}
	}
	return w, nil
}

// DecompressValue decompresses a record value that carries the compressed
// tagged data flag.
func DecompressValue(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	switch data[0] >> 3 {
	case sevenBitASCII, sevenBitUTF16:
		size, err := SevenBitUncompressedSize(data)
		if err != nil {
			return nil, err
		}
		out := make([]byte, size)
		n, err := DecompressSevenBit(out, data)
		if err != nil {
			return nil, err
		}
		return out[:n], nil
	case lzxpress:
		return nil, fmt.Errorf("xpress compressed value: %w", ErrUnsupportedCompressionType)
	}
	return nil, fmt.Errorf("value header 0x%02x: %w", data[0], ErrUnsupportedCompressionType)
}
