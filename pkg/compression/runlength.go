package compression

import "fmt"

// RunLengthUTF16UncompressedSize walks the runs of a run-length UTF-16 payload
// without writing anything. A run cut short by the end of the data only
// counts the low bytes that are present.
func RunLengthUTF16UncompressedSize(compressed []byte) int {
	size := 0
	for i := 0; i+1 < len(compressed); {
		count := int(compressed[i])
		if avail := len(compressed) - (i + 2); count > avail {
			count = avail
		}
		size += 2 * count
		i += 2 + count
	}
	return size
}

// DecompressRunLengthUTF16 expands runs of (count, high byte, count low bytes)
// into UTF-16 little-endian code units.
func DecompressRunLengthUTF16(dst, compressed []byte) (int, error) {
	size := RunLengthUTF16UncompressedSize(compressed)
	if len(dst) < size {
		return 0, fmt.Errorf("need %d bytes, have %d: %w", size, len(dst), ErrInsufficientBufferSize)
	}
	w := 0
	for i := 0; i+1 < len(compressed); {
		count := int(compressed[i])
		high := compressed[i+1]
		i += 2
		for ; count > 0 && i < len(compressed); count-- {
			dst[w] = compressed[i]
			dst[w+1] = high
			w += 2
			i++
		}
	}
	return w, nil
}
