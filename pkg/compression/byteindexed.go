package compression

import (
	"encoding/binary"
	"fmt"
)

const (
	byteIndexedSymbols   = 512
	byteIndexedTableSize = 256
	byteIndexedMaxBits   = 15

	// the primary decode table is indexed by the next 11 bits of the stream,
	// longer codes escape into 16 entry overflow tables indexed by 4 more bits.
	valueTableBits   = 11
	valueTableSize   = 1 << valueTableBits
	overflowBits     = byteIndexedMaxBits - valueTableBits
	overflowSize     = 1 << overflowBits
	escapeEntry      = 0x8000
	lengthMask       = 0x000f
	firstMatchSymbol = 256
)

// valueTable maps stream prefixes to symbol<<4 | code length.
type valueTable struct {
	values   [valueTableSize]uint16
	overflow []uint16
}

func buildValueTable(nibbles []byte) (*valueTable, error) {
	var lengths [byteIndexedSymbols]uint8
	var nibbleCount [16]uint16

	for i, b := range nibbles[:byteIndexedTableSize] {
		lengths[2*i] = b & 0x0f
		lengths[2*i+1] = b >> 4
		nibbleCount[b&0x0f]++
		nibbleCount[b>>4]++
	}
	if nibbleCount[0] >= 0x1ff {
		return nil, fmt.Errorf("%d unused symbols: %w", nibbleCount[0], ErrInvalidCompressionTable)
	}

	// every code length bucket has to fill exactly one 15 bit code space
	total := 0
	for bits := 1; bits <= byteIndexedMaxBits; bits++ {
		total += int(nibbleCount[bits]) << (byteIndexedMaxBits - bits)
	}
	if total != 1<<byteIndexedMaxBits {
		return nil, fmt.Errorf("code space 0x%x: %w", total, ErrInvalidCompressionTable)
	}

	t := &valueTable{}
	code := 0
	for bits := 1; bits <= byteIndexedMaxBits; bits++ {
		for symbol := 0; symbol < byteIndexedSymbols; symbol++ {
			if int(lengths[symbol]) != bits {
				continue
			}
			t.assign(symbol, code, bits)
			code++
		}
		code <<= 1
	}
	return t, nil
}

func (t *valueTable) assign(symbol, code, bits int) {
	entry := uint16(symbol<<4 | bits)

	if bits <= valueTableBits {
		base := code << (valueTableBits - bits)
		for i := 0; i < 1<<(valueTableBits-bits); i++ {
			t.values[base+i] = entry
		}
		return
	}
	prefix := code >> (bits - valueTableBits)
	if t.values[prefix]&escapeEntry == 0 {
		t.values[prefix] = escapeEntry | uint16(len(t.overflow)/overflowSize)
		t.overflow = append(t.overflow, make([]uint16, overflowSize)...)
	}
	sub := int(t.values[prefix]&^escapeEntry) * overflowSize
	rest := code & (1<<(bits-valueTableBits) - 1)
	base := rest << (byteIndexedMaxBits - bits)
	for i := 0; i < 1<<(byteIndexedMaxBits-bits); i++ {
		t.overflow[sub+base+i] = entry
	}
}

// bitStream reads 16-bit little-endian words, most significant bit first.
// Length extension bytes sit in the same input, between the words.
type bitStream struct {
	data  []byte
	pos   int
	bits  uint32
	extra int
}

func newBitStream(data []byte) *bitStream {
	s := &bitStream{data: data}
	hi := s.word()
	s.bits = uint32(hi)<<16 | uint32(s.word())
	s.extra = 16
	return s
}

// word returns the next 16-bit word, zero once the input is used up.
func (s *bitStream) word() uint16 {
	var v uint16
	if s.pos < len(s.data) {
		v = uint16(s.data[s.pos])
	}
	if s.pos+1 < len(s.data) {
		v |= uint16(s.data[s.pos+1]) << 8
	}
	s.pos += 2
	return v
}

func (s *bitStream) exhausted() bool { return s.pos >= len(s.data) }

// consume drops n <= 16 bits and refills from the next word when needed.
func (s *bitStream) consume(n int) {
	s.bits <<= uint(n)
	s.extra -= n
	if s.extra < 0 {
		s.bits |= uint32(s.word()) << uint(-s.extra)
		s.extra += 16
	}
}

func (s *bitStream) read(n int) uint32 {
	if n == 0 {
		return 0
	}
	v := s.bits >> uint(32-n)
	s.consume(n)
	return v
}

func (s *bitStream) symbol(t *valueTable) (int, error) {
	entry := t.values[s.bits>>(32-valueTableBits)]
	if entry&escapeEntry != 0 {
		sub := int(entry&^escapeEntry) * overflowSize
		entry = t.overflow[sub+int((s.bits>>(32-byteIndexedMaxBits))&(overflowSize-1))]
	}
	bits := int(entry & lengthMask)
	if bits == 0 {
		return 0, fmt.Errorf("unassigned code: %w", ErrCorruptData)
	}
	s.consume(bits)
	return int(entry >> 4), nil
}

func (s *bitStream) rawBytes(n int) ([]byte, error) {
	if s.pos+n > len(s.data) {
		return nil, fmt.Errorf("match length at %d runs past the input: %w", s.pos, ErrCorruptData)
	}
	b := s.data[s.pos : s.pos+n]
	s.pos += n
	return b, nil
}

// matchLength reads the extended length of a match whose length nibble is
// 0x0f: one byte added to 15, or for 0xff a 16-bit total, or for a zero
// 16-bit total a 32-bit one.
func (s *bitStream) matchLength() (int, error) {
	b, err := s.rawBytes(1)
	if err != nil {
		return 0, err
	}
	if b[0] != 0xff {
		return int(b[0]) + 0x0f, nil
	}
	w, err := s.rawBytes(2)
	if err != nil {
		return 0, err
	}
	length := uint32(binary.LittleEndian.Uint16(w))
	if length == 0 {
		d, err := s.rawBytes(4)
		if err != nil {
			return 0, err
		}
		length = binary.LittleEndian.Uint32(d)
	}
	if length < 0x0f {
		return 0, fmt.Errorf("match length %d: %w", length, ErrCorruptData)
	}
	return int(length), nil
}

// ByteIndexedUncompressedSize returns the stored uncompressed size of a
// byte-indexed payload (the data following the compression type byte).
func ByteIndexedUncompressedSize(compressed []byte) (int, error) {
	if len(compressed) < 2 {
		return 0, fmt.Errorf("missing stored size: %w", ErrCorruptData)
	}
	return int(binary.LittleEndian.Uint16(compressed)), nil
}

// DecompressByteIndexed decodes a byte-indexed payload into dst and returns
// the number of bytes written.
func DecompressByteIndexed(dst, compressed []byte) (int, error) {
	size, err := ByteIndexedUncompressedSize(compressed)
	if err != nil {
		return 0, err
	}
	if len(compressed) < 2+byteIndexedTableSize {
		return 0, fmt.Errorf("payload of %d bytes has no code table: %w", len(compressed), ErrCorruptData)
	}
	if len(dst) < size {
		return 0, fmt.Errorf("need %d bytes, have %d: %w", size, len(dst), ErrInsufficientBufferSize)
	}
	table, err := buildValueTable(compressed[2:])
	if err != nil {
		return 0, err
	}

	s := newBitStream(compressed[2+byteIndexedTableSize:])
	w := 0
	for w < size {
		symbol, err := s.symbol(table)
		if err != nil {
			return w, err
		}
		if symbol < firstMatchSymbol {
			dst[w] = byte(symbol)
			w++
			continue
		}
		// symbol 256 with nothing left to read ends the stream
		if symbol == firstMatchSymbol && s.exhausted() {
			break
		}

		match := symbol - firstMatchSymbol
		length := match & 0x0f
		if length == 0x0f {
			if length, err = s.matchLength(); err != nil {
				return w, err
			}
		}
		length += 3
		offsetBits := match >> 4
		offset := 1<<uint(offsetBits) | int(s.read(offsetBits))

		if offset > w {
			return w, fmt.Errorf("offset %d with %d bytes written: %w", offset, w, ErrCorruptData)
		}
		if w+length > size {
			return w, fmt.Errorf("copy of %d bytes past stored size %d: %w", length, size, ErrCorruptData)
		}
		for i := 0; i < length; i++ {
			dst[w] = dst[w-offset]
			w++
		}
	}
	return w, nil
}
