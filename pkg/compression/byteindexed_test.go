package compression

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// match symbols used by the fixtures: 256 + offsetBits<<4 + length nibble
const (
	symEnd        = 256
	symOff1Len3   = 256 + 0x10
	symOff2Len4   = 256 + 0x21
	symOff3LenExt = 256 + 0x3f
	symOff1Len5   = 256 + 0x12
	symOff1Len6   = 256 + 0x13
	symOff1Len7   = 256 + 0x14
)

// fixtureLengths is a complete code: 255 literals of 8 bits plus a tail of
// longer codes that forces the overflow tables to be used.
func fixtureLengths() [byteIndexedSymbols]uint8 {
	var lengths [byteIndexedSymbols]uint8
	for s := 0; s < 255; s++ {
		lengths[s] = 8
	}
	lengths[255] = 9
	lengths[symEnd] = 10
	lengths[symOff1Len3] = 11
	lengths[symOff2Len4] = 12
	lengths[symOff3LenExt] = 13
	lengths[symOff1Len5] = 14
	lengths[symOff1Len6] = 15
	lengths[symOff1Len7] = 15
	return lengths
}

type testCode struct {
	code uint32
	bits int
}

func canonicalCodes(lengths [byteIndexedSymbols]uint8) [byteIndexedSymbols]testCode {
	var codes [byteIndexedSymbols]testCode
	code := uint32(0)
	for bits := 1; bits <= byteIndexedMaxBits; bits++ {
		for s := 0; s < byteIndexedSymbols; s++ {
			if int(lengths[s]) == bits {
				codes[s] = testCode{code: code, bits: bits}
				code++
			}
		}
		code <<= 1
	}
	return codes
}

// streamOp is one read the decoder makes: n bits from the bit stream, or raw
// bytes taken at the current input position.
type streamOp struct {
	v   uint32
	n   int
	raw []byte
}

// encoder writes byte-indexed payloads and tracks the expected output.
type encoder struct {
	lengths [byteIndexedSymbols]uint8
	codes   [byteIndexedSymbols]testCode
	ops     []streamOp
	want    []byte
}

func newEncoder() *encoder {
	e := &encoder{lengths: fixtureLengths()}
	e.codes = canonicalCodes(e.lengths)
	return e
}

func (e *encoder) bits(v uint32, n int) {
	e.ops = append(e.ops, streamOp{v: v, n: n})
}

func (e *encoder) raw(b ...byte) {
	e.ops = append(e.ops, streamOp{raw: b})
}

func (e *encoder) symbol(s int) {
	e.bits(e.codes[s].code, e.codes[s].bits)
}

func (e *encoder) literal(b byte) {
	e.symbol(int(b))
	e.want = append(e.want, b)
}

// match emits symbol s with the given offset; ext are the length extension
// fields for a 0x0f length nibble: a byte, then a 16-bit total after 0xff.
func (e *encoder) match(s, offset int, ext ...uint32) {
	e.symbol(s)
	m := s - firstMatchSymbol
	length := m & 0x0f
	if length == 0x0f {
		e.raw(byte(ext[0]))
		length += int(ext[0])
		if ext[0] == 0xff {
			e.raw(byte(ext[1]), byte(ext[1]>>8))
			length = int(ext[1])
		}
	}
	offsetBits := m >> 4
	e.bits(uint32(offset-(1<<uint(offsetBits))), offsetBits)

	length += 3
	for i := 0; i < length; i++ {
		e.want = append(e.want, e.want[len(e.want)-offset])
	}
}

// stream lays the bit stream out as 16-bit little-endian words, placing raw
// bytes at the input position the decoder has reached when it reads them.
func (e *encoder) stream() []byte {
	var seq []byte
	for _, op := range e.ops {
		for i := op.n - 1; i >= 0; i-- {
			seq = append(seq, byte(op.v>>uint(i)&1))
		}
	}
	next := 0
	var out []byte
	fetch := func() {
		var w uint16
		for i := 0; i < 16; i++ {
			w <<= 1
			if next*16+i < len(seq) {
				w |= uint16(seq[next*16+i])
			}
		}
		next++
		out = append(out, byte(w), byte(w>>8))
	}

	fetch()
	fetch()
	extra := 16
	for _, op := range e.ops {
		if op.raw != nil {
			out = append(out, op.raw...)
			continue
		}
		if op.n == 0 {
			continue
		}
		extra -= op.n
		if extra < 0 {
			fetch()
			extra += 16
		}
	}
	return out
}

func (e *encoder) payload(storedSize int) []byte {
	out := make([]byte, 2, 2+byteIndexedTableSize)
	binary.LittleEndian.PutUint16(out, uint16(storedSize))
	for i := 0; i < byteIndexedTableSize; i++ {
		out = append(out, e.lengths[2*i]|e.lengths[2*i+1]<<4)
	}
	return append(out, e.stream()...)
}

// flatPayload uses 9 bit codes for all 512 symbols, so every symbol's code
// is its own value.
func flatPayload(storedSize int, stream ...byte) []byte {
	out := make([]byte, 2, 2+byteIndexedTableSize+len(stream))
	binary.LittleEndian.PutUint16(out, uint16(storedSize))
	for i := 0; i < byteIndexedTableSize; i++ {
		out = append(out, 0x99)
	}
	return append(out, stream...)
}

func TestByteIndexedFixedStreams(t *testing.T) {
	r := require.New(t)

	// 'a' 'b' 'c' then symbol 0x113 (one offset bit, length 6) with offset
	// bit 1, so offset 0b11:
	//   001100001 001100010 001100011 100010011 1
	// as words 0x3098 0x8c71 0x3800, and the zero word fetched after the match
	// symbol.
	dst := make([]byte, 9)
	n, err := DecompressByteIndexed(dst, flatPayload(9,
		0x98, 0x30, 0x71, 0x8c, 0x00, 0x38, 0x00, 0x00))
	r.NoError(err)
	r.Equal("abcabcabc", string(dst[:n]))

	// 'a' then symbol 0x10f: no offset bits so offset 1, length nibble 15.
	// The extension byte 0x02 follows the third word, giving 2+15+3 bytes.
	//   001100001 100001111
	dst = make([]byte, 21)
	n, err = DecompressByteIndexed(dst, flatPayload(21,
		0xc3, 0x30, 0x00, 0xc0, 0x00, 0x00, 0x02))
	r.NoError(err)
	r.Equal(strings.Repeat("a", 21), string(dst[:n]))

	// same stream with the extension byte missing
	_, err = DecompressByteIndexed(make([]byte, 21), flatPayload(21,
		0xc3, 0x30, 0x00, 0xc0, 0x00, 0x00))
	r.ErrorIs(err, ErrCorruptData)
}

func TestByteIndexedRoundTrip(t *testing.T) {
	r := require.New(t)
	e := newEncoder()

	e.literal('a')
	e.literal('b')
	e.literal('c')
	e.match(symOff1Len7, 3)
	e.match(symOff3LenExt, 8, 2)
	e.literal(0xff)
	e.match(symOff2Len4, 4)
	e.match(symOff1Len3, 2)
	e.match(symOff1Len5, 3)
	e.match(symOff1Len6, 2)
	e.match(symOff3LenExt, 9, 0xff, 300)
	e.match(symEnd, 1)
	e.literal('z')
	e.match(symOff3LenExt, 8, 0xff, 40)

	payload := e.payload(len(e.want))
	size, err := ByteIndexedUncompressedSize(payload)
	r.NoError(err)
	r.Equal(len(e.want), size)

	dst := make([]byte, size)
	n, err := DecompressByteIndexed(dst, payload)
	r.NoError(err)
	r.Equal(e.want, dst[:n])
}

func TestByteIndexedStopsAtEndOfStream(t *testing.T) {
	r := require.New(t)
	e := newEncoder()
	e.literal('x')
	e.literal('y')
	e.symbol(symEnd)

	// stored size larger than what the stream carries
	payload := e.payload(10)
	dst := make([]byte, 10)
	n, err := DecompressByteIndexed(dst, payload)
	r.NoError(err)
	r.Equal([]byte("xy"), dst[:n])
}

func TestByteIndexedStopsAtStoredSize(t *testing.T) {
	r := require.New(t)
	e := newEncoder()
	for _, b := range []byte("abcdef") {
		e.literal(b)
	}
	payload := e.payload(4)
	dst := make([]byte, 4)
	n, err := DecompressByteIndexed(dst, payload)
	r.NoError(err)
	r.Equal([]byte("abcd"), dst[:n])
}

func TestByteIndexedCorruptOffset(t *testing.T) {
	r := require.New(t)
	e := newEncoder()
	e.literal('a')
	e.symbol(symOff2Len4)
	e.bits(3, 2)

	payload := e.payload(8)
	_, err := DecompressByteIndexed(make([]byte, 8), payload)
	r.ErrorIs(err, ErrCorruptData)
}

func TestByteIndexedInvalidTables(t *testing.T) {
	r := require.New(t)

	empty := make([]byte, 2+byteIndexedTableSize+4)
	empty[0] = 4
	_, err := DecompressByteIndexed(make([]byte, 4), empty)
	r.ErrorIs(err, ErrInvalidCompressionTable)

	oversubscribed := make([]byte, 2+byteIndexedTableSize+4)
	oversubscribed[0] = 4
	for i := 2; i < 2+byteIndexedTableSize; i++ {
		oversubscribed[i] = 0x11
	}
	_, err = DecompressByteIndexed(make([]byte, 4), oversubscribed)
	r.ErrorIs(err, ErrInvalidCompressionTable)

	_, err = DecompressByteIndexed(make([]byte, 4), []byte{4, 0, 1})
	r.ErrorIs(err, ErrCorruptData)
}

func TestByteIndexedInsufficientBuffer(t *testing.T) {
	e := newEncoder()
	e.literal('a')
	_, err := DecompressByteIndexed(make([]byte, 1), e.payload(5))
	require.ErrorIs(t, err, ErrInsufficientBufferSize)
}

func TestValueTableEscapes(t *testing.T) {
	r := require.New(t)
	lengths := fixtureLengths()
	var nibbles [byteIndexedTableSize]byte
	for i := range nibbles {
		nibbles[i] = lengths[2*i] | lengths[2*i+1]<<4
	}
	table, err := buildValueTable(nibbles[:])
	r.NoError(err)

	// all codes longer than 11 bits share the all-ones prefix
	r.NotZero(table.values[valueTableSize-1] & escapeEntry)
	r.Len(table.overflow, overflowSize)
	r.Equal(uint16(symOff1Len7<<4|15), table.overflow[overflowSize-1])
	r.Equal(uint16('a'<<4|8), table.values[int('a')<<3])
}
