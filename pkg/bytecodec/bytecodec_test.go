package bytecodec

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFixedWidth(t *testing.T) {
	r := require.New(t)
	buf := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}

	v16, err := Uint16(buf, 1, binary.LittleEndian)
	r.NoError(err)
	r.Equal(uint16(0x0302), v16)

	v32, err := Uint32(buf, 0, binary.BigEndian)
	r.NoError(err)
	r.Equal(uint32(0x01020304), v32)

	v64, err := Uint64(buf, 0, binary.LittleEndian)
	r.NoError(err)
	r.Equal(uint64(0x0807060504030201), v64)
}

func TestOutOfBounds(t *testing.T) {
	r := require.New(t)
	buf := []byte{1, 2, 3}

	_, err := Uint32(buf, 0, binary.LittleEndian)
	r.ErrorIs(err, ErrOutOfBounds)

	_, err = Uint16(buf, 2, binary.LittleEndian)
	r.ErrorIs(err, ErrOutOfBounds)

	_, err = Uint16(buf, -1, binary.LittleEndian)
	r.ErrorIs(err, ErrOutOfBounds)

	_, err = Slice(buf, 1, 3)
	r.ErrorIs(err, ErrOutOfBounds)

	s, err := Slice(buf, 1, 2)
	r.NoError(err)
	r.Equal([]byte{2, 3}, s)
}

func TestReaderStopsAtFirstError(t *testing.T) {
	r := require.New(t)
	rd := NewReader([]byte{0xaa, 0xbb, 0xcc}, 0, binary.LittleEndian)

	r.Equal(uint16(0xbbaa), rd.Uint16())
	r.Equal(uint32(0), rd.Uint32())
	r.ErrorIs(rd.Err(), ErrOutOfBounds)
	r.Equal(uint8(0), rd.Uint8())
	r.Equal(2, rd.Offset())
}
