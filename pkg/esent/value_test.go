package esent

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecodeText(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		codepage uint32
		want     string
	}{
		{"ascii", []byte("plain\x00\x00"), CodepageASCII, "plain"},
		{"utf8", []byte("h\xc3\xa9llo"), CodepageUTF8, "héllo"},
		{"utf16", []byte{'h', 0, 0xe9, 0, 0, 0}, CodepageUnicode, "hé"},
		{"western", []byte{'c', 'a', 'f', 0xe9}, CodepageWestern, "café"},
		{"cyrillic", []byte{0xcf, 0xf0, 0xe8}, 1251, "При"},
		{"dos", []byte{0x82}, 437, "é"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeText(tt.data, tt.codepage)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := DecodeText([]byte("x"), 12345)
	require.ErrorIs(t, err, ErrUnsupportedValue)
	require.False(t, SupportedCodepage(12345))
	require.True(t, SupportedCodepage(CodepageUTF8))

	_, err = DecodeText([]byte{0xff, 0xfe}, CodepageUTF8)
	require.ErrorIs(t, err, ErrCorruptData)
}

func TestFileTime(t *testing.T) {
	r := require.New(t)
	r.Equal(time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), FileTimeToTime(116444736000000000))
	r.Equal(time.Date(2020, 1, 1, 12, 30, 0, 500, time.UTC), FileTimeToTime(132223554000000005))

	r.Equal(time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC), OLEDateToTime(0))
	r.Equal(time.Date(1900, 1, 1, 18, 0, 0, 0, time.UTC), OLEDateToTime(2.75))
	r.Equal(time.Date(1899, 12, 29, 6, 0, 0, 0, time.UTC), OLEDateToTime(-1.25))
}

func TestValueAccessors(t *testing.T) {
	r := require.New(t)

	v := &Value{Type: ColumnTypeLongLong, Data: []byte{0xfe, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}}
	i, err := v.Int64()
	r.NoError(err)
	r.Equal(int64(-2), i)
	_, err = v.Int32()
	r.ErrorIs(err, ErrUnsupportedValue)

	v = &Value{Type: ColumnTypeIEEEDouble, Data: make([]byte, 8)}
	bits := math.Float64bits(1.5)
	for k := 0; k < 8; k++ {
		v.Data[k] = byte(bits >> (8 * uint(k)))
	}
	f, err := v.Float64()
	r.NoError(err)
	r.Equal(1.5, f)
	d, err := v.OLEDate()
	r.NoError(err)
	r.Equal(time.Date(1899, 12, 31, 12, 0, 0, 0, time.UTC), d)

	v = &Value{Type: ColumnTypeUnsignedByte, Data: []byte{0xff}}
	u8, err := v.Uint8()
	r.NoError(err)
	r.Equal(uint8(255), u8)
	i8, err := v.Int8()
	r.NoError(err)
	r.Equal(int8(-1), i8)

	v = &Value{Type: ColumnTypeGUID, Data: []byte{
		0x33, 0x22, 0x11, 0x00, 0x55, 0x44, 0x77, 0x66,
		0x88, 0x99, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff,
	}}
	g, err := v.GUID()
	r.NoError(err)
	r.Equal("00112233-4455-6677-8899-aabbccddeeff", g.String())

	v = &Value{Type: ColumnTypeText}
	r.True(v.IsNull())
	_, err = v.Text()
	r.ErrorIs(err, ErrValueMissing)
	_, err = v.LongValue()
	r.ErrorIs(err, ErrArgument)
}

func TestEnumerations(t *testing.T) {
	r := require.New(t)

	ct, err := parseColumnType(12)
	r.NoError(err)
	r.Equal(ColumnTypeLongText, ct)
	r.Equal("LargeText", ct.String())
	r.True(ct.IsText())
	_, err = parseColumnType(18)
	r.ErrorIs(err, ErrUnsupportedValue)
	r.Equal("ColumnType(18)", ColumnType(18).String())

	r.Equal(8, ColumnTypeDateTime.FixedSize())
	r.Equal(16, ColumnTypeGUID.FixedSize())
	r.Equal(0, ColumnTypeBinary.FixedSize())

	r.Equal("root|leaf", (PageRoot | PageLeaf).String())
	r.Equal("leaf|long-value|new-format", (PageLeaf | PageLongValue | PageNewFormat).String())
	r.Equal("0x100", PageFlags(0x100).String())
	r.Equal("Index", CatalogTypeIndex.String())

	r.Equal(PathUnsupported, valuePath(ValueUnknown10|ValueLongValue))
	r.Equal(PathMultiValue, valuePath(ValueMultiValue|ValueLongValue|ValueCompressed))
	r.Equal(PathLongValue, valuePath(ValueLongValue|ValueCompressed))
	r.Equal(PathCompressed, valuePath(ValueCompressed|ValueVariableSize))
	r.Equal(PathInline, valuePath(ValueVariableSize))
	r.Equal("long-value", PathLongValue.String())
}
