package export

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/C-Sto/goesedb/pkg/compression"
	"github.com/C-Sto/goesedb/pkg/esent"
	"github.com/stretchr/testify/require"
)

func le(size int, v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b[:size]
}

func TestFormatScalars(t *testing.T) {
	tests := []struct {
		name string
		typ  esent.ColumnType
		data []byte
		want string
	}{
		{"bit", esent.ColumnTypeBit, []byte{1}, "true"},
		{"byte", esent.ColumnTypeUnsignedByte, []byte{200}, "200"},
		{"short", esent.ColumnTypeShort, le(2, 0xfffe), "-2"},
		{"ushort", esent.ColumnTypeUnsignedShort, le(2, 0xfffe), "65534"},
		{"long", esent.ColumnTypeLong, le(4, 0xffffffff), "-1"},
		{"ulong", esent.ColumnTypeUnsignedLong, le(4, 0xffffffff), "4294967295"},
		{"longlong", esent.ColumnTypeLongLong, le(8, 1<<40), "1099511627776"},
		{"currency", esent.ColumnTypeCurrency, le(8, 12345), "12345"},
		{"single", esent.ColumnTypeIEEESingle, le(4, uint64(math.Float32bits(0.5))), "0.5"},
		{"double", esent.ColumnTypeIEEEDouble, le(8, math.Float64bits(-2.25)), "-2.25"},
		{"datetime", esent.ColumnTypeDateTime, le(8, 116444736000000000), "1970-01-01T00:00:00Z"},
		{"guid", esent.ColumnTypeGUID, []byte{
			0x33, 0x22, 0x11, 0x00, 0x55, 0x44, 0x77, 0x66,
			0x88, 0x99, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff,
		}, "00112233-4455-6677-8899-aabbccddeeff"},
		{"binary", esent.ColumnTypeBinary, []byte{0x00, 0xab, 0x10}, "00 ab 10 "},
		{"size mismatch", esent.ColumnTypeLong, []byte{1, 2}, "01 02 "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Formatter{}.Format(&esent.Value{Type: tt.typ, Data: tt.data})
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestFormatNull(t *testing.T) {
	got, err := Formatter{}.Format(&esent.Value{Type: esent.ColumnTypeLong})
	require.NoError(t, err)
	require.Empty(t, got)

	got, err = Formatter{}.Format(nil)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestFormatWindowsSearch(t *testing.T) {
	r := require.New(t)
	col := &esent.Column{Identifier: 300, Name: "4447-System_ItemName", Type: esent.ColumnTypeLongBinary}

	plain := append([]byte{compression.TypeCodepage}, []byte("caf\xe9")...)
	encoded := make([]byte, len(plain))
	r.NoError(compression.WindowsSearchDecode(encoded, plain))
	v := &esent.Value{Column: col, Type: col.Type, Data: encoded}

	got, err := Formatter{WindowsSearch: true}.Format(v)
	r.NoError(err)
	r.Equal("café", got)

	// without the mode the column is plain binary
	got, err = Formatter{}.Format(v)
	r.NoError(err)
	r.Equal(Hex(encoded), got)

	utf16 := []byte{compression.TypeUncompressed, 'o', 0, 'k', 0}
	encoded = make([]byte, len(utf16))
	r.NoError(compression.WindowsSearchDecode(encoded, utf16))
	got, err = Formatter{WindowsSearch: true}.Format(&esent.Value{Column: col, Type: col.Type, Data: encoded})
	r.NoError(err)
	r.Equal("ok", got)

	bad := []byte{0x08, 1, 2}
	encoded = make([]byte, len(bad))
	r.NoError(compression.WindowsSearchDecode(encoded, bad))
	_, err = Formatter{WindowsSearch: true}.Format(&esent.Value{Column: col, Type: col.Type, Data: encoded})
	r.ErrorIs(err, compression.ErrUnsupportedCompressionType)

	// other columns are left alone
	other := &esent.Column{Identifier: 301, Name: "WorkID", Type: esent.ColumnTypeBinary}
	got, err = Formatter{WindowsSearch: true}.Format(&esent.Value{Column: other, Type: other.Type, Data: []byte{1}})
	r.NoError(err)
	r.Equal("01 ", got)
}

func TestSanitizeName(t *testing.T) {
	require.Equal(t, "MSysObjects", SanitizeName("MSysObjects"))
	require.Equal(t, "a_b_c.d-e", SanitizeName("a/b c.d-e"))
	require.Equal(t, "_", SanitizeName(""))
}
