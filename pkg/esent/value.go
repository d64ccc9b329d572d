package esent

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Column describes one column of a table, template columns included.
type Column struct {
	Identifier   uint32
	Name         string
	Type         ColumnType
	Size         uint32
	Flags        uint32
	Codepage     uint32
	DefaultValue []byte
}

func newColumn(d *CatalogDefinition, codepage uint32) *Column {
	return &Column{
		Identifier:   d.Identifier,
		Name:         decodeName(d.NameData, codepage),
		Type:         d.ColumnType,
		Size:         d.Size,
		Flags:        d.Flags,
		Codepage:     d.Codepage,
		DefaultValue: d.DefaultValue,
	}
}

// IsFixed reports whether the column lives in the fixed size area of a record.
func (c *Column) IsFixed() bool { return c.Identifier >= 1 && c.Identifier <= 127 }

// IsVariable reports whether the column lives in the variable size area.
func (c *Column) IsVariable() bool { return c.Identifier >= 128 && c.Identifier <= 255 }

// IsTagged reports whether the column lives in the tagged area.
func (c *Column) IsTagged() bool { return c.Identifier >= 256 }

// Value is the content of one column in one record. Compressed values are
// already decompressed and long values already resolved.
type Value struct {
	Column      *Column
	Type        ColumnType
	Data        []byte
	Flags       ValueFlags
	Path        ValuePath
	FromDefault bool

	codepage  uint32
	multi     *MultiValue
	longValue *LongValue
}

// IsNull reports whether the record stores nothing for the column.
func (v *Value) IsNull() bool { return v.Data == nil && v.multi == nil }

// MultiValue returns the sub-values of a multi-valued column.
func (v *Value) MultiValue() (*MultiValue, error) {
	if v.multi == nil {
		return nil, fmt.Errorf("column %s is not multi-valued: %w", v.name(), ErrArgument)
	}
	return v.multi, nil
}

// LongValue returns the out of row value the record referenced, if any.
func (v *Value) LongValue() (*LongValue, error) {
	if v.longValue == nil {
		return nil, fmt.Errorf("column %s is not a long value: %w", v.name(), ErrArgument)
	}
	return v.longValue, nil
}

func (v *Value) name() string {
	if v.Column == nil {
		return v.Type.String()
	}
	return v.Column.Name
}

func (v *Value) fixed(size int) ([]byte, error) {
	if v.IsNull() {
		return nil, fmt.Errorf("column %s is NULL: %w", v.name(), ErrValueMissing)
	}
	if len(v.Data) != size {
		return nil, fmt.Errorf("column %s holds %d bytes, expected %d: %w", v.name(), len(v.Data), size, ErrUnsupportedValue)
	}
	return v.Data, nil
}

func (v *Value) Bool() (bool, error) {
	b, err := v.fixed(1)
	if err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

func (v *Value) Uint8() (uint8, error) {
	b, err := v.fixed(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (v *Value) Int8() (int8, error) {
	u, err := v.Uint8()
	return int8(u), err
}

func (v *Value) Int16() (int16, error) {
	u, err := v.Uint16()
	return int16(u), err
}

func (v *Value) Uint16() (uint16, error) {
	b, err := v.fixed(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (v *Value) Int32() (int32, error) {
	u, err := v.Uint32()
	return int32(u), err
}

func (v *Value) Uint32() (uint32, error) {
	b, err := v.fixed(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (v *Value) Int64() (int64, error) {
	u, err := v.Uint64()
	return int64(u), err
}

func (v *Value) Uint64() (uint64, error) {
	b, err := v.fixed(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// Currency returns the raw currency value, in units of 1/10000.
func (v *Value) Currency() (int64, error) { return v.Int64() }

func (v *Value) Float32() (float32, error) {
	u, err := v.Uint32()
	return math.Float32frombits(u), err
}

func (v *Value) Float64() (float64, error) {
	u, err := v.Uint64()
	return math.Float64frombits(u), err
}

// FileTime interprets a date time value as a FILETIME.
func (v *Value) FileTime() (time.Time, error) {
	u, err := v.Uint64()
	if err != nil {
		return time.Time{}, err
	}
	return FileTimeToTime(u), nil
}

// OLEDate interprets a date time value as an OLE automation date.
func (v *Value) OLEDate() (time.Time, error) {
	f, err := v.Float64()
	if err != nil {
		return time.Time{}, err
	}
	return OLEDateToTime(f), nil
}

// GUID decodes a 16 byte GUID, whose first three fields are little-endian.
func (v *Value) GUID() (uuid.UUID, error) {
	b, err := v.fixed(16)
	if err != nil {
		return uuid.Nil, err
	}
	return guidFromBytes(b)
}

func guidFromBytes(b []byte) (uuid.UUID, error) {
	swapped := make([]byte, 16)
	copy(swapped, b)
	swapped[0], swapped[1], swapped[2], swapped[3] = b[3], b[2], b[1], b[0]
	swapped[4], swapped[5] = b[5], b[4]
	swapped[6], swapped[7] = b[7], b[6]
	return uuid.FromBytes(swapped)
}

// Text decodes a text value using the column codepage.
func (v *Value) Text() (string, error) {
	if v.IsNull() {
		return "", fmt.Errorf("column %s is NULL: %w", v.name(), ErrValueMissing)
	}
	return DecodeText(v.Data, v.codepage)
}

// Bytes returns the raw value.
func (v *Value) Bytes() []byte { return v.Data }
