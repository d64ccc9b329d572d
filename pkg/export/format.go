package export

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/C-Sto/goesedb/pkg/compression"
	"github.com/C-Sto/goesedb/pkg/esent"
)

// multiValueSeparator joins the sub-values of a multi-valued column in one cell.
const multiValueSeparator = "; "

const dateTimeLayout = "2006-01-02T15:04:05.999999999Z"

// Formatter renders values into export cells.
type Formatter struct {
	// WindowsSearch decodes System_ binary columns as Windows Search strings.
	WindowsSearch bool
	// Codepage decodes Windows Search strings stored in a codepage.
	Codepage uint32
}

// Format renders v. NULL values render as the empty string.
func (f Formatter) Format(v *esent.Value) (string, error) {
	if v == nil || v.IsNull() {
		return "", nil
	}
	if mv, err := v.MultiValue(); err == nil {
		parts := make([]string, 0, mv.NumberOfValues())
		for i := 0; i < mv.NumberOfValues(); i++ {
			sub, err := mv.Value(i)
			if err != nil {
				return "", err
			}
			s, err := f.scalar(sub)
			if err != nil {
				return "", fmt.Errorf("multi value %d: %w", i, err)
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, multiValueSeparator), nil
	}
	return f.scalar(v)
}

func (f Formatter) scalar(v *esent.Value) (string, error) {
	if f.WindowsSearch && isWindowsSearchColumn(v.Column) {
		return f.windowsSearch(v.Data)
	}
	if size := v.Type.FixedSize(); size != 0 && len(v.Data) != size {
		return Hex(v.Data), nil
	}

	switch v.Type {
	case esent.ColumnTypeBit:
		b, err := v.Bool()
		return strconv.FormatBool(b), err
	case esent.ColumnTypeUnsignedByte:
		u, err := v.Uint8()
		return strconv.FormatUint(uint64(u), 10), err
	case esent.ColumnTypeShort:
		i, err := v.Int16()
		return strconv.FormatInt(int64(i), 10), err
	case esent.ColumnTypeUnsignedShort:
		u, err := v.Uint16()
		return strconv.FormatUint(uint64(u), 10), err
	case esent.ColumnTypeLong:
		i, err := v.Int32()
		return strconv.FormatInt(int64(i), 10), err
	case esent.ColumnTypeUnsignedLong:
		u, err := v.Uint32()
		return strconv.FormatUint(uint64(u), 10), err
	case esent.ColumnTypeLongLong, esent.ColumnTypeCurrency:
		i, err := v.Int64()
		return strconv.FormatInt(i, 10), err
	case esent.ColumnTypeIEEESingle:
		fl, err := v.Float32()
		return strconv.FormatFloat(float64(fl), 'g', -1, 32), err
	case esent.ColumnTypeIEEEDouble:
		fl, err := v.Float64()
		return strconv.FormatFloat(fl, 'g', -1, 64), err
	case esent.ColumnTypeDateTime:
		t, err := v.FileTime()
		if err != nil {
			return "", err
		}
		return FormatTime(t), nil
	case esent.ColumnTypeGUID:
		g, err := v.GUID()
		if err != nil {
			return "", err
		}
		return g.String(), nil
	case esent.ColumnTypeText, esent.ColumnTypeLongText:
		return v.Text()
	}
	return Hex(v.Data), nil
}

func (f Formatter) windowsSearch(data []byte) (string, error) {
	out, enc, err := compression.DecompressWindowsSearch(data)
	if err != nil {
		return "", err
	}
	if enc == compression.EncodingUTF16LE {
		return esent.DecodeText(out, esent.CodepageUnicode)
	}
	cp := f.Codepage
	if cp == 0 {
		cp = esent.CodepageWestern
	}
	return esent.DecodeText(out, cp)
}

func isWindowsSearchColumn(c *esent.Column) bool {
	if c == nil {
		return false
	}
	if c.Type != esent.ColumnTypeBinary && c.Type != esent.ColumnTypeLongBinary {
		return false
	}
	return strings.Contains(c.Name, "System_")
}

// Hex renders binary data as two hex digits and a space per byte.
func Hex(data []byte) string {
	var sb strings.Builder
	sb.Grow(len(data) * 3)
	for _, b := range data {
		fmt.Fprintf(&sb, "%02x ", b)
	}
	return sb.String()
}

// FormatTime renders a FILETIME derived time the way date time cells are written.
func FormatTime(t time.Time) string {
	return t.UTC().Format(dateTimeLayout)
}
