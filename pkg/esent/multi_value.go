package esent

import (
	"encoding/binary"
	"fmt"

	"github.com/C-Sto/goesedb/pkg/compression"
)

const (
	multiValueOffsetMask = 0x7fff
	multiValueCompressed = 0x8000
)

// MultiValue holds the sub-values of a multi-valued tagged column.
type MultiValue struct {
	Column   *Column
	Type     ColumnType
	codepage uint32
	values   [][]byte
}

// parseMultiValue splits a multi-value entry. It starts with a table of
// uint16 start offsets, one per sub-value, so the first offset is also the
// size of the table. Only the first sub-value can be compressed: it is when
// the entry carries the compressed flag or its offset has bit 0x8000 set.
func parseMultiValue(data []byte, column *Column, codepage uint32, compressedEntry bool) (*MultiValue, error) {
	mv := &MultiValue{Column: column, codepage: codepage}
	if column != nil {
		mv.Type = column.Type
	}
	if len(data) == 0 {
		return mv, nil
	}
	if len(data) < 2 {
		return nil, fmt.Errorf("multi value of %d bytes: %w", len(data), ErrCorruptData)
	}
	first := binary.LittleEndian.Uint16(data) & multiValueOffsetMask
	count := int(first) / 2
	if count == 0 || 2*count > len(data) {
		return nil, fmt.Errorf("multi value offset table of %d entries in %d bytes: %w", count, len(data), ErrCorruptData)
	}

	starts := make([]int, count)
	compressed := make([]bool, count)
	for i := range starts {
		raw := binary.LittleEndian.Uint16(data[2*i:])
		starts[i] = int(raw & multiValueOffsetMask)
		compressed[i] = raw&multiValueCompressed != 0
		if starts[i] < 2*count || starts[i] > len(data) || (i > 0 && starts[i] < starts[i-1]) {
			return nil, fmt.Errorf("multi value %d starts at %d: %w", i, starts[i], ErrCorruptData)
		}
	}

	mv.values = make([][]byte, count)
	for i, start := range starts {
		end := len(data)
		if i+1 < count {
			end = starts[i+1]
		}
		v := data[start:end]
		if compressed[i] || (i == 0 && compressedEntry) {
			if i != 0 {
				return nil, fmt.Errorf("multi value %d is compressed: %w", i, ErrCorruptData)
			}
			d, err := compression.DecompressValue(v)
			if err != nil {
				return nil, fmt.Errorf("multi value %d: %w", i, err)
			}
			v = d
		}
		mv.values[i] = v
	}
	return mv, nil
}

func (mv *MultiValue) NumberOfValues() int { return len(mv.values) }

// Value returns sub-value i typed like its column.
func (mv *MultiValue) Value(i int) (*Value, error) {
	if i < 0 || i >= len(mv.values) {
		return nil, fmt.Errorf("multi value %d of %d: %w", i, len(mv.values), ErrArgument)
	}
	data := mv.values[i]
	if data == nil {
		data = []byte{}
	}
	return &Value{
		Column:   mv.Column,
		Type:     mv.Type,
		Data:     data,
		Path:     PathInline,
		codepage: mv.codepage,
	}, nil
}

func (mv *MultiValue) Bytes(i int) ([]byte, error) {
	v, err := mv.Value(i)
	if err != nil {
		return nil, err
	}
	return v.Data, nil
}

// UTF8String decodes text sub-value i.
func (mv *MultiValue) UTF8String(i int) (string, error) {
	v, err := mv.Value(i)
	if err != nil {
		return "", err
	}
	return v.Text()
}

func (mv *MultiValue) Int32(i int) (int32, error) {
	v, err := mv.Value(i)
	if err != nil {
		return 0, err
	}
	return v.Int32()
}

func (mv *MultiValue) Int64(i int) (int64, error) {
	v, err := mv.Value(i)
	if err != nil {
		return 0, err
	}
	return v.Int64()
}

func (mv *MultiValue) Float64(i int) (float64, error) {
	v, err := mv.Value(i)
	if err != nil {
		return 0, err
	}
	return v.Float64()
}
