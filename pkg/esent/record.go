package esent

import (
	"encoding/binary"
	"fmt"

	"github.com/C-Sto/goesedb/pkg/compression"
	"go.uber.org/zap"
)

const (
	taggedOffsetMask         = 0x3fff
	taggedOffsetMaskExtended = 0x7fff
	taggedHasFlags           = 0x4000
)

// recordLayout maps record data onto the columns of one table.
type recordLayout struct {
	columns  []*Column
	byID     map[uint32]int
	format   PageFormat
	lv       *longValueStore
	codepage uint32
	log      *zap.Logger
}

func newRecordLayout(columns []*Column, format PageFormat, lv *longValueStore, codepage uint32, log *zap.Logger) *recordLayout {
	l := &recordLayout{
		columns:  columns,
		byID:     make(map[uint32]int, len(columns)),
		format:   format,
		lv:       lv,
		codepage: codepage,
		log:      log,
	}
	for i, c := range columns {
		l.byID[c.Identifier] = i
	}
	return l
}

// Record is one row of a table. Values that could not be decoded keep their
// error, the rest of the row stays readable.
type Record struct {
	values []*Value
	errs   []error
}

func (r *Record) NumberOfValues() int { return len(r.values) }

// Value returns the value of column i, in table column order.
func (r *Record) Value(i int) (*Value, error) {
	if i < 0 || i >= len(r.values) {
		return nil, fmt.Errorf("value %d of %d: %w", i, len(r.values), ErrArgument)
	}
	if r.errs[i] != nil {
		return nil, r.errs[i]
	}
	return r.values[i], nil
}

// MultiValue returns the sub-values of column i.
func (r *Record) MultiValue(i int) (*MultiValue, error) {
	v, err := r.Value(i)
	if err != nil {
		return nil, err
	}
	return v.MultiValue()
}

// LongValue returns the long value column i references.
func (r *Record) LongValue(i int) (*LongValue, error) {
	v, err := r.Value(i)
	if err != nil {
		return nil, err
	}
	return v.LongValue()
}

func (l *recordLayout) columnCodepage(c *Column) uint32 {
	if c.Codepage == 0 || !SupportedCodepage(c.Codepage) {
		return l.codepage
	}
	return c.Codepage
}

func (l *recordLayout) set(r *Record, id uint32, v *Value, err error) {
	i, ok := l.byID[id]
	if !ok {
		l.log.Debug("record value for unknown column", zap.Uint32("column", id))
		return
	}
	c := l.columns[i]
	if v != nil {
		v.Column = c
		v.Type = c.Type
		v.codepage = l.columnCodepage(c)
		if v.multi != nil {
			v.multi.Column = c
			v.multi.Type = c.Type
			v.multi.codepage = v.codepage
		}
	}
	r.values[i], r.errs[i] = v, err
}

// parse decodes a leaf value of the table tree.
func (l *recordLayout) parse(data []byte) (*Record, error) {
	h, err := readDataDefinitionHeader(data)
	if err != nil {
		return nil, err
	}
	r := &Record{
		values: make([]*Value, len(l.columns)),
		errs:   make([]error, len(l.columns)),
	}
	varOffset := int(h.VariableSizeDataOffset)
	if varOffset < dataDefinitionHeaderSize || varOffset > len(data) {
		return nil, fmt.Errorf("variable size data offset %d in %d byte record: %w", varOffset, len(data), ErrCorruptData)
	}

	if err := l.parseFixed(r, data, h); err != nil {
		return nil, err
	}
	taggedStart, err := l.parseVariable(r, data, h)
	if err != nil {
		return nil, err
	}
	if taggedStart < len(data) {
		if err := l.parseTagged(r, data[taggedStart:]); err != nil {
			return nil, err
		}
	}
	l.applyDefaults(r)
	return r, nil
}

// parseFixed reads fixed columns 1 to the last fixed identifier, stored
// back to back in identifier order and followed by a NULL bitmap.
func (l *recordLayout) parseFixed(r *Record, data []byte, h dataDefinitionHeader) error {
	lastFixed := uint32(h.LastFixedSizeDataType)
	varOffset := int(h.VariableSizeDataOffset)

	offset := dataDefinitionHeaderSize
	type fixedValue struct {
		id   uint32
		data []byte
	}
	var fixed []fixedValue
	for _, c := range l.columns {
		if !c.IsFixed() || c.Identifier > lastFixed {
			continue
		}
		size := int(c.Size)
		if size == 0 {
			size = c.Type.FixedSize()
		}
		if offset+size > varOffset {
			return fmt.Errorf("fixed column %d at %d runs past variable data at %d: %w", c.Identifier, offset, varOffset, ErrCorruptData)
		}
		fixed = append(fixed, fixedValue{id: c.Identifier, data: data[offset : offset+size]})
		offset += size
	}

	bitmapSize := (int(lastFixed) + 7) / 8
	hasBitmap := offset+bitmapSize <= varOffset
	for _, f := range fixed {
		if hasBitmap {
			bit := f.id - 1
			if data[offset+int(bit/8)]&(1<<(bit%8)) != 0 {
				l.set(r, f.id, &Value{Path: PathInline}, nil)
				continue
			}
		}
		l.set(r, f.id, &Value{Data: f.data, Path: PathInline}, nil)
	}
	return nil
}

// parseVariable reads the variable size columns and returns where the tagged
// data starts.
func (l *recordLayout) parseVariable(r *Record, data []byte, h dataDefinitionHeader) (int, error) {
	varOffset := int(h.VariableSizeDataOffset)
	if h.LastVariableSizeDataType <= 127 {
		return varOffset, nil
	}
	count := int(h.LastVariableSizeDataType) - 127
	dataStart := varOffset + 2*count
	if dataStart > len(data) {
		return 0, fmt.Errorf("variable size directory of %d entries at %d: %w", count, varOffset, ErrCorruptData)
	}

	previous := 0
	for i := 0; i < count; i++ {
		id := uint32(128 + i)
		raw := binary.LittleEndian.Uint16(data[varOffset+2*i:])
		if raw&variableSizeNull != 0 {
			l.set(r, id, &Value{Path: PathInline}, nil)
			continue
		}
		end := int(raw & variableSizeMask)
		if end < previous || dataStart+end > len(data) {
			return 0, fmt.Errorf("variable column %d ends at %d: %w", id, end, ErrCorruptData)
		}
		l.set(r, id, &Value{Data: data[dataStart+previous : dataStart+end], Path: PathInline, Flags: ValueVariableSize}, nil)
		previous = end
	}
	return dataStart + previous, nil
}

type taggedEntry struct {
	id     uint16
	offset int
	flags  bool
}

// parseTagged reads the tagged area: a directory of (identifier, offset)
// pairs whose first offset is also the directory size.
func (l *recordLayout) parseTagged(r *Record, tagged []byte) error {
	mask := uint16(taggedOffsetMask)
	if l.format.extended() {
		mask = taggedOffsetMaskExtended
	}
	if len(tagged) < 4 {
		return fmt.Errorf("tagged data of %d bytes: %w", len(tagged), ErrCorruptData)
	}
	dirSize := int(binary.LittleEndian.Uint16(tagged[2:]) & mask)
	if dirSize < 4 || dirSize%4 != 0 || dirSize > len(tagged) {
		return fmt.Errorf("tagged directory of %d bytes in %d: %w", dirSize, len(tagged), ErrCorruptData)
	}

	entries := make([]taggedEntry, dirSize/4)
	for i := range entries {
		raw := binary.LittleEndian.Uint16(tagged[4*i+2:])
		e := taggedEntry{
			id:     binary.LittleEndian.Uint16(tagged[4*i:]),
			offset: int(raw & mask),
			flags:  l.format.extended() || raw&taggedHasFlags != 0,
		}
		if e.offset < dirSize || e.offset > len(tagged) || (i > 0 && e.offset < entries[i-1].offset) {
			return fmt.Errorf("tagged column %d at %d: %w", e.id, e.offset, ErrCorruptData)
		}
		entries[i] = e
	}

	for i, e := range entries {
		end := len(tagged)
		if i+1 < len(entries) {
			end = entries[i+1].offset
		}
		value := tagged[e.offset:end]
		var flags ValueFlags
		if e.flags && len(value) > 0 {
			flags = ValueFlags(value[0])
			value = value[1:]
		}
		v, err := l.taggedValue(value, flags)
		if err != nil {
			err = fmt.Errorf("tagged column %d: %w", e.id, err)
		}
		l.set(r, uint32(e.id), v, err)
	}
	return nil
}

// taggedValue follows the decode path the tagged flags select.
func (l *recordLayout) taggedValue(data []byte, flags ValueFlags) (*Value, error) {
	v := &Value{Flags: flags, Path: valuePath(flags)}
	switch v.Path {
	case PathUnsupported:
		v.Data = data
	case PathMultiValue:
		if flags.Has(ValueLongValue) {
			lv, err := l.resolveLongValue(data)
			if err != nil {
				return nil, err
			}
			v.longValue = lv
			data = lv.Data()
		}
		mv, err := parseMultiValue(data, nil, l.codepage, flags.Has(ValueCompressed))
		if err != nil {
			return nil, err
		}
		v.multi = mv
		v.Data = data
	case PathLongValue:
		lv, err := l.resolveLongValue(data)
		if err != nil {
			return nil, err
		}
		v.longValue = lv
		v.Data = lv.Data()
		if flags.Has(ValueCompressed) {
			d, err := compression.DecompressValue(v.Data)
			if err != nil {
				return nil, err
			}
			v.Data = d
		}
	case PathCompressed:
		d, err := compression.DecompressValue(data)
		if err != nil {
			return nil, err
		}
		v.Data = d
	default:
		v.Data = data
	}
	if v.Data == nil {
		v.Data = []byte{}
	}
	return v, nil
}

func (l *recordLayout) resolveLongValue(ref []byte) (*LongValue, error) {
	if l.lv == nil {
		return nil, fmt.Errorf("table has no long value tree: %w", ErrValueMissing)
	}
	if len(ref) != 4 {
		return nil, fmt.Errorf("long value reference of %d bytes: %w", len(ref), ErrCorruptData)
	}
	return l.lv.resolve(binary.LittleEndian.Uint32(ref))
}

// applyDefaults fills columns the row does not store with their default value.
func (l *recordLayout) applyDefaults(r *Record) {
	for i, c := range l.columns {
		if r.values[i] != nil || r.errs[i] != nil || c.DefaultValue == nil {
			continue
		}
		r.values[i] = &Value{
			Column:      c,
			Type:        c.Type,
			Data:        c.DefaultValue,
			Path:        PathInline,
			FromDefault: true,
			codepage:    l.columnCodepage(c),
		}
	}
	for i, c := range l.columns {
		if r.values[i] == nil && r.errs[i] == nil {
			r.values[i] = &Value{Column: c, Type: c.Type, codepage: l.columnCodepage(c)}
		}
	}
}
