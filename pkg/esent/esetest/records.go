package esetest

import (
	"encoding/binary"
	"sort"
)

//# Catalog types
const (
	CatalogTable     = 1
	CatalogColumn    = 2
	CatalogIndex     = 3
	CatalogLongValue = 4
	CatalogCallback  = 5
)

// CatalogEntry is one catalog record. ColumnTypeOrPage holds the column type
// for columns and the root page for everything else.
type CatalogEntry struct {
	TableObjectID    uint32
	Type             uint16
	ID               uint32
	ColumnTypeOrPage uint32
	SpaceUsage       uint32
	Flags            uint32
	Codepage         uint32
	Name             string
	Template         string
	Default          []byte
	// LastFixed is the schema's last fixed column, 11 when zero.
	LastFixed uint8
}

var catalogFixedSizes = []int{4, 2, 4, 4, 4, 4, 4, 1, 2, 4, 2}

// Key orders catalog entries by table, type and identifier.
func (e CatalogEntry) Key() []byte {
	k := make([]byte, 10)
	binary.BigEndian.PutUint32(k, e.TableObjectID)
	binary.BigEndian.PutUint16(k[4:], e.Type)
	binary.BigEndian.PutUint32(k[6:], e.ID)
	return k
}

// Encode renders the catalog record.
func (e CatalogEntry) Encode() []byte {
	lastFixed := e.LastFixed
	if lastFixed == 0 {
		lastFixed = 11
	}
	fixed := map[int][]byte{}
	put32 := func(id int, v uint32) {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, v)
		fixed[id] = b
	}
	put32(1, e.TableObjectID)
	t := make([]byte, 2)
	binary.LittleEndian.PutUint16(t, e.Type)
	fixed[2] = t
	put32(3, e.ID)
	put32(4, e.ColumnTypeOrPage)
	put32(5, e.SpaceUsage)
	put32(6, e.Flags)
	put32(7, e.Codepage)

	r := Record{LastFixed: lastFixed}
	for id := 1; id <= int(lastFixed); id++ {
		v, ok := fixed[id]
		if !ok {
			v = make([]byte, catalogFixedSizes[id-1])
		}
		r.Fixed = append(r.Fixed, v)
	}
	r.Variable = map[uint8][]byte{128: []byte(e.Name)}
	if e.Template != "" {
		r.Variable[130] = []byte(e.Template)
	}
	if e.Default != nil {
		r.Variable[131] = e.Default
	}
	return r.Encode()
}

// Catalog returns the entries as catalog tree entries.
func Catalog(entries ...CatalogEntry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = Entry{Key: e.Key(), Data: e.Encode()}
	}
	SortEntries(out)
	return out
}

// TaggedValue is a tagged column value with its data type flags.
type TaggedValue struct {
	ID    uint16
	Flags byte
	Data  []byte
}

// Record renders a table row. Fixed holds the values of columns 1..n in
// order, Null marks fixed columns whose NULL bit is set. Variable is keyed by
// column identifier, a nil value is NULL.
type Record struct {
	LastFixed uint8
	Fixed     [][]byte
	Null      map[int]bool
	Variable  map[uint8][]byte
	Tagged    []TaggedValue
	// Extended writes tagged data the way 16 and 32 KiB pages store it.
	Extended bool
}

// Encode renders the record.
func (r Record) Encode() []byte {
	lastFixed := r.LastFixed
	if lastFixed == 0 {
		lastFixed = uint8(len(r.Fixed))
	}
	lastVar := uint8(127)
	for id := range r.Variable {
		if id > lastVar {
			lastVar = id
		}
	}

	out := []byte{lastFixed, lastVar, 0, 0}
	bitmap := make([]byte, (int(lastFixed)+7)/8)
	for i, v := range r.Fixed {
		if r.Null[i+1] {
			bitmap[i/8] |= 1 << uint(i%8)
		}
		out = append(out, v...)
	}
	out = append(out, bitmap...)
	binary.LittleEndian.PutUint16(out[2:], uint16(len(out)))

	var varData []byte
	for id := 128; id <= int(lastVar); id++ {
		v, ok := r.Variable[uint8(id)]
		size := make([]byte, 2)
		if !ok || v == nil {
			binary.LittleEndian.PutUint16(size, 0x8000|uint16(len(varData)))
		} else {
			varData = append(varData, v...)
			binary.LittleEndian.PutUint16(size, uint16(len(varData)))
		}
		out = append(out, size...)
	}
	out = append(out, varData...)

	if len(r.Tagged) == 0 {
		return out
	}
	tagged := append([]TaggedValue(nil), r.Tagged...)
	sort.SliceStable(tagged, func(i, j int) bool { return tagged[i].ID < tagged[j].ID })

	dir := make([]byte, 4*len(tagged))
	var data []byte
	for i, t := range tagged {
		offset := uint16(len(dir) + len(data))
		binary.LittleEndian.PutUint16(dir[4*i:], t.ID)
		if r.Extended {
			binary.LittleEndian.PutUint16(dir[4*i+2:], offset)
			data = append(data, t.Flags)
		} else if t.Flags != 0 {
			binary.LittleEndian.PutUint16(dir[4*i+2:], offset|0x4000)
			data = append(data, t.Flags)
		} else {
			binary.LittleEndian.PutUint16(dir[4*i+2:], offset)
		}
		data = append(data, t.Data...)
	}
	out = append(out, dir...)
	return append(out, data...)
}

// MultiValue renders a multi-value entry: a table of start offsets followed
// by the values.
func MultiValue(values ...[]byte) []byte {
	out := make([]byte, 2*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(len(out)))
		out = append(out, v...)
	}
	return out
}

// LongValue returns the long value tree entries storing data under id,
// split into segments of at most segmentSize bytes.
func LongValue(id uint32, data []byte, segmentSize int) []Entry {
	key := make([]byte, 4)
	binary.BigEndian.PutUint32(key, id)
	header := make([]byte, 8)
	binary.LittleEndian.PutUint32(header, 1)
	binary.LittleEndian.PutUint32(header[4:], uint32(len(data)))

	out := []Entry{{Key: key, Data: header}}
	for off := 0; off < len(data); off += segmentSize {
		end := off + segmentSize
		if end > len(data) {
			end = len(data)
		}
		k := make([]byte, 8)
		copy(k, key)
		binary.BigEndian.PutUint32(k[4:], uint32(off))
		out = append(out, Entry{Key: k, Data: data[off:end]})
	}
	return out
}

// LongValueReference is how a record points at long value id.
func LongValueReference(id uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, id)
	return b
}

// Int32 renders a little-endian int32.
func Int32(v int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

// Key4 renders a 4 byte big-endian key.
func Key4(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}
