package esent

import (
	"encoding/binary"
	"fmt"

	"github.com/C-Sto/goesedb/pkg/bytecodec"
)

// dataDefinitionHeader starts every record, catalog records included.
type dataDefinitionHeader struct {
	LastFixedSizeDataType    uint8
	LastVariableSizeDataType uint8
	VariableSizeDataOffset   uint16
}

const dataDefinitionHeaderSize = 4

func readDataDefinitionHeader(data []byte) (dataDefinitionHeader, error) {
	rd := bytecodec.NewReader(data, 0, binary.LittleEndian)
	h := dataDefinitionHeader{
		LastFixedSizeDataType:    rd.Uint8(),
		LastVariableSizeDataType: rd.Uint8(),
		VariableSizeDataOffset:   rd.Uint16(),
	}
	if err := rd.Err(); err != nil {
		return h, fmt.Errorf("data definition header: %w", err)
	}
	return h, nil
}

//# Catalog fixed size columns, by column identifier
var catalogFixedSizes = [...]int{
	0,
	4, // 1 father data page object identifier
	2, // 2 type
	4, // 3 identifier
	4, // 4 column type or father data page number
	4, // 5 space usage
	4, // 6 flags
	4, // 7 codepage, locale or number of pages
	1, // 8 root flag
	2, // 9 record offset
	4, // 10 LC map flags
	2, // 11 key most
}

// catalogFixedOffset returns the record offset of fixed column id.
func catalogFixedOffset(id int) int {
	off := dataDefinitionHeaderSize
	for i := 1; i < id; i++ {
		off += catalogFixedSizes[i]
	}
	return off
}

//# Catalog variable size columns
const (
	catalogColumnName         = 128
	catalogColumnStats        = 129
	catalogColumnTemplateName = 130
	catalogColumnDefaultValue = 131
)

const (
	minCatalogFixedColumns = 5
	maxCatalogFixedColumns = 11

	variableSizeNull = 0x8000
	variableSizeMask = 0x7fff
)

// CatalogDefinition is one record of the catalog tree.
type CatalogDefinition struct {
	FatherDataPageObjectID uint32
	Type                   CatalogType
	Identifier             uint32
	// ColumnType is set for columns, FatherDataPageNumber for everything else.
	ColumnType           ColumnType
	FatherDataPageNumber uint32
	Size                 uint32
	Flags                uint32
	// Codepage is set for columns, Locale for indexes.
	Codepage     uint32
	Locale       uint32
	RootFlag     uint8
	RecordOffset uint16
	LCMapFlags   uint32
	KeyMost      uint16

	NameData         []byte
	TemplateNameData []byte
	DefaultValue     []byte
}

// ReadCatalogDefinition decodes the leaf data of a catalog tree entry.
func ReadCatalogDefinition(data []byte) (*CatalogDefinition, error) {
	h, err := readDataDefinitionHeader(data)
	if err != nil {
		return nil, err
	}
	lastFixed := int(h.LastFixedSizeDataType)
	if lastFixed < minCatalogFixedColumns || lastFixed > maxCatalogFixedColumns {
		return nil, fmt.Errorf("last fixed size data type %d: %w", lastFixed, ErrUnsupportedSchemaVersion)
	}
	fixedEnd := catalogFixedOffset(lastFixed + 1)
	if int(h.VariableSizeDataOffset) < fixedEnd {
		return nil, fmt.Errorf("variable size data offset %d inside fixed size data ending at %d: %w",
			h.VariableSizeDataOffset, fixedEnd, ErrCorruptData)
	}
	if len(data) < fixedEnd {
		return nil, fmt.Errorf("catalog definition of %d bytes, fixed data ends at %d: %w", len(data), fixedEnd, ErrCorruptData)
	}

	d := &CatalogDefinition{}
	le := binary.LittleEndian
	at := catalogFixedOffset

	//older schema versions stop earlier, read from the last column down
	switch lastFixed {
	case 11:
		d.KeyMost = le.Uint16(data[at(11):])
		fallthrough
	case 10:
		d.LCMapFlags = le.Uint32(data[at(10):])
		fallthrough
	case 9:
		d.RecordOffset = le.Uint16(data[at(9):])
		fallthrough
	case 8:
		d.RootFlag = data[at(8)]
		fallthrough
	case 7:
		d.Codepage = le.Uint32(data[at(7):])
		fallthrough
	case 6:
		d.Flags = le.Uint32(data[at(6):])
		fallthrough
	case 5:
		d.Size = le.Uint32(data[at(5):])
		d.FatherDataPageObjectID = le.Uint32(data[at(1):])
		d.Identifier = le.Uint32(data[at(3):])
	}

	typ, err := parseCatalogType(le.Uint16(data[at(2):]))
	if err != nil {
		return nil, err
	}
	d.Type = typ
	columnOrPage := le.Uint32(data[at(4):])
	if typ == CatalogTypeColumn {
		if d.ColumnType, err = parseColumnType(columnOrPage); err != nil {
			return nil, err
		}
	} else {
		d.FatherDataPageNumber = columnOrPage
	}
	if typ == CatalogTypeIndex {
		d.Locale, d.Codepage = d.Codepage, 0
	}

	if err := d.readVariableData(data, h); err != nil {
		return nil, err
	}
	return d, nil
}

// readVariableData walks the size directory at the variable data offset. Each
// entry holds the end offset of its value relative to the end of the
// directory, with the high bit marking a NULL value.
func (d *CatalogDefinition) readVariableData(data []byte, h dataDefinitionHeader) error {
	if h.LastVariableSizeDataType <= 127 {
		return nil
	}
	count := int(h.LastVariableSizeDataType) - 127
	dirStart := int(h.VariableSizeDataOffset)
	dataStart := dirStart + 2*count
	if dataStart > len(data) {
		return fmt.Errorf("variable size directory of %d entries at %d: %w", count, dirStart, ErrCorruptData)
	}

	previous := 0
	for i := 0; i < count; i++ {
		raw := binary.LittleEndian.Uint16(data[dirStart+2*i:])
		if raw&variableSizeNull != 0 {
			continue
		}
		end := int(raw & variableSizeMask)
		if end < previous {
			return fmt.Errorf("variable size column %d ends at %d before %d: %w", 128+i, end, previous, ErrCorruptData)
		}
		value, err := bytecodec.Slice(data, dataStart+previous, end-previous)
		if err != nil {
			return fmt.Errorf("variable size column %d: %w", 128+i, err)
		}
		previous = end

		switch 128 + i {
		case catalogColumnName:
			d.NameData = value
		case catalogColumnTemplateName:
			d.TemplateNameData = value
		case catalogColumnDefaultValue:
			d.DefaultValue = value
		}
	}
	return nil
}
