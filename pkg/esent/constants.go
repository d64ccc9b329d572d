package esent

import "fmt"

// fileSignature is found at offset 4 of both file headers.
var fileSignature = [4]byte{0xef, 0xcd, 0xab, 0x89}

const (
	formatVersion      = 0x620
	formatVersionOld   = 0x623
	revisionWin2003SP0 = 0x0b
	revisionWin7       = 0x11
)

//# Fixed page numbers
const (
	DatabasePageNumber      = 1
	CatalogPageNumber       = 4
	CatalogBackupPageNumber = 24
)

//# Fixed father data page object identifiers
const (
	DatabaseFDP      = 1
	CatalogFDP       = 2
	CatalogBackupFDP = 3
)

// PageFlags are the flags stored in every page header.
type PageFlags uint32

const (
	PageRoot      PageFlags = 0x0001
	PageLeaf      PageFlags = 0x0002
	PageParent    PageFlags = 0x0004
	PageEmpty     PageFlags = 0x0008
	PageSpaceTree PageFlags = 0x0020
	PageIndex     PageFlags = 0x0040
	PageLongValue PageFlags = 0x0080
	// PageNewFormat marks pages written with the new checksum format.
	PageNewFormat PageFlags = 0x2000
)

func (f PageFlags) Has(flag PageFlags) bool { return f&flag != 0 }

func (f PageFlags) String() string {
	s := ""
	add := func(flag PageFlags, name string) {
		if f.Has(flag) {
			if s != "" {
				s += "|"
			}
			s += name
		}
	}
	add(PageRoot, "root")
	add(PageLeaf, "leaf")
	add(PageParent, "parent")
	add(PageEmpty, "empty")
	add(PageSpaceTree, "space-tree")
	add(PageIndex, "index")
	add(PageLongValue, "long-value")
	add(PageNewFormat, "new-format")
	if s == "" {
		return fmt.Sprintf("0x%x", uint32(f))
	}
	return s
}

// TagFlags are the 3 flag bits of a page tag.
type TagFlags uint16

const (
	TagVersion TagFlags = 0x1
	TagDefunct TagFlags = 0x2
	TagCommon  TagFlags = 0x4
)

func (f TagFlags) Has(flag TagFlags) bool { return f&flag != 0 }

// CatalogType is the kind of object a catalog record describes.
type CatalogType uint16

const (
	CatalogTypeTable     CatalogType = 1
	CatalogTypeColumn    CatalogType = 2
	CatalogTypeIndex     CatalogType = 3
	CatalogTypeLongValue CatalogType = 4
	CatalogTypeCallback  CatalogType = 5
)

func parseCatalogType(v uint16) (CatalogType, error) {
	switch t := CatalogType(v); t {
	case CatalogTypeTable, CatalogTypeColumn, CatalogTypeIndex, CatalogTypeLongValue, CatalogTypeCallback:
		return t, nil
	}
	return 0, fmt.Errorf("catalog type %d: %w", v, ErrUnsupportedValue)
}

func (t CatalogType) String() string {
	switch t {
	case CatalogTypeTable:
		return "Table"
	case CatalogTypeColumn:
		return "Column"
	case CatalogTypeIndex:
		return "Index"
	case CatalogTypeLongValue:
		return "LongValue"
	case CatalogTypeCallback:
		return "Callback"
	}
	return fmt.Sprintf("CatalogType(%d)", uint16(t))
}

// ColumnType is the JET_coltyp of a column.
type ColumnType uint32

//# Column types
const (
	ColumnTypeNil           ColumnType = 0
	ColumnTypeBit           ColumnType = 1
	ColumnTypeUnsignedByte  ColumnType = 2
	ColumnTypeShort         ColumnType = 3
	ColumnTypeLong          ColumnType = 4
	ColumnTypeCurrency      ColumnType = 5
	ColumnTypeIEEESingle    ColumnType = 6
	ColumnTypeIEEEDouble    ColumnType = 7
	ColumnTypeDateTime      ColumnType = 8
	ColumnTypeBinary        ColumnType = 9
	ColumnTypeText          ColumnType = 10
	ColumnTypeLongBinary    ColumnType = 11
	ColumnTypeLongText      ColumnType = 12
	ColumnTypeSLV           ColumnType = 13
	ColumnTypeUnsignedLong  ColumnType = 14
	ColumnTypeLongLong      ColumnType = 15
	ColumnTypeGUID          ColumnType = 16
	ColumnTypeUnsignedShort ColumnType = 17
)

var columnTypeNames = map[ColumnType]string{
	ColumnTypeNil:           "Nil",
	ColumnTypeBit:           "Boolean",
	ColumnTypeUnsignedByte:  "Integer8Unsigned",
	ColumnTypeShort:         "Integer16Signed",
	ColumnTypeLong:          "Integer32Signed",
	ColumnTypeCurrency:      "Currency",
	ColumnTypeIEEESingle:    "Float32",
	ColumnTypeIEEEDouble:    "Float64",
	ColumnTypeDateTime:      "DateTime",
	ColumnTypeBinary:        "Binary",
	ColumnTypeText:          "Text",
	ColumnTypeLongBinary:    "LargeBinary",
	ColumnTypeLongText:      "LargeText",
	ColumnTypeSLV:           "SuperLarge",
	ColumnTypeUnsignedLong:  "Integer32Unsigned",
	ColumnTypeLongLong:      "Integer64Signed",
	ColumnTypeGUID:          "GUID",
	ColumnTypeUnsignedShort: "Integer16Unsigned",
}

func parseColumnType(v uint32) (ColumnType, error) {
	t := ColumnType(v)
	if _, ok := columnTypeNames[t]; !ok {
		return 0, fmt.Errorf("column type %d: %w", v, ErrUnsupportedValue)
	}
	return t, nil
}

func (t ColumnType) String() string {
	if n, ok := columnTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("ColumnType(%d)", uint32(t))
}

// FixedSize is the on-disk size of the scalar types, 0 for variable size types.
func (t ColumnType) FixedSize() int {
	switch t {
	case ColumnTypeBit, ColumnTypeUnsignedByte:
		return 1
	case ColumnTypeShort, ColumnTypeUnsignedShort:
		return 2
	case ColumnTypeLong, ColumnTypeUnsignedLong, ColumnTypeIEEESingle:
		return 4
	case ColumnTypeCurrency, ColumnTypeIEEEDouble, ColumnTypeDateTime, ColumnTypeLongLong:
		return 8
	case ColumnTypeGUID:
		return 16
	}
	return 0
}

// IsText reports whether values of the type are codepage encoded strings.
func (t ColumnType) IsText() bool {
	return t == ColumnTypeText || t == ColumnTypeLongText
}

// ValueFlags are the tagged data type flags stored in front of a tagged value.
type ValueFlags uint8

//# Tagged data type flags
const (
	ValueVariableSize ValueFlags = 0x01
	ValueCompressed   ValueFlags = 0x02
	ValueLongValue    ValueFlags = 0x04
	ValueMultiValue   ValueFlags = 0x08
	ValueUnknown10    ValueFlags = 0x10
)

func (f ValueFlags) Has(flag ValueFlags) bool { return f&flag != 0 }

// ValuePath is the decode path a record value took.
type ValuePath int

const (
	PathInline ValuePath = iota
	PathCompressed
	PathLongValue
	PathMultiValue
	PathUnsupported
)

func (p ValuePath) String() string {
	switch p {
	case PathInline:
		return "inline"
	case PathCompressed:
		return "compressed"
	case PathLongValue:
		return "long-value"
	case PathMultiValue:
		return "multi-value"
	case PathUnsupported:
		return "unsupported"
	}
	return fmt.Sprintf("ValuePath(%d)", int(p))
}

// valuePath implements the tagged flag dispatch table.
func valuePath(f ValueFlags) ValuePath {
	switch {
	case f.Has(ValueUnknown10):
		return PathUnsupported
	case f.Has(ValueMultiValue):
		return PathMultiValue
	case f.Has(ValueLongValue):
		return PathLongValue
	case f.Has(ValueCompressed):
		return PathCompressed
	}
	return PathInline
}

//# Code pages
const (
	CodepageUnicode = 1200
	CodepageASCII   = 20127
	CodepageWestern = 1252
	CodepageUTF8    = 65001
)
