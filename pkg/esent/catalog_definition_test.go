package esent

import (
	"encoding/binary"
	"testing"

	"github.com/C-Sto/goesedb/pkg/esent/esetest"
	"github.com/stretchr/testify/require"
)

func TestReadCatalogDefinitionColumn(t *testing.T) {
	r := require.New(t)
	data := esetest.CatalogEntry{
		TableObjectID:    10,
		Type:             esetest.CatalogColumn,
		ID:               256,
		ColumnTypeOrPage: uint32(ColumnTypeLongText),
		SpaceUsage:       0,
		Flags:            0x1,
		Codepage:         CodepageUnicode,
		Name:             "Body",
		Default:          []byte{1, 2},
	}.Encode()

	d, err := ReadCatalogDefinition(data)
	r.NoError(err)
	r.Equal(uint32(10), d.FatherDataPageObjectID)
	r.Equal(CatalogTypeColumn, d.Type)
	r.Equal(uint32(256), d.Identifier)
	r.Equal(ColumnTypeLongText, d.ColumnType)
	r.Zero(d.FatherDataPageNumber)
	r.Equal(uint32(1), d.Flags)
	r.Equal(uint32(CodepageUnicode), d.Codepage)
	r.Equal([]byte("Body"), d.NameData)
	r.Nil(d.TemplateNameData)
	r.Equal([]byte{1, 2}, d.DefaultValue)
}

func TestReadCatalogDefinitionUnknownColumnType(t *testing.T) {
	data := esetest.CatalogEntry{
		TableObjectID:    10,
		Type:             esetest.CatalogColumn,
		ID:               257,
		ColumnTypeOrPage: 18,
		Name:             "Future",
	}.Encode()

	_, err := ReadCatalogDefinition(data)
	require.ErrorIs(t, err, ErrUnsupportedValue)
}

func TestReadCatalogDefinitionTable(t *testing.T) {
	r := require.New(t)
	data := esetest.CatalogEntry{
		TableObjectID:    12,
		Type:             esetest.CatalogTable,
		ID:               12,
		ColumnTypeOrPage: 30,
		Name:             "Derived",
		Template:         "Base",
	}.Encode()

	d, err := ReadCatalogDefinition(data)
	r.NoError(err)
	r.Equal(CatalogTypeTable, d.Type)
	r.Equal(uint32(30), d.FatherDataPageNumber)
	r.Equal([]byte("Derived"), d.NameData)
	r.Equal([]byte("Base"), d.TemplateNameData)
}

func TestReadCatalogDefinitionSchemaVersions(t *testing.T) {
	for lastFixed := uint8(3); lastFixed <= 12; lastFixed++ {
		entry := esetest.CatalogEntry{
			TableObjectID:    10,
			Type:             esetest.CatalogIndex,
			ID:               11,
			ColumnTypeOrPage: 31,
			Codepage:         1033,
			Name:             "ix",
			LastFixed:        lastFixed,
		}
		if lastFixed > 11 {
			entry.LastFixed = 11
		}
		data := entry.Encode()
		data[0] = lastFixed
		d, err := ReadCatalogDefinition(data)
		if lastFixed < 5 || lastFixed > 11 {
			require.ErrorIs(t, err, ErrUnsupportedSchemaVersion, "last fixed %d", lastFixed)
			continue
		}
		require.NoError(t, err, "last fixed %d", lastFixed)
		require.Equal(t, uint32(31), d.FatherDataPageNumber)
		require.Equal(t, []byte("ix"), d.NameData)
		if lastFixed >= 7 {
			require.Equal(t, uint32(1033), d.Locale)
		} else {
			require.Zero(t, d.Locale)
		}
	}
}

func TestReadCatalogDefinitionCorrupt(t *testing.T) {
	r := require.New(t)
	data := esetest.CatalogEntry{TableObjectID: 1, Type: esetest.CatalogTable, ID: 1, Name: "t"}.Encode()

	bad := append([]byte(nil), data...)
	binary.LittleEndian.PutUint16(bad[2:], 10)
	_, err := ReadCatalogDefinition(bad)
	r.ErrorIs(err, ErrCorruptData)

	bad = append([]byte(nil), data...)
	binary.LittleEndian.PutUint16(bad[8:], 9)
	_, err = ReadCatalogDefinition(bad)
	r.ErrorIs(err, ErrUnsupportedValue)

	_, err = ReadCatalogDefinition(data[:20])
	r.Error(err)

	_, err = ReadCatalogDefinition(data[:2])
	r.ErrorIs(err, ErrOutOfBounds)
}
