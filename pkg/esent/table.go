package esent

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
)

// Table reads the records of one table. Each table has its own page cache
// and, for files opened by path, its own file handle.
type Table struct {
	file   *File
	def    *TableDefinition
	handle *os.File

	columns []*Column
	tree    *PageTree
	layout  *recordLayout
	indexes []*CatalogDefinition
	pager   *pager
	log     *zap.Logger
}

func (f *File) openTable(def *TableDefinition) (*Table, error) {
	if def.TemplateName != "" && def.Template == nil {
		return nil, fmt.Errorf("template %q of table %q: %w", def.TemplateName, def.Name, ErrValueMissing)
	}
	t := &Table{
		file: f,
		def:  def,
		log:  f.log.With(zap.String("table", def.Name)),
	}

	var r io.ReaderAt = f.r
	if f.osFile != nil {
		h, err := cloneFile(f.osFile)
		if err != nil {
			return nil, err
		}
		t.handle = h
		r = h
	}
	p, err := newPager(r, f.size, f.format, f.cfg.PageCacheSize, t.log)
	if err != nil {
		t.Close()
		return nil, err
	}
	t.pager = p

	for _, d := range def.AllColumns() {
		t.columns = append(t.columns, newColumn(d, f.cfg.Codepage))
	}
	t.tree = NewPageTree(p, def.Table.Identifier, def.Table.FatherDataPageNumber)

	var lv *longValueStore
	if def.LongValue != nil {
		lv = newLongValueStore(NewPageTree(p, def.LongValue.Identifier, def.LongValue.FatherDataPageNumber))
	}
	t.layout = newRecordLayout(t.columns, f.format, lv, f.cfg.Codepage, t.log)

	// the first index is the table's own clustered index
	if len(def.Indexes) > 1 {
		t.indexes = def.Indexes[1:]
	}
	return t, nil
}

// Close releases the table's file handle.
func (t *Table) Close() error {
	if t.handle == nil {
		return nil
	}
	err := t.handle.Close()
	t.handle = nil
	return err
}

func (t *Table) Name() string { return t.def.Name }

func (t *Table) Definition() *TableDefinition { return t.def }

func (t *Table) NumberOfColumns() int { return len(t.columns) }

// Column returns column i, template columns first.
func (t *Table) Column(i int) (*Column, error) {
	if i < 0 || i >= len(t.columns) {
		return nil, fmt.Errorf("column %d of %d: %w", i, len(t.columns), ErrArgument)
	}
	return t.columns[i], nil
}

// NumberOfRecords walks the table tree on first use.
func (t *Table) NumberOfRecords() (int, error) {
	return t.tree.NumberOfLeafValues()
}

// Record decodes record i in key order.
func (t *Table) Record(i int) (*Record, error) {
	if t.file.Aborted() {
		return nil, ErrAborted
	}
	entry, err := t.tree.LeafValue(i)
	if err != nil {
		return nil, err
	}
	r, err := t.layout.parse(entry.Data)
	if err != nil {
		return nil, fmt.Errorf("table %s record %d: %w", t.def.Name, i, err)
	}
	return r, nil
}

func (t *Table) NumberOfIndexes() int { return len(t.indexes) }

// Index opens secondary index i.
func (t *Table) Index(i int) (*Index, error) {
	if i < 0 || i >= len(t.indexes) {
		return nil, fmt.Errorf("index %d of %d: %w", i, len(t.indexes), ErrArgument)
	}
	d := t.indexes[i]
	return &Index{
		table: t,
		def:   d,
		Name:  decodeName(d.NameData, t.file.cfg.Codepage),
		tree:  NewPageTree(t.pager, d.Identifier, d.FatherDataPageNumber),
	}, nil
}

// SpaceExtents lists the pages the table tree owns.
func (t *Table) SpaceExtents() ([]Extent, error) {
	return t.tree.SpaceExtents()
}
