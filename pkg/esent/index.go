package esent

import "fmt"

// Index is a secondary index. Its leaf values hold the primary key of the
// record they point to.
type Index struct {
	Name string

	table *Table
	def   *CatalogDefinition
	tree  *PageTree
}

func (ix *Index) Definition() *CatalogDefinition { return ix.def }

func (ix *Index) NumberOfRecords() (int, error) {
	return ix.tree.NumberOfLeafValues()
}

// Record returns the table record index entry i points to.
func (ix *Index) Record(i int) (*Record, error) {
	if ix.table.file.Aborted() {
		return nil, ErrAborted
	}
	entry, err := ix.tree.LeafValue(i)
	if err != nil {
		return nil, err
	}
	row, err := ix.table.tree.LeafValueByKey(entry.Data)
	if err != nil {
		return nil, fmt.Errorf("index %s entry %d: %w", ix.Name, i, err)
	}
	return ix.table.layout.parse(row.Data)
}
