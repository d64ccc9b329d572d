package esent

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Velocidex/ordereddict"
	"go.uber.org/zap"
)

// TableDefinition gathers the catalog definitions that belong to one table.
type TableDefinition struct {
	Table     *CatalogDefinition
	Name      string
	Columns   []*CatalogDefinition
	Indexes   []*CatalogDefinition
	LongValue *CatalogDefinition
	Callbacks []*CatalogDefinition

	// TemplateName names the table whose columns this table inherits.
	TemplateName string
	Template     *TableDefinition
}

// AllColumns returns the template columns followed by the table's own columns.
func (t *TableDefinition) AllColumns() []*CatalogDefinition {
	var chain []*TableDefinition
	for d := t; d != nil && len(chain) < maxTemplateDepth; d = d.Template {
		chain = append(chain, d)
	}
	var all []*CatalogDefinition
	for i := len(chain) - 1; i >= 0; i-- {
		all = append(all, chain[i].Columns...)
	}
	return all
}

const maxTemplateDepth = 8

// Catalog is the parsed catalog tree.
type Catalog struct {
	Tables []*TableDefinition

	byName   *ordereddict.Dict
	codepage uint32
}

// ReadCatalog reads every definition of a catalog tree and groups them by
// table. Definitions of an unknown type are logged and skipped.
func ReadCatalog(tree *PageTree, codepage uint32, log *zap.Logger) (*Catalog, error) {
	n, err := tree.NumberOfLeafValues()
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	var definitions []*CatalogDefinition
	for i := 0; i < n; i++ {
		entry, err := tree.LeafValue(i)
		if err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i, err)
		}
		d, err := ReadCatalogDefinition(entry.Data)
		if errors.Is(err, ErrUnsupportedValue) {
			log.Warn("skipping catalog entry", zap.Int("entry", i), zap.Error(err))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i, err)
		}
		definitions = append(definitions, d)
	}
	return newCatalog(definitions, codepage, log)
}

func newCatalog(definitions []*CatalogDefinition, codepage uint32, log *zap.Logger) (*Catalog, error) {
	c := &Catalog{byName: ordereddict.NewDict(), codepage: codepage}
	tables := map[uint32]*TableDefinition{}

	for _, d := range definitions {
		if d.Type != CatalogTypeTable {
			continue
		}
		if _, ok := tables[d.FatherDataPageObjectID]; ok {
			return nil, fmt.Errorf("table object %d defined twice: %w", d.FatherDataPageObjectID, ErrValueAlreadySet)
		}
		t := &TableDefinition{
			Table:        d,
			Name:         decodeName(d.NameData, codepage),
			TemplateName: decodeName(d.TemplateNameData, codepage),
		}
		tables[d.FatherDataPageObjectID] = t
		c.Tables = append(c.Tables, t)
	}

	for _, d := range definitions {
		if d.Type == CatalogTypeTable {
			continue
		}
		t, ok := tables[d.FatherDataPageObjectID]
		if !ok {
			log.Warn("catalog entry without table",
				zap.Stringer("type", d.Type),
				zap.Uint32("table", d.FatherDataPageObjectID),
				zap.String("name", decodeName(d.NameData, codepage)))
			continue
		}
		switch d.Type {
		case CatalogTypeColumn:
			t.Columns = append(t.Columns, d)
		case CatalogTypeIndex:
			t.Indexes = append(t.Indexes, d)
		case CatalogTypeLongValue:
			if t.LongValue != nil {
				log.Warn("ignoring second long value definition",
					zap.String("table", t.Name),
					zap.Error(ErrValueAlreadySet))
				continue
			}
			t.LongValue = d
		case CatalogTypeCallback:
			t.Callbacks = append(t.Callbacks, d)
		}
	}

	for _, t := range c.Tables {
		sort.SliceStable(t.Columns, func(i, j int) bool {
			return t.Columns[i].Identifier < t.Columns[j].Identifier
		})
		c.byName.Set(t.Name, t)
	}

	for _, t := range c.Tables {
		if t.TemplateName == "" {
			continue
		}
		tmpl, err := c.TableDefinitionByName(t.TemplateName)
		if err != nil {
			log.Warn("template table not found",
				zap.String("table", t.Name),
				zap.String("template", t.TemplateName))
			continue
		}
		if tmpl == t {
			return nil, fmt.Errorf("table %q is its own template: %w", t.Name, ErrCorruptData)
		}
		t.Template = tmpl
	}
	return c, nil
}

// NumberOfTables returns the number of tables in catalog order.
func (c *Catalog) NumberOfTables() int { return len(c.Tables) }

// TableDefinition returns table i in catalog order.
func (c *Catalog) TableDefinition(i int) (*TableDefinition, error) {
	if i < 0 || i >= len(c.Tables) {
		return nil, fmt.Errorf("table %d of %d: %w", i, len(c.Tables), ErrArgument)
	}
	return c.Tables[i], nil
}

// TableDefinitionByName finds a table by its decoded name.
func (c *Catalog) TableDefinitionByName(name string) (*TableDefinition, error) {
	v, ok := c.byName.Get(name)
	if !ok {
		return nil, fmt.Errorf("table %q: %w", name, ErrValueMissing)
	}
	return v.(*TableDefinition), nil
}

// TableNames lists the table names in catalog order.
func (c *Catalog) TableNames() []string {
	return c.byName.Keys()
}
