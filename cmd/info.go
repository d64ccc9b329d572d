package cmd

import (
	"fmt"
	"strings"

	"github.com/C-Sto/goesedb/pkg/esent"
	"github.com/mitchellh/cli"
)

var dbStates = map[uint32]string{
	esent.DBStateJustCreated:    "just created",
	esent.DBStateDirtyShutdown:  "dirty shutdown",
	esent.DBStateCleanShutdown:  "clean shutdown",
	esent.DBStateBeingConverted: "being converted",
	esent.DBStateForceDetach:    "force detach",
}

// InfoCommand prints the header and the schema of a database.
type InfoCommand struct {
	Ui cli.Ui
}

func (c *InfoCommand) Help() string {
	helpText := `
Usage: goesedb info [options] <file>

  Prints the file header, then every table with its columns, indexes,
  record count and page extents.

Options:

	-config=""	YAML settings file
	-codepage=1252	codepage of catalog names and untagged text
	-cache=256	pages cached per file and table
	-debug	log page and record level detail
`
	return strings.TrimSpace(helpText)
}

func (c *InfoCommand) Synopsis() string {
	return "Shows the header and schema of an ESE database"
}

func (c *InfoCommand) Run(args []string) int {
	sf := newSettingsFlags("info", false)
	sf.fs.Usage = func() { c.Ui.Output(c.Help()) }
	s, args, err := sf.parse(args)
	if err != nil {
		return 1
	}
	if len(args) != 1 {
		c.Ui.Error(c.Help())
		return 1
	}

	f, log, err := open(args[0], s)
	if err != nil {
		c.Ui.Error(fmt.Sprintf("Error opening %s: %s", args[0], err))
		return 1
	}
	defer log.Sync()
	defer f.Close()

	h := f.Header()
	state, ok := dbStates[h.DBState]
	if !ok {
		state = fmt.Sprintf("unknown (%d)", h.DBState)
	}
	c.Ui.Output(fmt.Sprintf("File:      %s", args[0]))
	c.Ui.Output(fmt.Sprintf("Format:    0x%x revision 0x%x", h.Version, h.FileFormatRevision))
	c.Ui.Output(fmt.Sprintf("Page size: %d", h.PageSize))
	c.Ui.Output(fmt.Sprintf("State:     %s", state))
	c.Ui.Output(fmt.Sprintf("Tables:    %d", f.NumberOfTables()))

	failed := false
	for i := 0; i < f.NumberOfTables(); i++ {
		t, err := f.Table(i)
		if err != nil {
			c.Ui.Warn(fmt.Sprintf("Table %d: %s", i, err))
			failed = true
			continue
		}
		c.table(t)
		t.Close()
	}
	if failed {
		return 1
	}
	return 0
}

func (c *InfoCommand) table(t *esent.Table) {
	def := t.Definition()
	c.Ui.Output("")
	c.Ui.Output(fmt.Sprintf("Table: %s (object %d, root page %d)", t.Name(), def.Table.Identifier, def.Table.FatherDataPageNumber))
	if def.TemplateName != "" {
		c.Ui.Output(fmt.Sprintf("  Template: %s", def.TemplateName))
	}

	c.Ui.Output("  Columns:")
	for i := 0; i < t.NumberOfColumns(); i++ {
		col, err := t.Column(i)
		if err != nil {
			continue
		}
		line := fmt.Sprintf("    %-5d %-32s %s", col.Identifier, col.Name, col.Type)
		if col.Type.IsText() {
			line += fmt.Sprintf(" (codepage %d)", col.Codepage)
		}
		c.Ui.Output(line)
	}

	if t.NumberOfIndexes() > 0 {
		c.Ui.Output("  Indexes:")
		for i := 0; i < t.NumberOfIndexes(); i++ {
			ix, err := t.Index(i)
			if err != nil {
				continue
			}
			c.Ui.Output(fmt.Sprintf("    %s (root page %d)", ix.Name, ix.Definition().FatherDataPageNumber))
		}
	}

	if n, err := t.NumberOfRecords(); err != nil {
		c.Ui.Warn(fmt.Sprintf("  Records: %s", err))
	} else {
		c.Ui.Output(fmt.Sprintf("  Records: %d", n))
	}

	extents, err := t.SpaceExtents()
	if err != nil {
		c.Ui.Warn(fmt.Sprintf("  Space: %s", err))
		return
	}
	for _, e := range extents {
		c.Ui.Output(fmt.Sprintf("  Space: pages %d-%d (%d)", e.FirstPageNumber, e.LastPageNumber, e.NumberOfPages))
	}
}
