package cmd

import (
	"fmt"
	"strings"

	"github.com/C-Sto/goesedb/pkg/esent"
	"github.com/mitchellh/cli"
)

// CheckCommand reports whether a file carries the ESE signature.
type CheckCommand struct {
	Ui cli.Ui
}

func (c *CheckCommand) Help() string {
	helpText := `
Usage: goesedb check <file>

  Exits 0 when the file starts with an ESE database header, 1 otherwise.
`
	return strings.TrimSpace(helpText)
}

func (c *CheckCommand) Synopsis() string {
	return "Checks whether a file is an ESE database"
}

func (c *CheckCommand) Run(args []string) int {
	if len(args) != 1 {
		c.Ui.Error(c.Help())
		return 1
	}
	ok, err := esent.CheckFileSignature(args[0])
	if err != nil {
		c.Ui.Error(fmt.Sprintf("Error reading %s: %s", args[0], err))
		return 1
	}
	if !ok {
		c.Ui.Output(fmt.Sprintf("%s: not an ESE database", args[0]))
		return 1
	}
	c.Ui.Output(fmt.Sprintf("%s: ESE database", args[0]))
	return 0
}
