package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/C-Sto/goesedb/pkg/esent"
	"github.com/C-Sto/goesedb/pkg/export"
	"github.com/C-Sto/goesedb/pkg/logger"
	"github.com/mitchellh/cli"
)

// ExportCommand writes every table of a database to text files or SQLite.
type ExportCommand struct {
	Ui         cli.Ui
	ShutdownCh <-chan struct{}
}

func (c *ExportCommand) Help() string {
	helpText := `
Usage: goesedb export [options] <file>

  Exports the tables of an ESE database. Text exports write one tab
  separated file per table, headed by the column names.

Options:

	-config=""	YAML settings file
	-target=""	output directory (text) or database file (sqlite)
	-format=text	output format: text or sqlite
	-table=""	only export this table
	-jobs=1	tables exported in parallel
	-windows-search	decode Windows Search System_ columns
	-codepage=1252	codepage of catalog names and untagged text
	-cache=256	pages cached per file and table
	-debug	log page and record level detail
`
	return strings.TrimSpace(helpText)
}

func (c *ExportCommand) Synopsis() string {
	return "Exports the tables of an ESE database"
}

func (c *ExportCommand) Run(args []string) int {
	sf := newSettingsFlags("export", true)
	sf.fs.Usage = func() { c.Ui.Output(c.Help()) }
	s, args, err := sf.parse(args)
	if err != nil {
		return 1
	}
	if len(args) != 1 {
		c.Ui.Error(c.Help())
		return 1
	}
	path := args[0]
	target := s.Target
	if target == "" {
		target = defaultTarget(path, s.Format)
	}

	log, err := logger.New(s.Debug)
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}
	defer log.Sync()

	w, err := export.NewWriter(s.Format, target)
	if err != nil {
		c.Ui.Error(fmt.Sprintf("Error creating %s: %s", target, err))
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-c.ShutdownCh:
			log.Sugar().Warn("interrupted, stopping export")
			cancel()
		case <-ctx.Done():
		}
	}()

	ex := export.New(path, export.Options{
		Table:     s.Table,
		Jobs:      s.Jobs,
		Formatter: export.Formatter{WindowsSearch: s.WindowsSearch, Codepage: s.Codepage},
		Config:    readerConfig(s, log),
	})
	results, err := ex.Run(ctx, w)
	if cerr := w.Close(); cerr != nil && err == nil {
		err = cerr
	}

	status := 0
	for _, r := range results {
		if r.Name == "" {
			continue
		}
		if r.Err != nil {
			c.Ui.Warn(fmt.Sprintf("%s: %d rows, stopped: %s", r.Name, r.Rows, r.Err))
			status = 1
			continue
		}
		msg := fmt.Sprintf("%s: %d rows", r.Name, r.Rows)
		if r.SkippedRecords > 0 || r.FailedCells > 0 {
			msg += fmt.Sprintf(" (%d records skipped, %d cells empty)", r.SkippedRecords, r.FailedCells)
		}
		c.Ui.Info(msg)
	}
	if err != nil {
		if errors.Is(err, esent.ErrAborted) {
			c.Ui.Error("Export aborted")
		} else {
			c.Ui.Error(fmt.Sprintf("Error exporting %s: %s", path, err))
		}
		return 1
	}
	c.Ui.Output(fmt.Sprintf("Exported to %s", target))
	return status
}

func defaultTarget(path, format string) string {
	if format == export.FormatSQLite {
		return path + ".sqlite"
	}
	return path + ".export"
}
