// Package export writes the tables of an ESE database to text files or a
// SQLite database.
package export

import (
	"context"
	"errors"
	"fmt"

	"github.com/C-Sto/goesedb/pkg/esent"
	"github.com/C-Sto/goesedb/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options controls an export run.
type Options struct {
	// Table restricts the export to one table when set.
	Table string
	// Jobs is the number of tables exported concurrently, each from its own File.
	Jobs      int
	Formatter Formatter
	Config    *esent.Config
}

// TableResult describes how the export of one table went.
type TableResult struct {
	Name           string
	Rows           int
	SkippedRecords int
	FailedCells    int
	Err            error
}

// Exporter copies every table of one database into a Writer.
type Exporter struct {
	path string
	opts Options
	log  *zap.SugaredLogger
}

func New(path string, opts Options) *Exporter {
	cfg := *esent.DefaultConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	opts.Config = &cfg
	if opts.Jobs < 1 {
		opts.Jobs = 1
	}
	if opts.Formatter.Codepage == 0 {
		opts.Formatter.Codepage = cfg.Codepage
	}
	return &Exporter{path: path, opts: opts, log: cfg.Logger.Sugar()}
}

// tableNames lists the tables to export.
func (e *Exporter) tableNames() ([]string, error) {
	f, err := esent.Open(e.path, e.opts.Config)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	names := f.Catalog().TableNames()
	if e.opts.Table == "" {
		return names, nil
	}
	for _, n := range names {
		if n == e.opts.Table {
			return []string{n}, nil
		}
	}
	return nil, fmt.Errorf("table %q: %w", e.opts.Table, esent.ErrValueMissing)
}

// Run exports into w. A table that fails part way is reported in its
// TableResult and does not stop the other tables. Cancelling ctx aborts
// the run and returns esent.ErrAborted.
func (e *Exporter) Run(ctx context.Context, w Writer) ([]TableResult, error) {
	names, err := e.tableNames()
	if err != nil {
		return nil, err
	}
	results := make([]TableResult, len(names))
	jobs := e.opts.Jobs
	if jobs > len(names) {
		jobs = len(names)
	}

	g, gctx := errgroup.WithContext(ctx)
	work := make(chan int)
	g.Go(func() error {
		defer close(work)
		for i := range names {
			select {
			case work <- i:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})
	for j := 0; j < jobs; j++ {
		g.Go(func() error {
			f, err := esent.Open(e.path, e.opts.Config)
			if err != nil {
				return err
			}
			defer f.Close()
			stop := abortOnDone(gctx, f)
			defer stop()

			for i := range work {
				results[i] = e.exportTable(f, names[i], w)
				if errors.Is(results[i].Err, esent.ErrAborted) {
					return esent.ErrAborted
				}
			}
			return nil
		})
	}
	err = g.Wait()
	if ctx.Err() != nil {
		err = esent.ErrAborted
	}
	return results, err
}

// abortOnDone signals f to stop once ctx is cancelled. The returned
// function releases the watcher.
func abortOnDone(ctx context.Context, f *esent.File) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			f.SignalAbort()
		case <-done:
		}
	}()
	return func() { close(done) }
}

func (e *Exporter) exportTable(f *esent.File, name string, w Writer) (res TableResult) {
	res.Name = name
	log := e.log.With("table", name)

	t, err := f.TableByName(name)
	if err != nil {
		res.Err = err
		log.Warnw("cannot open table", "error", err)
		return res
	}
	defer t.Close()

	n, err := t.NumberOfRecords()
	if err != nil {
		res.Err = err
		log.Warnw("cannot read table tree", "error", err)
		return res
	}

	columns := make([]string, t.NumberOfColumns())
	for i := range columns {
		c, err := t.Column(i)
		if err != nil {
			res.Err = err
			return res
		}
		columns[i] = c.Name
	}

	tw, err := w.Table(name, columns)
	if err != nil {
		res.Err = err
		log.Warnw("cannot create output", "error", err)
		return res
	}
	defer func() {
		if cerr := tw.Close(); cerr != nil && res.Err == nil {
			res.Err = cerr
		}
	}()

	log.Debugw("exporting", "records", n, "columns", len(columns))
	for i := 0; i < n; i++ {
		rec, err := t.Record(i)
		if errors.Is(err, esent.ErrAborted) {
			res.Err = err
			return res
		}
		if err != nil {
			res.SkippedRecords++
			log.Warnw("skipping record", "record", i, "error", err)
			continue
		}
		cells := make([]string, rec.NumberOfValues())
		for j := range cells {
			s, err := e.cell(rec, j)
			if err != nil {
				res.FailedCells++
				log.Warnw("cell left empty", "record", i, "column", columns[j], "error", err)
				continue
			}
			cells[j] = s
		}
		if err := tw.WriteRow(cells); err != nil {
			res.Err = err
			return res
		}
		res.Rows++
	}
	return res
}

func (e *Exporter) cell(rec *esent.Record, i int) (string, error) {
	v, err := rec.Value(i)
	if err != nil {
		return "", err
	}
	return e.opts.Formatter.Format(v)
}
