package export

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

const defaultSQLiteBatch = 1000

// SQLiteWriter writes every table into one SQLite database. A table is
// created when it is opened, rows are inserted in transactions of BatchSize.
type SQLiteWriter struct {
	// BatchSize is the number of rows held per table before they are inserted.
	BatchSize int

	db *sql.DB
	mu sync.Mutex
}

func NewSQLiteWriter(path string) (*SQLiteWriter, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteWriter{BatchSize: defaultSQLiteBatch, db: db}, nil
}

// DB exposes the underlying database, mostly for reading back an export.
func (w *SQLiteWriter) DB() *sql.DB { return w.db }

func (w *SQLiteWriter) Table(name string, columns []string) (TableWriter, error) {
	cols := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = quoteIdent(c) + " TEXT"
		marks[i] = "?"
	}
	if len(cols) == 0 {
		// SQLite tables need at least one column.
		cols = []string{`"_empty" TEXT`}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	create := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(name), strings.Join(cols, ", "))
	if _, err := w.db.Exec(create); err != nil {
		return nil, fmt.Errorf("table %s: %w", name, err)
	}

	batch := w.BatchSize
	if batch < 1 {
		batch = defaultSQLiteBatch
	}
	return &sqliteTable{
		w:       w,
		name:    name,
		columns: len(columns),
		insert:  fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(name), strings.Join(marks, ", ")),
		batch:   batch,
	}, nil
}

func (w *SQLiteWriter) Close() error { return w.db.Close() }

type sqliteTable struct {
	w       *SQLiteWriter
	name    string
	columns int
	insert  string
	batch   int
	pending [][]string
}

func (t *sqliteTable) WriteRow(cells []string) error {
	if len(cells) != t.columns {
		return fmt.Errorf("table %s: row has %d cells, expected %d", t.name, len(cells), t.columns)
	}
	if t.columns == 0 {
		return nil
	}
	t.pending = append(t.pending, cells)
	if len(t.pending) >= t.batch {
		return t.flush()
	}
	return nil
}

func (t *sqliteTable) Close() error { return t.flush() }

// flush inserts the pending rows in one transaction.
func (t *sqliteTable) flush() error {
	if len(t.pending) == 0 {
		return nil
	}
	t.w.mu.Lock()
	defer t.w.mu.Unlock()

	tx, err := t.w.db.Begin()
	if err != nil {
		return err
	}
	if err := t.insertPending(tx); err != nil {
		tx.Rollback()
		return fmt.Errorf("table %s: %w", t.name, err)
	}
	t.pending = t.pending[:0]
	return tx.Commit()
}

func (t *sqliteTable) insertPending(tx *sql.Tx) error {
	stmt, err := tx.Prepare(t.insert)
	if err != nil {
		return err
	}
	defer stmt.Close()
	args := make([]interface{}, t.columns)
	for _, row := range t.pending {
		for i, c := range row {
			args[i] = c
		}
		if _, err := stmt.Exec(args...); err != nil {
			return err
		}
	}
	return nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
