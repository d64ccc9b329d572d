package export

import (
	"fmt"
	"strings"
)

// Output formats understood by NewWriter.
const (
	FormatText   = "text"
	FormatSQLite = "sqlite"
)

// Writer receives exported tables. Table may be called from several
// goroutines at once; each TableWriter is only used by one.
type Writer interface {
	Table(name string, columns []string) (TableWriter, error)
	Close() error
}

// TableWriter receives the rows of one table.
type TableWriter interface {
	WriteRow(cells []string) error
	Close() error
}

// NewWriter opens the sink for format at target: a directory for text
// exports, a database file for sqlite exports.
func NewWriter(format, target string) (Writer, error) {
	switch format {
	case FormatText, "":
		return NewTextWriter(target)
	case FormatSQLite:
		return NewSQLiteWriter(target)
	}
	return nil, fmt.Errorf("unknown export format %q", format)
}

// SanitizeName turns a table name into something usable as a file name.
func SanitizeName(name string) string {
	if name == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		}
		return '_'
	}, name)
}
