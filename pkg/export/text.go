package export

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var cellEscaper = strings.NewReplacer("\t", `\t`, "\n", `\n`, "\r", `\r`)

// TextWriter writes one tab separated file per table into a directory.
type TextWriter struct {
	dir string

	mu    sync.Mutex
	names map[string]int
}

func NewTextWriter(dir string) (*TextWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &TextWriter{dir: dir, names: map[string]int{}}, nil
}

// fileName hands out a unique file name per table, since distinct table
// names can sanitize to the same string.
func (w *TextWriter) fileName(table string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	base := SanitizeName(table)
	n := w.names[base]
	w.names[base] = n + 1
	if n == 0 {
		return base + ".txt"
	}
	return fmt.Sprintf("%s.%d.txt", base, n)
}

func (w *TextWriter) Table(name string, columns []string) (TableWriter, error) {
	p := filepath.Join(w.dir, w.fileName(name))
	f, err := os.OpenFile(p, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	t := &textTable{f: f, w: bufio.NewWriter(f)}
	if err := t.WriteRow(columns); err != nil {
		f.Close()
		return nil, err
	}
	return t, nil
}

func (w *TextWriter) Close() error { return nil }

type textTable struct {
	f *os.File
	w *bufio.Writer
}

func (t *textTable) WriteRow(cells []string) error {
	for i, c := range cells {
		if i > 0 {
			t.w.WriteByte('\t')
		}
		cellEscaper.WriteString(t.w, c)
	}
	return t.w.WriteByte('\n')
}

func (t *textTable) Close() error {
	if err := t.w.Flush(); err != nil {
		t.f.Close()
		return err
	}
	return t.f.Close()
}
