// Package esent reads Extensible Storage Engine (ESE) database files, as used
// by Active Directory, Exchange and Windows Search. Files are only ever read.
package esent

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"go.uber.org/zap"
)

// File is an open ESE database. It never writes to the underlying file.
type File struct {
	cfg    *Config
	log    *zap.Logger
	r      io.ReaderAt
	size   int64
	osFile *os.File

	header  *FileHeader
	format  PageFormat
	pager   *pager
	catalog *Catalog

	aborted int32
}

// Open opens the database at path.
func Open(path string, cfg *Config) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	ef, err := newFile(f, st.Size(), cfg)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	ef.osFile = f
	return ef, nil
}

// NewFile reads a database from r, which holds size bytes. Tables opened
// from it share r.
func NewFile(r io.ReaderAt, size int64, cfg *Config) (*File, error) {
	return newFile(r, size, cfg)
}

func newFile(r io.ReaderAt, size int64, cfg *Config) (*File, error) {
	cfg = cfg.withDefaults()
	f := &File{cfg: cfg, log: cfg.Logger, r: r, size: size}

	h, err := readFileHeader(r, f.log)
	if err != nil {
		return nil, err
	}
	f.header = h
	f.format = h.Format()
	if size < 2*int64(f.format.PageSize) {
		return nil, fmt.Errorf("file of %d bytes holds no pages of 0x%x bytes: %w", size, f.format.PageSize, ErrCorruptData)
	}
	f.log.Debug("opened database",
		zap.String("version", fmt.Sprintf("0x%x", h.Version)),
		zap.String("revision", fmt.Sprintf("0x%x", h.FileFormatRevision)),
		zap.Uint32("page_size", h.PageSize),
		zap.Uint32("state", h.DBState))

	if f.pager, err = newPager(r, size, f.format, cfg.PageCacheSize, f.log); err != nil {
		return nil, err
	}
	if f.catalog, err = f.readCatalog(); err != nil {
		return nil, err
	}
	return f, nil
}

// readCatalog reads the catalog tree and falls back to its backup copy.
func (f *File) readCatalog() (*Catalog, error) {
	c, err := ReadCatalog(NewPageTree(f.pager, CatalogFDP, CatalogPageNumber), f.cfg.Codepage, f.log)
	if err == nil {
		return c, nil
	}
	f.log.Warn("catalog unreadable, trying backup catalog", zap.Error(err))
	backup, backupErr := ReadCatalog(NewPageTree(f.pager, CatalogBackupFDP, CatalogBackupPageNumber), f.cfg.Codepage, f.log)
	if backupErr != nil {
		return nil, err
	}
	return backup, nil
}

// Close releases the file handle Open acquired. Tables have to be closed
// separately.
func (f *File) Close() error {
	if f.osFile == nil {
		return nil
	}
	err := f.osFile.Close()
	f.osFile = nil
	return err
}

func (f *File) Header() FileHeader { return *f.header }

func (f *File) Format() PageFormat { return f.format }

func (f *File) Catalog() *Catalog { return f.catalog }

// SignalAbort asks long running reads to stop. Record reads started after
// the call fail with ErrAborted.
func (f *File) SignalAbort() { atomic.StoreInt32(&f.aborted, 1) }

func (f *File) Aborted() bool { return atomic.LoadInt32(&f.aborted) != 0 }

func (f *File) NumberOfTables() int { return f.catalog.NumberOfTables() }

// Table opens table i in catalog order.
func (f *File) Table(i int) (*Table, error) {
	def, err := f.catalog.TableDefinition(i)
	if err != nil {
		return nil, err
	}
	return f.openTable(def)
}

// TableByName opens the table with the given name.
func (f *File) TableByName(name string) (*Table, error) {
	def, err := f.catalog.TableDefinitionByName(name)
	if err != nil {
		return nil, err
	}
	return f.openTable(def)
}
