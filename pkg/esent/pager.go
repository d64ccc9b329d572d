package esent

import (
	"fmt"
	"io"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

// PageSource hands out decoded pages by number.
type PageSource interface {
	Page(number uint32) (*Page, error)
}

// pager reads pages from the database file through a bounded cache. Pages are
// addressed by number, a page is never shared between pagers.
type pager struct {
	r      io.ReaderAt
	size   int64
	format PageFormat
	cache  *lru.Cache
	log    *zap.Logger
}

func newPager(r io.ReaderAt, size int64, format PageFormat, cacheSize int, log *zap.Logger) (*pager, error) {
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("page cache: %w", err)
	}
	return &pager{r: r, size: size, format: format, cache: cache, log: log}, nil
}

// lastPage is the highest page number that fits in the file. The two
// header pages come before page 1.
func (p *pager) lastPage() uint32 {
	n := p.size/int64(p.format.PageSize) - 2
	if n < 0 {
		return 0
	}
	return uint32(n)
}

func (p *pager) offset(number uint32) int64 {
	return (int64(number) + 1) * int64(p.format.PageSize)
}

func (p *pager) Page(number uint32) (*Page, error) {
	if v, ok := p.cache.Get(number); ok {
		return v.(*Page), nil
	}
	if number == 0 || number > p.lastPage() {
		return nil, fmt.Errorf("page %d outside file of %d pages: %w", number, p.lastPage(), ErrCorruptTree)
	}

	data := make([]byte, p.format.PageSize)
	n, err := p.r.ReadAt(data, p.offset(number))
	if n < len(data) {
		if err == nil || err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("reading page %d: %w", number, err)
	}
	page, err := ParsePage(data, number, p.format)
	if err != nil {
		return nil, err
	}
	p.log.Debug("read page",
		zap.Uint32("page", number),
		zap.Stringer("flags", page.Flags()),
		zap.Int("tags", len(page.Tags)))
	p.cache.Add(number, page)
	return page, nil
}
