package esent

import (
	"bytes"
	"fmt"

	"github.com/RoaringBitmap/roaring"
)

// maxTreeDepth bounds the number of branch levels between root and leaf.
const maxTreeDepth = 32

type leafRef struct {
	page uint32
	tag  int
}

// PageTree is one B-tree of the database: a table, index, long value or the
// catalog. Leaf values are numbered in key order.
type PageTree struct {
	src      PageSource
	objectID uint32
	root     uint32

	leaves []leafRef
	walked bool
}

// NewPageTree opens the tree rooted at page root. Every page of the tree has
// to carry objectID as its father data page object identifier.
func NewPageTree(src PageSource, objectID, root uint32) *PageTree {
	return &PageTree{src: src, objectID: objectID, root: root}
}

func (t *PageTree) ObjectID() uint32 { return t.objectID }

func (t *PageTree) RootPageNumber() uint32 { return t.root }

func (t *PageTree) page(number uint32) (*Page, error) {
	p, err := t.src.Page(number)
	if err != nil {
		return nil, err
	}
	if p.Header.FatherDataPageObjectID != t.objectID {
		return nil, fmt.Errorf("page %d belongs to object %d, not %d: %w",
			number, p.Header.FatherDataPageObjectID, t.objectID, ErrCorruptTree)
	}
	return p, nil
}

// RootHeader decodes the header stored in the root page.
func (t *PageTree) RootHeader() (*RootPageHeader, error) {
	p, err := t.page(t.root)
	if err != nil {
		return nil, err
	}
	return p.RootHeader()
}

// walk collects references to every live leaf value, once.
func (t *PageTree) walk() error {
	if t.walked {
		return nil
	}
	visited := roaring.New()
	var leaves []leafRef
	if err := t.walkPage(t.root, 0, visited, &leaves); err != nil {
		return err
	}
	t.leaves = leaves
	t.walked = true
	return nil
}

func (t *PageTree) walkPage(number uint32, depth int, visited *roaring.Bitmap, leaves *[]leafRef) error {
	if depth > maxTreeDepth {
		return fmt.Errorf("tree of object %d deeper than %d levels at page %d: %w", t.objectID, maxTreeDepth, number, ErrCorruptTree)
	}
	if visited.Contains(number) {
		return fmt.Errorf("page %d reached twice in tree of object %d: %w", number, t.objectID, ErrCorruptTree)
	}
	visited.Add(number)
	p, err := t.page(number)
	if err != nil {
		return err
	}

	for i := 1; i < len(p.Tags); i++ {
		if p.Tags[i].Flags.Has(TagDefunct) {
			continue
		}
		if p.IsLeaf() {
			*leaves = append(*leaves, leafRef{page: number, tag: i})
			continue
		}
		entry, err := p.BranchEntry(i)
		if err != nil {
			return err
		}
		if err := t.walkPage(entry.ChildPageNumber, depth+1, visited, leaves); err != nil {
			return err
		}
	}
	return nil
}

// NumberOfLeafValues walks the tree on first use and returns the leaf count.
func (t *PageTree) NumberOfLeafValues() (int, error) {
	if err := t.walk(); err != nil {
		return 0, err
	}
	return len(t.leaves), nil
}

// LeafValue returns leaf value i in key order.
func (t *PageTree) LeafValue(i int) (*LeafEntry, error) {
	if err := t.walk(); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(t.leaves) {
		return nil, fmt.Errorf("leaf value %d of %d: %w", i, len(t.leaves), ErrArgument)
	}
	ref := t.leaves[i]
	p, err := t.page(ref.page)
	if err != nil {
		return nil, err
	}
	return p.LeafEntry(ref.tag)
}

// LeafValueByKey descends from the root to the leaf value stored under key.
// A branch entry covers every key up to and including its own; the last entry
// of a branch page usually has an empty key and covers the rest.
func (t *PageTree) LeafValueByKey(key []byte) (*LeafEntry, error) {
	number := t.root
	for depth := 0; ; depth++ {
		if depth > maxTreeDepth {
			return nil, fmt.Errorf("key lookup deeper than %d levels: %w", maxTreeDepth, ErrCorruptTree)
		}
		p, err := t.page(number)
		if err != nil {
			return nil, err
		}

		if p.IsLeaf() {
			for i := 1; i < len(p.Tags); i++ {
				if p.Tags[i].Flags.Has(TagDefunct) {
					continue
				}
				entry, err := p.LeafEntry(i)
				if err != nil {
					return nil, err
				}
				if bytes.Equal(entry.Key, key) {
					return entry, nil
				}
			}
			return nil, fmt.Errorf("key %x in tree of object %d: %w", key, t.objectID, ErrValueMissing)
		}

		var child *BranchEntry
		for i := 1; i < len(p.Tags); i++ {
			if p.Tags[i].Flags.Has(TagDefunct) {
				continue
			}
			entry, err := p.BranchEntry(i)
			if err != nil {
				return nil, err
			}
			child = entry
			if len(entry.Key) == 0 || bytes.Compare(key, entry.Key) <= 0 {
				break
			}
		}
		if child == nil {
			return nil, fmt.Errorf("branch page %d has no entries: %w", number, ErrCorruptTree)
		}
		number = child.ChildPageNumber
	}
}
