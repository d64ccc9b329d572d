package esent

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/C-Sto/goesedb/pkg/bytecodec"
	"github.com/google/btree"
)

// LongValue is a value stored out of row in the table's long value tree.
type LongValue struct {
	ID             uint32
	ReferenceCount uint32
	Size           uint32
	Segments       [][]byte
}

func (lv *LongValue) NumberOfSegments() int { return len(lv.Segments) }

// Segment returns segment i, in offset order.
func (lv *LongValue) Segment(i int) ([]byte, error) {
	if i < 0 || i >= len(lv.Segments) {
		return nil, fmt.Errorf("segment %d of %d: %w", i, len(lv.Segments), ErrArgument)
	}
	return lv.Segments[i], nil
}

// Data concatenates the segments.
func (lv *LongValue) Data() []byte {
	out := make([]byte, 0, lv.Size)
	for _, s := range lv.Segments {
		out = append(out, s...)
	}
	return out
}

type longValueItem struct {
	key  []byte
	leaf int
}

func (a longValueItem) Less(b btree.Item) bool {
	return bytes.Compare(a.key, b.(longValueItem).key) < 0
}

// longValueStore resolves long value identifiers against a long value tree.
// The key index is built on first use.
type longValueStore struct {
	tree  *PageTree
	index *btree.BTree
}

func newLongValueStore(tree *PageTree) *longValueStore {
	return &longValueStore{tree: tree}
}

func (s *longValueStore) buildIndex() error {
	if s.index != nil {
		return nil
	}
	n, err := s.tree.NumberOfLeafValues()
	if err != nil {
		return fmt.Errorf("long value tree: %w", err)
	}
	index := btree.New(16)
	for i := 0; i < n; i++ {
		entry, err := s.tree.LeafValue(i)
		if err != nil {
			return fmt.Errorf("long value tree entry %d: %w", i, err)
		}
		index.ReplaceOrInsert(longValueItem{key: entry.Key, leaf: i})
	}
	s.index = index
	return nil
}

func longValueKey(id uint32) []byte {
	key := make([]byte, 4)
	binary.BigEndian.PutUint32(key, id)
	return key
}

// resolve collects the header and every segment of long value id.
func (s *longValueStore) resolve(id uint32) (*LongValue, error) {
	if err := s.buildIndex(); err != nil {
		return nil, err
	}
	headerKey := longValueKey(id)
	item := s.index.Get(longValueItem{key: headerKey})
	if item == nil {
		return nil, fmt.Errorf("long value 0x%08x: %w", id, ErrValueMissing)
	}
	header, err := s.tree.LeafValue(item.(longValueItem).leaf)
	if err != nil {
		return nil, err
	}
	rd := bytecodec.NewReader(header.Data, 0, binary.LittleEndian)
	lv := &LongValue{ID: id, ReferenceCount: rd.Uint32(), Size: rd.Uint32()}
	if err := rd.Err(); err != nil {
		return nil, fmt.Errorf("long value 0x%08x header: %w", id, ErrCorruptLongValue)
	}

	var collected uint32
	var walkErr error
	first := append(longValueKey(id), 0, 0, 0, 0)
	s.index.AscendGreaterOrEqual(longValueItem{key: first}, func(i btree.Item) bool {
		it := i.(longValueItem)
		if len(it.key) != 8 || !bytes.Equal(it.key[:4], headerKey) {
			return false
		}
		offset := binary.BigEndian.Uint32(it.key[4:])
		if offset != collected {
			walkErr = fmt.Errorf("long value 0x%08x segment at 0x%x, expected 0x%x: %w", id, offset, collected, ErrCorruptLongValue)
			return false
		}
		entry, err := s.tree.LeafValue(it.leaf)
		if err != nil {
			walkErr = err
			return false
		}
		lv.Segments = append(lv.Segments, entry.Data)
		collected += uint32(len(entry.Data))
		return collected < lv.Size
	})
	if walkErr != nil {
		return nil, walkErr
	}
	if collected < lv.Size {
		return nil, fmt.Errorf("long value 0x%08x has 0x%x of 0x%x bytes: %w", id, collected, lv.Size, ErrCorruptLongValue)
	}
	if collected > lv.Size {
		// the last segment may be padded past the recorded size
		last := len(lv.Segments) - 1
		lv.Segments[last] = lv.Segments[last][:len(lv.Segments[last])-int(collected-lv.Size)]
	}
	return lv, nil
}
