package esent

import (
	"encoding/binary"
	"fmt"

	"github.com/C-Sto/goesedb/pkg/bytecodec"
)

// Extent is a run of pages owned by a tree, as recorded in its space tree.
type Extent struct {
	LastPageNumber  uint32
	NumberOfPages   uint32
	FirstPageNumber uint32
}

// SpaceExtents reads the owned-space tree referenced by the root page header.
// Trees without a space tree return no extents.
func (t *PageTree) SpaceExtents() ([]Extent, error) {
	h, err := t.RootHeader()
	if err != nil {
		return nil, err
	}
	if h.SpaceTreePageNumber == 0 {
		return nil, nil
	}

	space := NewPageTree(t.src, t.objectID, h.SpaceTreePageNumber)
	n, err := space.NumberOfLeafValues()
	if err != nil {
		return nil, fmt.Errorf("space tree of object %d: %w", t.objectID, err)
	}
	extents := make([]Extent, 0, n)
	for i := 0; i < n; i++ {
		entry, err := space.LeafValue(i)
		if err != nil {
			return nil, err
		}
		last, err := bytecodec.Uint32(entry.Key, 0, binary.BigEndian)
		if err != nil {
			return nil, fmt.Errorf("space tree key: %w", err)
		}
		count, err := bytecodec.Uint32(entry.Data, 0, binary.LittleEndian)
		if err != nil {
			return nil, fmt.Errorf("space tree value: %w", err)
		}
		e := Extent{LastPageNumber: last, NumberOfPages: count}
		if count > 0 && count <= last {
			e.FirstPageNumber = last - count + 1
		}
		extents = append(extents, e)
	}
	return extents, nil
}
