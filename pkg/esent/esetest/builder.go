// Package esetest builds small synthetic ESE database files for tests.
package esetest

import (
	"encoding/binary"
	"fmt"
	"sort"
)

//# Page flags
const (
	FlagRoot      = 0x0001
	FlagLeaf      = 0x0002
	FlagParent    = 0x0004
	FlagSpaceTree = 0x0020
	FlagIndex     = 0x0040
	FlagLongValue = 0x0080
	FlagNewFormat = 0x2000
)

//# Tag flags
const (
	TagVersion = 0x1
	TagDefunct = 0x2
	TagCommon  = 0x4
)

// Tag is one page tag. Value excludes the key size prefix encoding, which
// the helpers below produce.
type Tag struct {
	Value []byte
	Flags uint16
}

// Page describes one page to write.
type Page struct {
	Number   uint32
	ObjectID uint32
	Flags    uint32
	Previous uint32
	Next     uint32
	Tags     []Tag
}

// Entry is a key and data pair stored in a leaf.
type Entry struct {
	Key  []byte
	Data []byte
}

// Tree describes a B-tree to lay out over one or two levels.
type Tree struct {
	ObjectID uint32
	Root     uint32
	Entries  []Entry
	// PerLeaf splits the entries into leaves below a branch root when
	// there are more of them. Zero keeps everything in the root.
	PerLeaf int
	// Flags are added to every page, e.g. FlagLongValue or FlagIndex.
	Flags     uint32
	SpaceTree uint32
}

// Builder assembles a database file in memory.
type Builder struct {
	PageSize uint32
	Version  uint32
	Revision uint32

	pages    map[uint32][]byte
	nextFree uint32
	// CorruptPrimaryHeader wipes the signature of the first file header.
	CorruptPrimaryHeader bool
}

// New returns a builder for Windows 7 format pages of pageSize bytes.
func New(pageSize uint32) *Builder {
	return &Builder{
		PageSize: pageSize,
		Version:  0x620,
		Revision: 0x11,
		pages:    map[uint32][]byte{},
		nextFree: 64,
	}
}

// Extended reports whether pages use the 80 byte header and 15-bit tags.
func (b *Builder) Extended() bool {
	return b.Version == 0x620 && b.Revision >= 0x11 && b.PageSize > 8192
}

func (b *Builder) headerSize() int {
	if b.Extended() {
		return 80
	}
	return 40
}

// Alloc hands out page numbers above the fixed ones tests use for roots.
func (b *Builder) Alloc() uint32 {
	n := b.nextFree
	b.nextFree++
	return n
}

// EncodePage renders a page without storing it.
func (b *Builder) EncodePage(p Page) []byte {
	data := make([]byte, b.PageSize)
	le := binary.LittleEndian

	// checksum(8) modification time(8)
	off := 16
	le.PutUint32(data[off:], p.Previous)
	le.PutUint32(data[off+4:], p.Next)
	le.PutUint32(data[off+8:], p.ObjectID)
	le.PutUint16(data[off+18:], uint16(len(p.Tags)))
	le.PutUint32(data[off+20:], p.Flags)
	if b.Extended() {
		le.PutUint64(data[64:], uint64(p.Number))
	}

	mask := uint16(0x1fff)
	if b.Extended() {
		mask = 0x7fff
	}
	pos := 0
	for i, t := range p.Tags {
		value := append([]byte(nil), t.Value...)
		if b.Extended() && i > 0 && len(value) >= 2 {
			value[1] |= byte(t.Flags << 5)
		}
		copy(data[b.headerSize()+pos:], value)

		slot := len(data) - 4*(i+1)
		le.PutUint16(data[slot:], uint16(len(value))&mask)
		offset := uint16(pos) & mask
		if !b.Extended() {
			offset |= t.Flags << 13
		}
		le.PutUint16(data[slot+2:], offset)
		pos += len(value)
	}
	if b.headerSize()+pos > len(data)-4*len(p.Tags) {
		panic(fmt.Sprintf("page %d overflows", p.Number))
	}
	return data
}

// AddPage stores a page.
func (b *Builder) AddPage(p Page) {
	b.pages[p.Number] = b.EncodePage(p)
}

// SetRawPage stores raw page bytes.
func (b *Builder) SetRawPage(number uint32, data []byte) {
	b.pages[number] = data
}

// RootHeader renders the 16 byte root page header.
func RootHeader(initialPages, parentFDP, spaceTree uint32) []byte {
	h := make([]byte, 16)
	binary.LittleEndian.PutUint32(h, initialPages)
	binary.LittleEndian.PutUint32(h[4:], parentFDP)
	binary.LittleEndian.PutUint32(h[12:], spaceTree)
	return h
}

// LeafValue renders a leaf tag value without a common key.
func LeafValue(key, data []byte) []byte {
	out := make([]byte, 2, 2+len(key)+len(data))
	binary.LittleEndian.PutUint16(out, uint16(len(key)))
	out = append(out, key...)
	return append(out, data...)
}

// CommonLeafValue renders a leaf tag value that reuses common bytes of the
// page key. The tag needs TagCommon.
func CommonLeafValue(common uint16, local, data []byte) []byte {
	out := make([]byte, 2, 4+len(local)+len(data))
	binary.LittleEndian.PutUint16(out, common)
	return append(out, LeafValue(local, data)...)
}

// BranchValue renders a branch tag value.
func BranchValue(key []byte, child uint32) []byte {
	c := make([]byte, 4)
	binary.LittleEndian.PutUint32(c, child)
	return LeafValue(key, c)
}

// AddTree lays out a tree, with one level of leaves below the root when the
// entries do not fit PerLeaf. Leaves are chained through their sibling links.
func (b *Builder) AddTree(t Tree) {
	header := Tag{Value: RootHeader(1, 0, t.SpaceTree)}
	if t.PerLeaf == 0 || len(t.Entries) <= t.PerLeaf {
		tags := []Tag{header}
		for _, e := range t.Entries {
			tags = append(tags, Tag{Value: LeafValue(e.Key, e.Data)})
		}
		b.AddPage(Page{Number: t.Root, ObjectID: t.ObjectID, Flags: FlagRoot | FlagLeaf | t.Flags, Tags: tags})
		return
	}

	var chunks [][]Entry
	for i := 0; i < len(t.Entries); i += t.PerLeaf {
		end := i + t.PerLeaf
		if end > len(t.Entries) {
			end = len(t.Entries)
		}
		chunks = append(chunks, t.Entries[i:end])
	}
	numbers := make([]uint32, len(chunks))
	for i := range numbers {
		numbers[i] = b.Alloc()
	}

	rootTags := []Tag{header}
	for i, chunk := range chunks {
		tags := []Tag{{}}
		for _, e := range chunk {
			tags = append(tags, Tag{Value: LeafValue(e.Key, e.Data)})
		}
		p := Page{Number: numbers[i], ObjectID: t.ObjectID, Flags: FlagLeaf | t.Flags, Tags: tags}
		if i > 0 {
			p.Previous = numbers[i-1]
		}
		if i+1 < len(numbers) {
			p.Next = numbers[i+1]
		}
		b.AddPage(p)

		var key []byte
		if i+1 < len(chunks) {
			key = chunk[len(chunk)-1].Key
		}
		rootTags = append(rootTags, Tag{Value: BranchValue(key, numbers[i])})
	}
	b.AddPage(Page{Number: t.Root, ObjectID: t.ObjectID, Flags: FlagRoot | FlagParent | t.Flags, Tags: rootTags})
}

// SortEntries orders entries by key, as a tree stores them.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return string(entries[i].Key) < string(entries[j].Key)
	})
}

// AddSpaceTree writes a single page space tree of (last page, page count) extents.
func (b *Builder) AddSpaceTree(objectID, page uint32, extents [][2]uint32) {
	tags := []Tag{{Value: RootHeader(1, 0, 0)}}
	for _, e := range extents {
		key := make([]byte, 4)
		binary.BigEndian.PutUint32(key, e[0])
		data := make([]byte, 4)
		binary.LittleEndian.PutUint32(data, e[1])
		tags = append(tags, Tag{Value: LeafValue(key, data)})
	}
	b.AddPage(Page{Number: page, ObjectID: objectID, Flags: FlagRoot | FlagLeaf | FlagSpaceTree, Tags: tags})
}

func (b *Builder) fileHeader() []byte {
	h := make([]byte, 668)
	le := binary.LittleEndian
	copy(h[4:], []byte{0xef, 0xcd, 0xab, 0x89})
	le.PutUint32(h[8:], b.Version)
	le.PutUint32(h[52:], 3)
	le.PutUint32(h[232:], b.Revision)
	le.PutUint32(h[236:], b.PageSize)
	return h
}

// Bytes renders the file: two header pages, then page n at (n+1)*PageSize.
func (b *Builder) Bytes() []byte {
	last := uint32(1)
	for n := range b.pages {
		if n > last {
			last = n
		}
	}
	out := make([]byte, int(last+2)*int(b.PageSize))
	copy(out, b.fileHeader())
	copy(out[b.PageSize:], b.fileHeader())
	if b.CorruptPrimaryHeader {
		copy(out[4:], []byte{0, 0, 0, 0})
	}
	for n, p := range b.pages {
		copy(out[int(n+1)*int(b.PageSize):], p)
	}
	return out
}
