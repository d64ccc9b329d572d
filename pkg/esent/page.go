package esent

import (
	"encoding/binary"
	"fmt"

	"github.com/C-Sto/goesedb/pkg/bytecodec"
)

// PageHeader is the fixed header at the start of every page. Which checksum
// fields are filled depends on the format revision.
type PageHeader struct {
	CheckSum                     uint64
	ECCCheckSum                  uint32
	LastModificationTime         uint64
	PreviousPageNumber           uint32
	NextPageNumber               uint32
	FatherDataPageObjectID       uint32
	AvailableDataSize            uint16
	AvailableUncommittedDataSize uint16
	FirstAvailableDataOffset     uint16
	FirstAvailablePageTag        uint16
	Flags                        PageFlags
	ExtendedCheckSum1            uint64
	ExtendedCheckSum2            uint64
	ExtendedCheckSum3            uint64
	PageNumber                   uint64
}

// Tag is one slot directory entry. Value is the tag's payload within the page.
type Tag struct {
	Offset uint16
	Size   uint16
	Flags  TagFlags
	Value  []byte
}

// Page is a decoded page. Pages are never modified after ParsePage returns.
type Page struct {
	Number uint32
	Header PageHeader
	Tags   []Tag

	data []byte
}

func (p *Page) Flags() PageFlags { return p.Header.Flags }

func (p *Page) IsLeaf() bool { return p.Header.Flags.Has(PageLeaf) }

func (p *Page) IsRoot() bool { return p.Header.Flags.Has(PageRoot) }

// Data returns the raw page bytes.
func (p *Page) Data() []byte { return p.data }

// ParsePage decodes the page header and tag directory of a raw page.
func ParsePage(data []byte, number uint32, format PageFormat) (*Page, error) {
	if err := format.validatePageSize(); err != nil {
		return nil, err
	}
	if len(data) != int(format.PageSize) {
		return nil, fmt.Errorf("page %d has %d bytes, expected 0x%x: %w", number, len(data), format.PageSize, ErrCorruptData)
	}
	p := &Page{Number: number, data: data}

	//decide on the header layout
	rd := bytecodec.NewReader(data, 0, binary.LittleEndian)
	h := &p.Header
	if format.Version < formatVersion || (format.Version == formatVersion && format.Revision < revisionWin2003SP0) {
		//2003 SP0 and earlier
		h.CheckSum = uint64(rd.Uint32())
		h.PageNumber = uint64(rd.Uint32())
	} else if format.Version == formatVersion && format.Revision < revisionWin7 {
		//2003 SP1 and later
		h.CheckSum = uint64(rd.Uint32())
		h.ECCCheckSum = rd.Uint32()
	} else {
		//7 and later
		h.CheckSum = rd.Uint64()
	}
	h.LastModificationTime = rd.Uint64()
	h.PreviousPageNumber = rd.Uint32()
	h.NextPageNumber = rd.Uint32()
	h.FatherDataPageObjectID = rd.Uint32()
	h.AvailableDataSize = rd.Uint16()
	h.AvailableUncommittedDataSize = rd.Uint16()
	h.FirstAvailableDataOffset = rd.Uint16()
	h.FirstAvailablePageTag = rd.Uint16()
	h.Flags = PageFlags(rd.Uint32())

	if format.extended() {
		h.ExtendedCheckSum1 = rd.Uint64()
		h.ExtendedCheckSum2 = rd.Uint64()
		h.ExtendedCheckSum3 = rd.Uint64()
		h.PageNumber = rd.Uint64()
		rd.Skip(8)
	}
	if err := rd.Err(); err != nil {
		return nil, fmt.Errorf("page %d header: %w", number, err)
	}

	tags, err := readTags(data, h.FirstAvailablePageTag, format)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", number, err)
	}
	p.Tags = tags
	return p, nil
}

// readTags reads the tag directory, stored 4 bytes per tag backwards from the
// end of the page. Values are relative to the end of the page header.
func readTags(data []byte, count uint16, format PageFormat) ([]Tag, error) {
	headerSize := format.headerSize()
	dirStart := len(data) - 4*int(count)
	if dirStart < headerSize {
		return nil, fmt.Errorf("%d tags do not fit the page: %w", count, ErrCorruptData)
	}

	mask := uint16(0x1fff)
	if format.extended() {
		mask = 0x7fff
	}

	tags := make([]Tag, count)
	for i := range tags {
		pos := len(data) - 4*(i+1)
		sizeField := binary.LittleEndian.Uint16(data[pos:])
		offsetField := binary.LittleEndian.Uint16(data[pos+2:])

		tag := Tag{
			Size:   sizeField & mask,
			Offset: offsetField & mask,
		}
		start := headerSize + int(tag.Offset)
		end := start + int(tag.Size)
		if end > dirStart {
			return nil, fmt.Errorf("tag %d (offset 0x%x size 0x%x) runs into the tag directory: %w", i, tag.Offset, tag.Size, ErrCorruptData)
		}
		tag.Value = data[start:end]

		if format.extended() {
			// the flags live in the top bits of the value's first two bytes
			if tag.Size >= 2 && i > 0 {
				tag.Flags = TagFlags(tag.Value[1] >> 5)
				v := make([]byte, len(tag.Value))
				copy(v, tag.Value)
				v[1] &= 0x1f
				tag.Value = v
			}
		} else {
			tag.Flags = TagFlags(offsetField >> 13)
		}
		tags[i] = tag
	}
	return tags, nil
}

// Tag returns tag i.
func (p *Page) Tag(i int) (*Tag, error) {
	if i < 0 || i >= len(p.Tags) {
		return nil, fmt.Errorf("page %d tag %d of %d: %w", p.Number, i, len(p.Tags), ErrOutOfBounds)
	}
	return &p.Tags[i], nil
}

// BranchEntry is a tag of a parent page: a separator key and a child page.
type BranchEntry struct {
	CommonPageKeySize uint16
	LocalPageKey      []byte
	Key               []byte
	ChildPageNumber   uint32
}

// LeafEntry is a tag of a leaf page: a key and the stored data.
type LeafEntry struct {
	CommonPageKeySize uint16
	LocalPageKey      []byte
	Key               []byte
	Data              []byte
}

// entryKey splits a tag value into its key, rebuilt from the page's common
// key prefix (tag 0) and the local key, and whatever follows the key.
func (p *Page) entryKey(tag *Tag) (common uint16, local, key, rest []byte, err error) {
	off := 0
	if tag.Flags.Has(TagCommon) {
		if common, err = bytecodec.Uint16(tag.Value, off, binary.LittleEndian); err != nil {
			return
		}
		off += 2
	}
	var localSize uint16
	if localSize, err = bytecodec.Uint16(tag.Value, off, binary.LittleEndian); err != nil {
		return
	}
	off += 2
	if local, err = bytecodec.Slice(tag.Value, off, int(localSize)); err != nil {
		return
	}
	off += int(localSize)
	rest = tag.Value[off:]

	if common == 0 {
		key = local
		return
	}
	prefix := p.Tags[0].Value
	if int(common) > len(prefix) {
		err = fmt.Errorf("common key size %d exceeds page key of %d bytes: %w", common, len(prefix), ErrCorruptData)
		return
	}
	key = make([]byte, 0, int(common)+len(local))
	key = append(key, prefix[:common]...)
	key = append(key, local...)
	return
}

// BranchEntry decodes tag i of a parent page.
func (p *Page) BranchEntry(i int) (*BranchEntry, error) {
	tag, err := p.Tag(i)
	if err != nil {
		return nil, err
	}
	common, local, key, rest, err := p.entryKey(tag)
	if err != nil {
		return nil, fmt.Errorf("page %d branch tag %d: %w", p.Number, i, err)
	}
	child, err := bytecodec.Uint32(rest, 0, binary.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("page %d branch tag %d child page: %w", p.Number, i, err)
	}
	return &BranchEntry{
		CommonPageKeySize: common,
		LocalPageKey:      local,
		Key:               key,
		ChildPageNumber:   child,
	}, nil
}

// LeafEntry decodes tag i of a leaf page.
func (p *Page) LeafEntry(i int) (*LeafEntry, error) {
	tag, err := p.Tag(i)
	if err != nil {
		return nil, err
	}
	common, local, key, rest, err := p.entryKey(tag)
	if err != nil {
		return nil, fmt.Errorf("page %d leaf tag %d: %w", p.Number, i, err)
	}
	return &LeafEntry{
		CommonPageKeySize: common,
		LocalPageKey:      local,
		Key:               key,
		Data:              rest,
	}, nil
}

// RootPageHeader is stored in tag 0 of a tree's root page.
type RootPageHeader struct {
	InitialNumberOfPages uint32
	ParentFDP            uint32
	ExtentSpace          uint32
	SpaceTreePageNumber  uint32
}

// RootHeader decodes the root page header, 16 bytes or the 25 byte variant.
func (p *Page) RootHeader() (*RootPageHeader, error) {
	if !p.IsRoot() {
		return nil, fmt.Errorf("page %d is not a root page: %w", p.Number, ErrArgument)
	}
	if len(p.Tags) == 0 {
		return nil, fmt.Errorf("root page %d has no header tag: %w", p.Number, ErrCorruptData)
	}
	v := p.Tags[0].Value
	rd := bytecodec.NewReader(v, 0, binary.LittleEndian)
	h := &RootPageHeader{}
	switch len(v) {
	case 16:
		h.InitialNumberOfPages = rd.Uint32()
	case 25:
		h.InitialNumberOfPages = rd.Uint32()
		rd.Skip(1)
	default:
		return nil, fmt.Errorf("root page %d header of %d bytes: %w", p.Number, len(v), ErrCorruptData)
	}
	h.ParentFDP = rd.Uint32()
	h.ExtentSpace = rd.Uint32()
	h.SpaceTreePageNumber = rd.Uint32()
	return h, rd.Err()
}
