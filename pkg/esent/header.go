package esent

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
)

// JetSignature identifies a database or log generation.
type JetSignature struct {
	Random       uint32
	CreationTime uint64
	NetBiosName  [16]byte
}

// FileHeader is the database header stored in the first page of the file and
// again, as a backup, in the second.
type FileHeader struct {
	CheckSum                   uint32
	Signature                  [4]byte
	Version                    uint32
	FileType                   uint32
	DBTime                     uint64
	DBSignature                JetSignature
	DBState                    uint32
	ConsistentPosition         uint64
	ConsistentTime             uint64
	AttachTime                 uint64
	AttachPosition             uint64
	DetachTime                 uint64
	DetachPosition             uint64
	LogSignature               JetSignature
	Unknown                    uint32
	PreviousBackup             [24]byte
	PreviousIncBackup          [24]byte
	CurrentFullBackup          [24]byte
	ShadowingDisables          uint32
	LastObjectID               uint32
	WindowsMajorVersion        uint32
	WindowsMinorVersion        uint32
	WindowsBuildNumber         uint32
	WindowsServicePackNumber   uint32
	FileFormatRevision         uint32
	PageSize                   uint32
	RepairCount                uint32
	RepairTime                 uint64
	Unknown2                   [28]byte
	ScrubTime                  uint64
	RequiredLog                uint64
	UpgradeExchangeFormat      uint32
	UpgradeFreePages           uint32
	UpgradeSpaceMapPages       uint32
	CurrentShadowBackup        [24]byte
	CreationFileFormatVersion  uint32
	CreationFileFormatRevision uint32
	Unknown3                   [16]byte
	OldRepairCount             uint32
	ECCCount                   uint32
	LastECCTime                uint64
	OldECCFixSuccessCount      uint32
	ECCFixErrorCount           uint32
	LastECCFixErrorTime        uint64
	OldECCFixErrorCount        uint32
	BadCheckSumErrorCount      uint32
	LastBadCheckSumTime        uint64
	OldCheckSumErrorCount      uint32
	CommittedLog               uint32
	PreviousShadowCopy         [24]byte
	PreviousDifferentialBackup [24]byte
	Unknown4                   [40]byte
	NLSMajorVersion            uint32
	NLSMinorVersion            uint32
	Unknown5                   [148]byte
	UnknownFlags               uint32
}

//# Database file types
const (
	FileTypeDatabase      = 0
	FileTypeStreamingFile = 1
)

//# Database state
const (
	DBStateJustCreated    = 1
	DBStateDirtyShutdown  = 2
	DBStateCleanShutdown  = 3
	DBStateBeingConverted = 4
	DBStateForceDetach    = 5
)

const (
	minPageSize = 0x0800
	maxPageSize = 0x8000
)

// fileHeaderSize is the number of bytes binary.Read consumes for a FileHeader.
var fileHeaderSize = binary.Size(FileHeader{})

// PageFormat selects the page header layout and tag encoding.
type PageFormat struct {
	Version  uint32
	Revision uint32
	PageSize uint32
}

// Format returns the page format described by the header.
func (h *FileHeader) Format() PageFormat {
	return PageFormat{Version: h.Version, Revision: h.FileFormatRevision, PageSize: h.PageSize}
}

// validatePageSize checks the page size against what the format revision allows.
func (f PageFormat) validatePageSize() error {
	switch f.PageSize {
	case 0x1000, 0x2000:
		return nil
	case 0x0800, 0x4000, 0x8000:
		if f.Revision >= revisionWin7 {
			return nil
		}
	}
	return fmt.Errorf("page size 0x%x for format revision 0x%x: %w", f.PageSize, f.Revision, ErrInvalidPageSize)
}

// extended pages (16 and 32 KiB) carry an 80 byte header and 15-bit tags.
func (f PageFormat) extended() bool {
	return f.Version == formatVersion && f.Revision >= revisionWin7 && f.PageSize > 8192
}

func (f PageFormat) headerSize() int {
	if f.extended() {
		return 80
	}
	return 40
}

func parseFileHeader(data []byte) (*FileHeader, error) {
	if len(data) < fileHeaderSize {
		return nil, fmt.Errorf("file header needs %d bytes, have %d: %w", fileHeaderSize, len(data), ErrCorruptData)
	}
	h := &FileHeader{}
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, h); err != nil {
		return nil, fmt.Errorf("decoding file header: %w", err)
	}
	if h.Signature != fileSignature {
		return nil, fmt.Errorf("signature %x: %w", h.Signature, ErrInvalidSignature)
	}
	if h.Version != formatVersion && h.Version != formatVersionOld {
		return nil, fmt.Errorf("format version 0x%x: %w", h.Version, ErrUnsupportedFormat)
	}
	if h.FileType != FileTypeDatabase {
		return nil, fmt.Errorf("file type %d is not a database: %w", h.FileType, ErrUnsupportedFormat)
	}
	if err := h.Format().validatePageSize(); err != nil {
		return nil, err
	}
	return h, nil
}

func readHeaderAt(r io.ReaderAt, offset int64) (*FileHeader, error) {
	data := make([]byte, fileHeaderSize)
	n, err := r.ReadAt(data, offset)
	if n < len(data) {
		if err == nil || err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("reading file header at 0x%x: %w", offset, err)
	}
	return parseFileHeader(data)
}

// readFileHeader reads the primary header and falls back to the backup
// header. The backup lives one page in, so when the primary is unusable the
// page size it claims is tried first, then every supported page size.
func readFileHeader(r io.ReaderAt, log *zap.Logger) (*FileHeader, error) {
	h, firstErr := readHeaderAt(r, 0)
	if firstErr == nil {
		return h, nil
	}

	candidates := []int64{}
	var claimed [4]byte
	if _, err := r.ReadAt(claimed[:], 236); err == nil {
		if ps := int64(binary.LittleEndian.Uint32(claimed[:])); ps >= minPageSize && ps <= maxPageSize {
			candidates = append(candidates, ps)
		}
	}
	for off := int64(minPageSize); off <= maxPageSize; off <<= 1 {
		candidates = append(candidates, off)
	}

	for _, off := range candidates {
		h, err := readHeaderAt(r, off)
		if err != nil {
			continue
		}
		if int64(h.PageSize) != off {
			continue
		}
		log.Warn("primary file header unusable, using backup header",
			zap.Int64("offset", off), zap.Error(firstErr))
		return h, nil
	}
	return nil, firstErr
}

// CheckFileSignature reports whether the file at path carries the ESE
// signature. Only I/O failures are errors.
func CheckFileSignature(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	return checkSignature(f)
}

func checkSignature(r io.ReaderAt) (bool, error) {
	var sig [4]byte
	n, err := r.ReadAt(sig[:], 4)
	if n < len(sig) {
		if err == io.EOF || err == nil {
			return false, nil
		}
		return false, err
	}
	return sig == fileSignature, nil
}
