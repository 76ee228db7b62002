package pager

import (
	"fmt"
	"os"
)

// ───────────────────────────────────────────────────────────────────────────
// Inspection & verification
// ───────────────────────────────────────────────────────────────────────────
//
// Read-only helpers for tooling. They open their own descriptor without
// taking the advisory lock, so a live database can be inspected from
// the side; consistency of what they see is then best-effort.

// HeaderInfo is a display-friendly view of the file header.
type HeaderInfo struct {
	Version       uint32
	HeaderSize    uint32
	PageSize      uint32
	PageCount     uint32
	FreeListHead  PageID
	FirstDataPage PageID
	LastDataPage  PageID
	CreatedAt     uint64
	LastModified  uint64
	DataChecksums bool
	ChecksumValid bool
}

// InspectHeader reads and parses block 0 of the file at path.
func InspectHeader(path string) (*HeaderInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, FileHeaderSize)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return nil, fmt.Errorf("read file header: %w", err)
	}
	h, err := unmarshalFileHeader(buf)
	if err != nil {
		return nil, err
	}

	return &HeaderInfo{
		Version:       h.Version,
		HeaderSize:    h.HeaderSize,
		PageSize:      h.PageSize,
		PageCount:     h.PageCount,
		FreeListHead:  h.FreeListHead,
		FirstDataPage: h.FirstDataPage,
		LastDataPage:  h.LastDataPage,
		CreatedAt:     h.CreatedAt,
		LastModified:  h.LastModified,
		DataChecksums: h.DataChecksumFlag != 0,
		ChecksumValid: h.verifyChecksum(),
	}, nil
}

// PageInfo holds inspection information about a single page.
type PageInfo struct {
	ID             PageID
	Type           PageType
	TypeStr        string
	SlotCount      int
	LiveRecords    int
	DeletedCount   int
	FreeSpace      int
	UsedSpace      int
	FillPercentage float64
	LSN            LSN
	Checksum       uint32
	ChecksumValid  bool
}

// InspectPage reads a single page and returns detailed information.
func InspectPage(path string, id PageID) (*PageInfo, error) {
	if id == 0 {
		return nil, ErrPageZeroReserved
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, PageSize)
	if _, err := f.ReadAt(buf, int64(id)*PageSize); err != nil {
		return nil, fmt.Errorf("read page %d: %w", id, err)
	}
	p, err := FromBytes(buf)
	if err != nil {
		return nil, err
	}

	return &PageInfo{
		ID:             p.ID(),
		Type:           p.Type(),
		TypeStr:        p.Type().String(),
		SlotCount:      int(p.SlotCount()),
		LiveRecords:    p.LiveRecords(),
		DeletedCount:   p.DeletedCount(),
		FreeSpace:      p.FreeSpace(),
		UsedSpace:      p.UsedSpace(),
		FillPercentage: p.FillPercentage(),
		LSN:            p.LSN(),
		Checksum:       p.Checksum(),
		ChecksumValid:  p.VerifyChecksum(),
	}, nil
}

// VerifyFile checks the integrity of an entire database file and
// returns the list of issues found (empty = healthy).
func VerifyFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	var issues []string

	hdrBuf := make([]byte, FileHeaderSize)
	if _, err := f.ReadAt(hdrBuf, 0); err != nil {
		return []string{fmt.Sprintf("file header: read error: %v", err)}, nil
	}
	header, err := unmarshalFileHeader(hdrBuf)
	if err != nil {
		return []string{fmt.Sprintf("file header: %v", err)}, nil
	}
	if !header.verifyChecksum() {
		issues = append(issues, "file header: checksum mismatch")
	}

	if fi.Size()%PageSize != 0 {
		issues = append(issues, fmt.Sprintf("file size %d not a multiple of page size %d", fi.Size(), PageSize))
	}
	totalPages := fi.Size() / PageSize
	if totalPages < int64(header.PageCount) {
		issues = append(issues, fmt.Sprintf("header says %d pages but file holds %d", header.PageCount, totalPages))
	}

	buf := make([]byte, PageSize)
	for i := int64(1); i < totalPages; i++ {
		if _, err := f.ReadAt(buf, i*PageSize); err != nil {
			issues = append(issues, fmt.Sprintf("page %d: read error: %v", i, err))
			continue
		}
		p, err := FromBytes(buf)
		if err != nil {
			issues = append(issues, fmt.Sprintf("page %d: %v", i, err))
			continue
		}
		if p.ID() != PageID(i) {
			issues = append(issues, fmt.Sprintf("page %d: header ID mismatch (says %d)", i, p.ID()))
		}
		if header.DataChecksumFlag != 0 && !p.VerifyChecksum() {
			issues = append(issues, fmt.Sprintf("page %d: checksum mismatch", i))
		}
	}

	return issues, nil
}
