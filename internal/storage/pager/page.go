// Package pager implements the on-disk storage substrate of jdb: a
// block-addressable page file with a checksummed typed header, and a
// slotted-page record layout that multiplexes variable-length records
// into fixed-size 8 KiB blocks.
//
// The storage format consists of a single database file. Block 0 holds
// the 512-byte file header padded to a full block; every subsequent
// block is a self-describing Page with a 32-byte header, a
// forward-growing slot directory and a backward-growing record heap.
// Every page carries a CRC32 checksum computed with the checksum field
// treated as zero. Records are opaque byte strings; row serialization
// belongs to higher layers.
package pager

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// ───────────────────────────────────────────────────────────────────────────
// Constants
// ───────────────────────────────────────────────────────────────────────────

const (
	// PageSize is the fixed page size in bytes (8 KiB).
	PageSize = 8192

	// PageHeaderSize is the size of the page header in bytes.
	// Layout (little-endian):
	//   [0:4]   PageID          (uint32)
	//   [4]     PageType        (1 byte)
	//   [5]     Reserved        (1 byte, zero)
	//   [6:8]   FreeSpaceStart  (uint16) — first byte after the slot directory
	//   [8:10]  FreeSpaceEnd    (uint16) — one past the lowest record byte
	//   [10:12] SlotCount       (uint16) — slots including tombstones
	//   [12:16] Reserved        (4 bytes, zero)
	//   [16:24] LSN             (uint64) — reserved for a recovery manager
	//   [24:28] Checksum        (uint32) — CRC32 with this field zeroed
	//   [28:32] Reserved        (4 bytes, zero)
	PageHeaderSize = 32

	// SlotSize is the size of one slot-directory entry:
	//   [0:2] Offset (uint16), [2:4] Length (uint16; 0 = tombstone)
	SlotSize = 4

	// InvalidPageID is the reserved "no page" identifier.
	InvalidPageID PageID = 0xFFFFFFFF
)

// Header field offsets within a page.
const (
	offPageID    = 0
	offPageType  = 4
	offFreeStart = 6
	offFreeEnd   = 8
	offSlotCount = 10
	offLSN       = 16
	offChecksum  = 24
)

// ───────────────────────────────────────────────────────────────────────────
// Page types
// ───────────────────────────────────────────────────────────────────────────

// PageType identifies the kind of data stored in a page.
type PageType uint8

const (
	PageTypeData     PageType = 0
	PageTypeIndex    PageType = 1
	PageTypeOverflow PageType = 2
	PageTypeFree     PageType = 3
)

// String returns a human-readable label for the page type.
func (pt PageType) String() string {
	switch pt {
	case PageTypeData:
		return "Data"
	case PageTypeIndex:
		return "Index"
	case PageTypeOverflow:
		return "Overflow"
	case PageTypeFree:
		return "Free"
	default:
		return fmt.Sprintf("Unknown(0x%02x)", uint8(pt))
	}
}

func (pt PageType) valid() bool {
	return pt <= PageTypeFree
}

// ───────────────────────────────────────────────────────────────────────────
// Core types
// ───────────────────────────────────────────────────────────────────────────

// PageID is a 32-bit page number within the file. Page 0 is always the
// file header block.
type PageID uint32

// LSN is a log sequence number. The field is stored on every page for a
// future recovery manager; this layer never interprets it.
type LSN uint64

// PageHeader is the decoded form of the 32-byte header at the start of
// every page. It is a read-out for callers and inspection tools; the
// bytes inside Page are authoritative.
type PageHeader struct {
	ID             PageID
	Type           PageType
	FreeSpaceStart uint16
	FreeSpaceEnd   uint16
	SlotCount      uint16
	LSN            LSN
	Checksum       uint32
}

// SlotEntry describes one slot-directory entry. A Length of zero marks
// a tombstone; its Offset is not meaningful.
type SlotEntry struct {
	Offset uint16
	Length uint16
}

// Page is a single 8 KiB block. It is an exclusive-use value: no
// internal locking, no sharing between goroutines.
type Page struct {
	data [PageSize]byte
}

// ───────────────────────────────────────────────────────────────────────────
// Construction & parsing
// ───────────────────────────────────────────────────────────────────────────

// NewPage returns a zeroed page with an initialised header: no slots,
// an empty heap and a zero (not yet computed) checksum.
func NewPage(id PageID, pt PageType) *Page {
	p := &Page{}
	binary.LittleEndian.PutUint32(p.data[offPageID:], uint32(id))
	p.data[offPageType] = byte(pt)
	binary.LittleEndian.PutUint16(p.data[offFreeStart:], PageHeaderSize)
	binary.LittleEndian.PutUint16(p.data[offFreeEnd:], PageSize)
	return p
}

// FromBytes copies buf into an owned page after validating the layout
// invariants: a known page type, a page ID other than InvalidPageID, a
// slot directory that fits the page and a heap boundary that does not
// overlap it. The checksum is NOT verified here; callers that enforce
// the checksum policy do so separately (see PageFile.ReadPage).
func FromBytes(buf []byte) (*Page, error) {
	if len(buf) != PageSize {
		return nil, InvalidDataError{Reason: fmt.Sprintf("page buffer is %d bytes, want %d", len(buf), PageSize)}
	}

	p := &Page{}
	copy(p.data[:], buf)

	if p.ID() == InvalidPageID {
		return nil, InvalidDataError{Reason: "invalid page ID"}
	}
	if int(p.FreeSpaceEnd()) > PageSize {
		return nil, InvalidDataError{Reason: "free space end exceeds page size"}
	}
	slotDirEnd := PageHeaderSize + int(p.SlotCount())*SlotSize
	if slotDirEnd > PageSize {
		return nil, InvalidDataError{Reason: "slot directory exceeds page size"}
	}
	if slotDirEnd > int(p.FreeSpaceEnd()) {
		return nil, InvalidDataError{Reason: "slot directory overlaps record heap"}
	}
	if !p.Type().valid() {
		return nil, InvalidDataError{Reason: fmt.Sprintf("unknown page type 0x%02x", p.data[offPageType])}
	}

	return p, nil
}

// ───────────────────────────────────────────────────────────────────────────
// Header access
// ───────────────────────────────────────────────────────────────────────────

// ID returns the page number stored in the header.
func (p *Page) ID() PageID {
	return PageID(binary.LittleEndian.Uint32(p.data[offPageID:]))
}

// Type returns the page type stored in the header.
func (p *Page) Type() PageType {
	return PageType(p.data[offPageType])
}

// FreeSpaceStart is the first free byte after the slot directory. It is
// maintained for readers; the authoritative derivation is from SlotCount.
func (p *Page) FreeSpaceStart() uint16 {
	return binary.LittleEndian.Uint16(p.data[offFreeStart:])
}

// FreeSpaceEnd is one past the last byte of the lowest-offset record;
// PageSize when the heap is empty.
func (p *Page) FreeSpaceEnd() uint16 {
	return binary.LittleEndian.Uint16(p.data[offFreeEnd:])
}

// SlotCount returns the number of slot entries, tombstones included.
func (p *Page) SlotCount() uint16 {
	return binary.LittleEndian.Uint16(p.data[offSlotCount:])
}

// LSN returns the stored log sequence number.
func (p *Page) LSN() LSN {
	return LSN(binary.LittleEndian.Uint64(p.data[offLSN:]))
}

// SetLSN stores a log sequence number. The value is opaque to this layer.
func (p *Page) SetLSN(lsn LSN) {
	binary.LittleEndian.PutUint64(p.data[offLSN:], uint64(lsn))
}

// Checksum returns the stored checksum; zero means "not yet computed".
func (p *Page) Checksum() uint32 {
	return binary.LittleEndian.Uint32(p.data[offChecksum:])
}

// Header decodes the full page header.
func (p *Page) Header() PageHeader {
	return PageHeader{
		ID:             p.ID(),
		Type:           p.Type(),
		FreeSpaceStart: p.FreeSpaceStart(),
		FreeSpaceEnd:   p.FreeSpaceEnd(),
		SlotCount:      p.SlotCount(),
		LSN:            p.LSN(),
		Checksum:       p.Checksum(),
	}
}

// Bytes returns the raw page contents. The slice aliases the page;
// mutating it mutates the page.
func (p *Page) Bytes() []byte {
	return p.data[:]
}

func (p *Page) setSlotCount(n int) {
	binary.LittleEndian.PutUint16(p.data[offSlotCount:], uint16(n))
	binary.LittleEndian.PutUint16(p.data[offFreeStart:], uint16(PageHeaderSize+n*SlotSize))
}

func (p *Page) setFreeSpaceEnd(off int) {
	binary.LittleEndian.PutUint16(p.data[offFreeEnd:], uint16(off))
}

// ───────────────────────────────────────────────────────────────────────────
// Checksum
// ───────────────────────────────────────────────────────────────────────────

// crcTable is the CRC32 (Castagnoli) table used for page and file-header
// checksums.
var crcTable = crc32.MakeTable(crc32.Castagnoli)

// ComputeChecksum returns the CRC32 of the page with the 4-byte checksum
// field treated as zero. The page is not mutated.
func (p *Page) ComputeChecksum() uint32 {
	h := crc32.New(crcTable)
	h.Write(p.data[:offChecksum])
	h.Write([]byte{0, 0, 0, 0})
	h.Write(p.data[offChecksum+4:])
	return h.Sum32()
}

// UpdateChecksum computes and stores the page checksum.
func (p *Page) UpdateChecksum() {
	binary.LittleEndian.PutUint32(p.data[offChecksum:], p.ComputeChecksum())
}

// VerifyChecksum reports whether the stored checksum matches the page
// contents. A stored checksum of zero means the page has never been
// checksummed and verifies as true. Read-only.
func (p *Page) VerifyChecksum() bool {
	stored := p.Checksum()
	if stored == 0 {
		return true
	}
	return p.ComputeChecksum() == stored
}
