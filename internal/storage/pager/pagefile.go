package pager

import (
	"fmt"
	"os"
	"time"
)

// ───────────────────────────────────────────────────────────────────────────
// PageFile
// ───────────────────────────────────────────────────────────────────────────
//
// A PageFile wraps one *os.File and a cached FileHeader. Block 0 is the
// header; pages start at block 1. All page I/O is positioned
// (ReadAt/WriteAt), full blocks only. The handle is exclusive-use: a
// non-blocking advisory lock is taken on create/open and held until
// Close, so a second process opening the same file fails fast with
// ErrFileLocked. Within a process the caller provides any further
// serialization; the type itself is not safe for concurrent use.

// PageFile is a block-addressable file of fixed-size pages.
type PageFile struct {
	file   *os.File
	header FileHeader
	path   string
	closed bool
}

// CreateNew creates a database file at path, failing if it already
// exists, and writes a fresh checksummed header. Data-page checksums
// are enabled by default.
func CreateNew(path string) (*PageFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}

	pf := &PageFile{file: f, header: newFileHeader(), path: path}
	if err := pf.writeHeader(); err != nil {
		f.Close()
		return nil, err
	}
	return pf, nil
}

// Open opens an existing database file read-write and validates its
// header: magic, version, page size and header checksum.
func Open(path string) (*PageFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}

	buf := make([]byte, FileHeaderSize)
	if _, err := f.ReadAt(buf, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("read file header: %w", err)
	}
	header, err := unmarshalFileHeader(buf)
	if err != nil {
		f.Close()
		return nil, err
	}
	if !header.verifyChecksum() {
		f.Close()
		return nil, InvalidDataError{Reason: "file header checksum mismatch"}
	}

	return &PageFile{file: f, header: header, path: path}, nil
}

// WritePage writes all 8192 bytes of p at its page ID. Writing past the
// current end extends the page count and persists the header. The
// caller is responsible for UpdateChecksum before the write; the file
// layer never computes page checksums.
func (pf *PageFile) WritePage(p *Page) error {
	if pf.closed {
		return ErrClosed
	}
	id := p.ID()
	if id == 0 {
		return ErrPageZeroReserved
	}
	if id == InvalidPageID {
		return InvalidDataError{Reason: "invalid page ID"}
	}

	off := int64(id) * PageSize
	if _, err := pf.file.WriteAt(p.Bytes(), off); err != nil {
		return fmt.Errorf("write page %d: %w", id, err)
	}

	if uint32(id) >= pf.header.PageCount {
		pf.header.PageCount = uint32(id) + 1
		pf.touch()
		if err := pf.writeHeader(); err != nil {
			return err
		}
	}
	return nil
}

// ReadPage reads and parses the page at id. When the data-checksum flag
// is set, a failed page CRC yields ChecksumMismatchError.
func (pf *PageFile) ReadPage(id PageID) (*Page, error) {
	if pf.closed {
		return nil, ErrClosed
	}
	if id == 0 {
		return nil, ErrPageZeroReserved
	}
	if uint32(id) >= pf.header.PageCount {
		return nil, PageNotFoundError{ID: id}
	}

	buf := make([]byte, PageSize)
	off := int64(id) * PageSize
	if _, err := pf.file.ReadAt(buf, off); err != nil {
		return nil, fmt.Errorf("read page %d: %w", id, err)
	}

	p, err := FromBytes(buf)
	if err != nil {
		return nil, err
	}
	if pf.header.DataChecksumFlag != 0 && !p.VerifyChecksum() {
		return nil, ChecksumMismatchError{ID: id}
	}
	return p, nil
}

// ReadRecord reads one record through the page layer. A slot that does
// not exist on the page yields InvalidSlotError; a tombstoned slot
// yields a nil record with no error.
func (pf *PageFile) ReadRecord(id PageID, slot int) ([]byte, error) {
	p, err := pf.ReadPage(id)
	if err != nil {
		return nil, err
	}
	entry, ok := p.GetSlot(slot)
	if !ok {
		return nil, InvalidSlotError{PageID: id, Index: slot}
	}
	if entry.Length == 0 {
		return nil, nil
	}
	rec := p.GetRecord(slot)
	if rec == nil {
		return nil, nil
	}
	out := make([]byte, len(rec))
	copy(out, rec)
	return out, nil
}

// AllocatePage appends a fresh Free-typed page to the file and returns
// its ID. Allocation is append-only; the free-list head in the header
// is stored for a future free-list manager and never consumed here.
func (pf *PageFile) AllocatePage() (PageID, error) {
	if pf.closed {
		return InvalidPageID, ErrClosed
	}

	id := PageID(pf.header.PageCount)
	p := NewPage(id, PageTypeFree)
	if pf.header.DataChecksumFlag != 0 {
		p.UpdateChecksum()
	}

	off := int64(id) * PageSize
	if _, err := pf.file.WriteAt(p.Bytes(), off); err != nil {
		return InvalidPageID, fmt.Errorf("write page %d: %w", id, err)
	}

	pf.header.PageCount++
	pf.touch()
	if err := pf.writeHeader(); err != nil {
		return InvalidPageID, err
	}
	return id, nil
}

// Sync flushes file contents and metadata to durable storage.
func (pf *PageFile) Sync() error {
	if pf.closed {
		return ErrClosed
	}
	if err := pf.file.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", pf.path, err)
	}
	return nil
}

// Close releases the advisory lock and the descriptor. Further
// operations return ErrClosed. Close is idempotent.
func (pf *PageFile) Close() error {
	if pf.closed {
		return nil
	}
	pf.closed = true
	if err := unlockFile(pf.file); err != nil {
		pf.file.Close()
		return fmt.Errorf("unlock %s: %w", pf.path, err)
	}
	return pf.file.Close()
}

// ── Header access ─────────────────────────────────────────────────────────

// PageCount returns the number of blocks in the file, header block included.
func (pf *PageFile) PageCount() uint32 {
	return pf.header.PageCount
}

// Path returns the database file path.
func (pf *PageFile) Path() string {
	return pf.path
}

// Header returns a copy of the cached file header.
func (pf *PageFile) Header() FileHeader {
	return pf.header
}

// DataChecksumEnabled reports whether ReadPage verifies page CRCs.
func (pf *PageFile) DataChecksumEnabled() bool {
	return pf.header.DataChecksumFlag != 0
}

// SetDataChecksums switches page-CRC enforcement and persists the header.
func (pf *PageFile) SetDataChecksums(on bool) error {
	if pf.closed {
		return ErrClosed
	}
	if on {
		pf.header.DataChecksumFlag = 1
	} else {
		pf.header.DataChecksumFlag = 0
	}
	pf.touch()
	return pf.writeHeader()
}

// SetDataPageHints records the first/last data page hints and persists
// the header. The hints are informational: Header and InspectHeader
// report them, and no other operation at this layer uses them.
func (pf *PageFile) SetDataPageHints(first, last PageID) error {
	if pf.closed {
		return ErrClosed
	}
	pf.header.FirstDataPage = first
	pf.header.LastDataPage = last
	pf.touch()
	return pf.writeHeader()
}

// writeHeader checksums the cached header and writes it padded to a
// full block at offset 0.
func (pf *PageFile) writeHeader() error {
	pf.header.updateChecksum()

	block := make([]byte, PageSize)
	hdr := pf.header.marshal()
	copy(block, hdr[:])

	if _, err := pf.file.WriteAt(block, 0); err != nil {
		return fmt.Errorf("write file header: %w", err)
	}
	return nil
}

func (pf *PageFile) touch() {
	pf.header.LastModified = uint64(time.Now().Unix())
}
