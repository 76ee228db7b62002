package pager

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"time"
)

// ───────────────────────────────────────────────────────────────────────────
// File header — block 0
// ───────────────────────────────────────────────────────────────────────────
//
// The first 512 bytes of block 0, padded with zeros to a full 8 KiB
// block. Layout (little-endian):
//
//  Offset  Size  Field
//  ──────  ────  ───────────────────
//  0       4     Magic            "JDB1"
//  4       4     Version          uint32 (currently 1)
//  8       4     HeaderSize       uint32 (512)
//  12      4     PageSize         uint32 (8192)
//  16      4     PageCount        uint32 (total pages incl. block 0)
//  20      4     FreeListHead     uint32 (0 = none; stored, not yet consumed)
//  24      4     FirstDataPage    uint32 (0 = none)
//  28      4     LastDataPage     uint32 (0 = none)
//  32      8     CreatedAt        uint64 UNIX seconds
//  40      8     LastModified     uint64 UNIX seconds
//  48      4     HeaderChecksum   uint32 CRC32 with this field zeroed
//  52      4     DataChecksumFlag uint32 (0 = off, ≠0 = verify page CRCs)
//  56      456   Reserved         zero

const (
	// FileMagic identifies a jdb database file.
	FileMagic = "JDB1"

	// FileVersion is the current on-disk format version.
	FileVersion uint32 = 1

	// FileHeaderSize is the size of the serialized file header.
	FileHeaderSize = 512
)

// File header field offsets.
const (
	fhMagicOff        = 0
	fhVersionOff      = 4
	fhHeaderSizeOff   = 8
	fhPageSizeOff     = 12
	fhPageCountOff    = 16
	fhFreeListOff     = 20
	fhFirstDataOff    = 24
	fhLastDataOff     = 28
	fhCreatedAtOff    = 32
	fhLastModifiedOff = 40
	fhChecksumOff     = 48
	fhDataCksumOff    = 52
)

// FileHeader holds the parsed contents of the header block.
type FileHeader struct {
	Version          uint32
	HeaderSize       uint32
	PageSize         uint32
	PageCount        uint32
	FreeListHead     PageID
	FirstDataPage    PageID
	LastDataPage     PageID
	CreatedAt        uint64
	LastModified     uint64
	HeaderChecksum   uint32
	DataChecksumFlag uint32
}

// newFileHeader returns the header of a freshly created file: one page
// (block 0 itself), data-page checksums on, wall-clock timestamps.
func newFileHeader() FileHeader {
	now := uint64(time.Now().Unix())
	return FileHeader{
		Version:          FileVersion,
		HeaderSize:       FileHeaderSize,
		PageSize:         PageSize,
		PageCount:        1,
		CreatedAt:        now,
		LastModified:     now,
		DataChecksumFlag: 1,
	}
}

// marshal serializes the header into its 512-byte on-disk form.
func (h *FileHeader) marshal() [FileHeaderSize]byte {
	var buf [FileHeaderSize]byte
	copy(buf[fhMagicOff:], FileMagic)
	binary.LittleEndian.PutUint32(buf[fhVersionOff:], h.Version)
	binary.LittleEndian.PutUint32(buf[fhHeaderSizeOff:], h.HeaderSize)
	binary.LittleEndian.PutUint32(buf[fhPageSizeOff:], h.PageSize)
	binary.LittleEndian.PutUint32(buf[fhPageCountOff:], h.PageCount)
	binary.LittleEndian.PutUint32(buf[fhFreeListOff:], uint32(h.FreeListHead))
	binary.LittleEndian.PutUint32(buf[fhFirstDataOff:], uint32(h.FirstDataPage))
	binary.LittleEndian.PutUint32(buf[fhLastDataOff:], uint32(h.LastDataPage))
	binary.LittleEndian.PutUint64(buf[fhCreatedAtOff:], h.CreatedAt)
	binary.LittleEndian.PutUint64(buf[fhLastModifiedOff:], h.LastModified)
	binary.LittleEndian.PutUint32(buf[fhChecksumOff:], h.HeaderChecksum)
	binary.LittleEndian.PutUint32(buf[fhDataCksumOff:], h.DataChecksumFlag)
	return buf
}

// unmarshalFileHeader parses and validates the first FileHeaderSize
// bytes of buf. The checksum is not verified here; see verifyChecksum.
func unmarshalFileHeader(buf []byte) (FileHeader, error) {
	var h FileHeader
	if len(buf) < FileHeaderSize {
		return h, InvalidDataError{Reason: fmt.Sprintf("file header is %d bytes, want %d", len(buf), FileHeaderSize)}
	}
	if string(buf[fhMagicOff:fhMagicOff+4]) != FileMagic {
		return h, InvalidDataError{Reason: "wrong magic number"}
	}

	h.Version = binary.LittleEndian.Uint32(buf[fhVersionOff:])
	h.HeaderSize = binary.LittleEndian.Uint32(buf[fhHeaderSizeOff:])
	h.PageSize = binary.LittleEndian.Uint32(buf[fhPageSizeOff:])
	h.PageCount = binary.LittleEndian.Uint32(buf[fhPageCountOff:])
	h.FreeListHead = PageID(binary.LittleEndian.Uint32(buf[fhFreeListOff:]))
	h.FirstDataPage = PageID(binary.LittleEndian.Uint32(buf[fhFirstDataOff:]))
	h.LastDataPage = PageID(binary.LittleEndian.Uint32(buf[fhLastDataOff:]))
	h.CreatedAt = binary.LittleEndian.Uint64(buf[fhCreatedAtOff:])
	h.LastModified = binary.LittleEndian.Uint64(buf[fhLastModifiedOff:])
	h.HeaderChecksum = binary.LittleEndian.Uint32(buf[fhChecksumOff:])
	h.DataChecksumFlag = binary.LittleEndian.Uint32(buf[fhDataCksumOff:])

	if h.Version > FileVersion {
		return h, InvalidDataError{Reason: fmt.Sprintf("unsupported file version %d", h.Version)}
	}
	if h.PageSize != PageSize {
		return h, InvalidDataError{Reason: fmt.Sprintf("page size %d, want %d", h.PageSize, PageSize)}
	}

	return h, nil
}

// computeChecksum returns the CRC32 of the serialized header with the
// checksum field treated as zero.
func (h *FileHeader) computeChecksum() uint32 {
	tmp := *h
	tmp.HeaderChecksum = 0
	buf := tmp.marshal()

	crc := crc32.New(crcTable)
	crc.Write(buf[:fhChecksumOff])
	crc.Write(buf[fhChecksumOff+4:])
	return crc.Sum32()
}

// updateChecksum recomputes and stores the header checksum.
func (h *FileHeader) updateChecksum() {
	h.HeaderChecksum = h.computeChecksum()
}

// verifyChecksum reports whether the stored checksum matches.
func (h *FileHeader) verifyChecksum() bool {
	return h.computeChecksum() == h.HeaderChecksum
}
