package pager

import (
	"testing"
)

func TestFileHeader_MarshalRoundTrip(t *testing.T) {
	h := newFileHeader()
	h.PageCount = 17
	h.FreeListHead = 5
	h.FirstDataPage = 1
	h.LastDataPage = 16
	h.updateChecksum()

	buf := h.marshal()
	h2, err := unmarshalFileHeader(buf[:])
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if h2 != h {
		t.Fatalf("round trip mismatch:\n%+v\n%+v", h, h2)
	}
	if !h2.verifyChecksum() {
		t.Fatal("checksum invalid after round trip")
	}
}

func TestNewFileHeader_Defaults(t *testing.T) {
	h := newFileHeader()
	if h.Version != FileVersion {
		t.Errorf("version: got %d want %d", h.Version, FileVersion)
	}
	if h.HeaderSize != FileHeaderSize {
		t.Errorf("header size: got %d want %d", h.HeaderSize, FileHeaderSize)
	}
	if h.PageSize != PageSize {
		t.Errorf("page size: got %d want %d", h.PageSize, PageSize)
	}
	if h.PageCount != 1 {
		t.Errorf("page count: got %d want 1", h.PageCount)
	}
	if h.DataChecksumFlag == 0 {
		t.Error("data checksums should default to on")
	}
	if h.CreatedAt == 0 || h.LastModified == 0 {
		t.Error("timestamps not set")
	}
}

func TestFileHeader_BadMagic(t *testing.T) {
	h := newFileHeader()
	buf := h.marshal()
	buf[0] = 'X'
	if _, err := unmarshalFileHeader(buf[:]); err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestFileHeader_UnsupportedVersion(t *testing.T) {
	h := newFileHeader()
	h.Version = FileVersion + 1
	buf := h.marshal()
	if _, err := unmarshalFileHeader(buf[:]); err == nil {
		t.Fatal("expected error for future version")
	}
}

func TestFileHeader_WrongPageSize(t *testing.T) {
	h := newFileHeader()
	h.PageSize = 4096
	buf := h.marshal()
	if _, err := unmarshalFileHeader(buf[:]); err == nil {
		t.Fatal("expected error for wrong page size")
	}
}

func TestFileHeader_ShortBuffer(t *testing.T) {
	if _, err := unmarshalFileHeader(make([]byte, 100)); err == nil {
		t.Fatal("expected error for short buffer")
	}
}

func TestFileHeader_ChecksumDetectsCorruption(t *testing.T) {
	h := newFileHeader()
	h.updateChecksum()
	if !h.verifyChecksum() {
		t.Fatal("fresh checksum failed to verify")
	}

	buf := h.marshal()
	buf[fhPageCountOff] ^= 0xFF
	h2, err := unmarshalFileHeader(buf[:])
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if h2.verifyChecksum() {
		t.Fatal("corrupted field passed checksum verification")
	}
}

func TestFileHeader_ChecksumFieldCorruption(t *testing.T) {
	h := newFileHeader()
	h.updateChecksum()
	h.HeaderChecksum ^= 0xDEADBEEF
	if h.verifyChecksum() {
		t.Fatal("corrupted checksum field still verified")
	}
}
