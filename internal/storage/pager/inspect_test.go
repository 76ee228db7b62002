package pager

import (
	"os"
	"strings"
	"testing"
)

// buildTestDB creates a small database: page 1 allocated and rewritten
// as a Data page with three records (one tombstoned), page 2 left as
// allocated. Returns the path with the file closed.
func buildTestDB(t *testing.T) string {
	t.Helper()
	path := tempDBPath(t)
	pf, err := CreateNew(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	id, err := pf.AllocatePage()
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	p := NewPage(id, PageTypeData)
	p.AddRecords([][]byte{[]byte("one"), []byte("two"), []byte("three")})
	p.DeleteRecord(1)
	p.UpdateChecksum()
	if err := pf.WritePage(p); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := pf.AllocatePage(); err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if err := pf.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return path
}

func TestInspectHeader(t *testing.T) {
	path := buildTestDB(t)
	info, err := InspectHeader(path)
	if err != nil {
		t.Fatalf("inspect header: %v", err)
	}
	if info.Version != FileVersion {
		t.Errorf("version: got %d want %d", info.Version, FileVersion)
	}
	if info.PageSize != PageSize {
		t.Errorf("page size: got %d", info.PageSize)
	}
	if info.PageCount != 3 {
		t.Errorf("page count: got %d want 3", info.PageCount)
	}
	if !info.DataChecksums {
		t.Error("data checksums should be on")
	}
	if !info.ChecksumValid {
		t.Error("header checksum should be valid")
	}
}

func TestInspectPage(t *testing.T) {
	path := buildTestDB(t)
	info, err := InspectPage(path, 1)
	if err != nil {
		t.Fatalf("inspect page: %v", err)
	}
	if info.ID != 1 {
		t.Errorf("id: got %d want 1", info.ID)
	}
	if info.Type != PageTypeData || info.TypeStr != "Data" {
		t.Errorf("type: got %v/%q", info.Type, info.TypeStr)
	}
	if info.SlotCount != 3 || info.LiveRecords != 2 || info.DeletedCount != 1 {
		t.Errorf("counts: slots=%d live=%d deleted=%d", info.SlotCount, info.LiveRecords, info.DeletedCount)
	}
	if !info.ChecksumValid {
		t.Error("page checksum should be valid")
	}
	if info.UsedSpace+info.FreeSpace != PageSize {
		t.Errorf("used+free = %d", info.UsedSpace+info.FreeSpace)
	}
}

func TestInspectPage_RejectsPageZero(t *testing.T) {
	path := buildTestDB(t)
	if _, err := InspectPage(path, 0); err == nil {
		t.Fatal("expected error for page 0")
	}
}

func TestVerifyFile_Healthy(t *testing.T) {
	path := buildTestDB(t)
	issues, err := VerifyFile(path)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("expected healthy file, got issues: %v", issues)
	}
}

func TestVerifyFile_DetectsPageCorruption(t *testing.T) {
	path := buildTestDB(t)

	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		t.Fatalf("raw open: %v", err)
	}
	// Damage the record heap of page 1.
	if _, err := f.WriteAt([]byte{0xAA}, PageSize+PageSize-2); err != nil {
		t.Fatalf("raw write: %v", err)
	}
	f.Close()

	issues, err := VerifyFile(path)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	found := false
	for _, issue := range issues {
		if strings.Contains(issue, "page 1") && strings.Contains(issue, "checksum") {
			found = true
		}
	}
	if !found {
		t.Fatalf("page corruption not reported: %v", issues)
	}
}

func TestVerifyFile_DetectsHeaderCorruption(t *testing.T) {
	path := buildTestDB(t)

	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		t.Fatalf("raw open: %v", err)
	}
	if _, err := f.WriteAt([]byte{0xFF}, fhFreeListOff); err != nil {
		t.Fatalf("raw write: %v", err)
	}
	f.Close()

	issues, err := VerifyFile(path)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	found := false
	for _, issue := range issues {
		if strings.Contains(issue, "file header") {
			found = true
		}
	}
	if !found {
		t.Fatalf("header corruption not reported: %v", issues)
	}
}
