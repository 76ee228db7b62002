package testhelper

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/SimonWaldherr/jdb/internal/storage/pager"
)

// Structure mirrors tests/scenarios.yml
type scenarioFile struct {
	Scenarios []struct {
		ID          string   `yaml:"id"`
		Description string   `yaml:"description"`
		Insert      []string `yaml:"insert"`
		Delete      []int    `yaml:"delete"`
		Compact     bool     `yaml:"compact"`
		Expect      struct {
			SlotCount  int            `yaml:"slot_count"`
			Live       int            `yaml:"live"`
			Deleted    int            `yaml:"deleted"`
			Records    map[int]string `yaml:"records"`
			Tombstones []int          `yaml:"tombstones"`
		} `yaml:"expect"`
	} `yaml:"scenarios"`
}

func loadScenarios(t *testing.T) *scenarioFile {
	t.Helper()

	// Locate tests/scenarios.yml. The working directory during package
	// tests is the package folder, so try a few candidate relative
	// paths and pick the first that exists.
	candidates := []string{
		filepath.Join("tests", "scenarios.yml"),
		filepath.Join("..", "..", "tests", "scenarios.yml"),
		filepath.Join("..", "..", "..", "tests", "scenarios.yml"),
	}
	var b []byte
	var found string
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			bb, err := os.ReadFile(p)
			if err == nil {
				b = bb
				found = p
				break
			}
		}
	}
	if found == "" {
		t.Fatalf("failed to find tests/scenarios.yml (tried: %v)", candidates)
	}

	var sf scenarioFile
	if err := yaml.Unmarshal(b, &sf); err != nil {
		t.Fatalf("failed to parse scenarios.yml: %v", err)
	}
	if len(sf.Scenarios) == 0 {
		t.Fatal("scenarios.yml holds no scenarios")
	}
	return &sf
}

// TestScenariosYAML replays every operation sequence from the corpus
// against a fresh page, checks the expected state, then round-trips the
// page through a PageFile and checks again.
func TestScenariosYAML(t *testing.T) {
	sf := loadScenarios(t)

	for _, sc := range sf.Scenarios {
		sc := sc
		t.Run(sc.ID, func(t *testing.T) {
			p := pager.NewPage(1, pager.PageTypeData)

			for i, rec := range sc.Insert {
				if _, err := p.AddRecord([]byte(rec)); err != nil {
					t.Fatalf("insert %d (%q): %v", i, rec, err)
				}
			}
			p.DeleteRecords(sc.Delete)
			if sc.Compact {
				p.Compact()
			}

			assertScenario(t, p, &sc.Expect)

			// Same page, now through the file layer.
			path := filepath.Join(t.TempDir(), "scenario.jdb")
			pf, err := pager.CreateNew(path)
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			p.UpdateChecksum()
			if err := pf.WritePage(p); err != nil {
				t.Fatalf("write: %v", err)
			}
			if err := pf.Close(); err != nil {
				t.Fatalf("close: %v", err)
			}

			pf, err = pager.Open(path)
			if err != nil {
				t.Fatalf("reopen: %v", err)
			}
			defer pf.Close()
			p2, err := pf.ReadPage(1)
			if err != nil {
				t.Fatalf("read back: %v", err)
			}
			assertScenario(t, p2, &sc.Expect)
		})
	}
}

func assertScenario(t *testing.T, p *pager.Page, expect *struct {
	SlotCount  int            `yaml:"slot_count"`
	Live       int            `yaml:"live"`
	Deleted    int            `yaml:"deleted"`
	Records    map[int]string `yaml:"records"`
	Tombstones []int          `yaml:"tombstones"`
}) {
	t.Helper()

	if got := int(p.SlotCount()); got != expect.SlotCount {
		t.Errorf("slot count: got %d want %d", got, expect.SlotCount)
	}
	if got := p.LiveRecords(); got != expect.Live {
		t.Errorf("live records: got %d want %d", got, expect.Live)
	}
	if got := p.DeletedCount(); got != expect.Deleted {
		t.Errorf("deleted count: got %d want %d", got, expect.Deleted)
	}
	for slot, want := range expect.Records {
		if got := p.GetRecord(slot); !bytes.Equal(got, []byte(want)) {
			t.Errorf("record %d: got %q want %q", slot, got, want)
		}
	}
	for _, slot := range expect.Tombstones {
		if got := p.GetRecord(slot); got != nil {
			t.Errorf("slot %d should be tombstoned, got %q", slot, got)
		}
	}
}
