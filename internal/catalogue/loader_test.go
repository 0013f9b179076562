package catalogue

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abhisek/triplehelix/internal/stitch"
)

const validCatalogue = `{
  "threads": [
    {
      "id": "addition",
      "tube": 1,
      "stitches": [
        {"id": "add-1", "content": {"prompt": "2+2"}},
        {"id": "add-2", "content": {"prompt": "3+4"}}
      ]
    },
    {
      "id": "subtraction",
      "tube": 2,
      "stitches": [
        {"id": "sub-1"}
      ]
    }
  ]
}`

func TestParse_BuildsInitialThreads(t *testing.T) {
	threads, err := Parse([]byte(validCatalogue))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(threads) != 2 {
		t.Fatalf("got %d threads, want 2", len(threads))
	}

	add := threads[0]
	if add.ID != "addition" || add.Tube != stitch.Tube1 {
		t.Errorf("thread = %q tube %d", add.ID, add.Tube)
	}
	if len(add.Stitches) != 2 {
		t.Fatalf("got %d stitches, want 2", len(add.Stitches))
	}
	for i, s := range add.Stitches {
		if s.Position != i {
			t.Errorf("stitch %d position = %d, want thread order", i, s.Position)
		}
		if s.SkipDistance != stitch.FirstSkip {
			t.Errorf("stitch %d skip = %d, want %d", i, s.SkipDistance, stitch.FirstSkip)
		}
		if s.Level != stitch.Level1 {
			t.Errorf("stitch %d level = %d, want level 1", i, s.Level)
		}
		if s.ThreadID != "addition" {
			t.Errorf("stitch %d thread = %q", i, s.ThreadID)
		}
	}
	if string(add.Stitches[0].Content) == "" {
		t.Error("stitch content dropped")
	}
}

func TestParse_SchemaRejections(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", `{"threads": [`},
		{"no threads", `{}`},
		{"empty threads", `{"threads": []}`},
		{"missing tube", `{"threads": [{"id": "a", "stitches": [{"id": "s"}]}]}`},
		{"tube out of range", `{"threads": [{"id": "a", "tube": 4, "stitches": [{"id": "s"}]}]}`},
		{"tube zero", `{"threads": [{"id": "a", "tube": 0, "stitches": [{"id": "s"}]}]}`},
		{"empty thread id", `{"threads": [{"id": "", "tube": 1, "stitches": [{"id": "s"}]}]}`},
		{"no stitches", `{"threads": [{"id": "a", "tube": 1, "stitches": []}]}`},
		{"stitch without id", `{"threads": [{"id": "a", "tube": 1, "stitches": [{}]}]}`},
		{"unknown field", `{"threads": [{"id": "a", "tube": 1, "stitches": [{"id": "s"}], "extra": 1}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.raw)); err == nil {
				t.Errorf("Parse accepted %s", tc.raw)
			}
		})
	}
}

func TestParse_DuplicateIDs(t *testing.T) {
	dupThread := `{"threads": [
	  {"id": "a", "tube": 1, "stitches": [{"id": "s1"}]},
	  {"id": "a", "tube": 2, "stitches": [{"id": "s2"}]}
	]}`
	if _, err := Parse([]byte(dupThread)); err == nil || !strings.Contains(err.Error(), "duplicate thread") {
		t.Errorf("duplicate thread error = %v", err)
	}

	dupStitch := `{"threads": [
	  {"id": "a", "tube": 1, "stitches": [{"id": "s1"}, {"id": "s1"}]}
	]}`
	if _, err := Parse([]byte(dupStitch)); err == nil || !strings.Contains(err.Error(), "duplicate stitch") {
		t.Errorf("duplicate stitch error = %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogue.json")
	if err := os.WriteFile(path, []byte(validCatalogue), 0o644); err != nil {
		t.Fatal(err)
	}
	threads, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(threads) != 2 {
		t.Errorf("got %d threads, want 2", len(threads))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Load accepted a missing file")
	}
}
