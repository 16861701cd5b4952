package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestNewAssignsRunID(t *testing.T) {
	a, b := New(), New()
	if a.RunID == "" || b.RunID == "" {
		t.Fatal("Expected non-empty run IDs")
	}
	if a.RunID == b.RunID {
		t.Error("Expected distinct run IDs per document")
	}
	if a.GeneratedAt == "" {
		t.Error("Expected a generation timestamp")
	}
	if a.Items == nil {
		t.Error("Items should start as an empty slice, not nil")
	}
}

func TestAddDefaultsNilCollections(t *testing.T) {
	d := New()
	d.Add(Item{Source: "x.png", Mode: "skip"})

	if d.Items[0].Outputs == nil {
		t.Error("Outputs should default to an empty slice")
	}
	if d.Items[0].Metadata == nil {
		t.Error("Metadata should default to an empty map")
	}
}

func TestSortOrdersBySource(t *testing.T) {
	d := New()
	d.Add(Item{Source: "c.png"})
	d.Add(Item{Source: "a.png"})
	d.Add(Item{Source: "b.png"})
	d.Sort()

	want := []string{"a.png", "b.png", "c.png"}
	for i, w := range want {
		if d.Items[i].Source != w {
			t.Errorf("Expected item %d to be %s, got %s", i, w, d.Items[i].Source)
		}
	}
}

func TestWriteProducesReadableJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reports", "split-report.json")

	d := New()
	x := 412
	d.Add(Item{
		Source:            "spread.png",
		Mode:              "split",
		SplitX:            &x,
		Confidence:        0.91,
		ContentWidthRatio: 0.84,
		Outputs:           []string{"spread_R.png", "spread_L.png"},
		Metadata:          map[string]any{"reason": ""},
	})
	d.Add(Item{Source: "cover.png", Mode: "cover-trim"})

	if err := d.Write(path); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var back Document
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}

	if back.RunID != d.RunID {
		t.Errorf("Expected run_id %s, got %s", d.RunID, back.RunID)
	}
	if len(back.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(back.Items))
	}
	if back.Items[0].SplitX == nil || *back.Items[0].SplitX != 412 {
		t.Errorf("Expected split_x 412, got %v", back.Items[0].SplitX)
	}
	// A result without a split column serializes split_x as null.
	if back.Items[1].SplitX != nil {
		t.Errorf("Expected null split_x, got %v", *back.Items[1].SplitX)
	}
	if back.Items[1].Outputs == nil {
		t.Error("Outputs should round-trip as an empty array")
	}
}
