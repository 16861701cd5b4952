// Package report assembles and serializes the JSON report the batch
// driver emits alongside extracted pages.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Item describes the outcome for a single processed image.
type Item struct {
	Source            string         `json:"source"`
	Mode              string         `json:"mode"`
	SplitX            *int           `json:"split_x"`
	Confidence        float64        `json:"confidence"`
	ContentWidthRatio float64        `json:"content_width_ratio"`
	Outputs           []string       `json:"outputs"`
	Metadata          map[string]any `json:"metadata"`
}

// Document is the top-level report written after a batch run.
type Document struct {
	RunID       string `json:"run_id"`
	GeneratedAt string `json:"generated_at"`
	Items       []Item `json:"items"`
}

// New creates an empty report document stamped with a fresh run ID.
func New() *Document {
	return &Document{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Items:       []Item{},
	}
}

// Add appends one item. Outputs defaults to an empty slice so the JSON
// field serializes as [] instead of null.
func (d *Document) Add(item Item) {
	if item.Outputs == nil {
		item.Outputs = []string{}
	}
	if item.Metadata == nil {
		item.Metadata = map[string]any{}
	}
	d.Items = append(d.Items, item)
}

// Sort orders items by source path so concurrent processing still yields a
// deterministic report.
func (d *Document) Sort() {
	sort.Slice(d.Items, func(i, j int) bool {
		return d.Items[i].Source < d.Items[j].Source
	})
}

// Write serializes the document as indented JSON to path.
func (d *Document) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
