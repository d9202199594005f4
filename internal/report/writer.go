package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"shelfguard/internal/model"
)

// Write renders detections as one JSON object per line, sorted by
// timestamp. The input slice is not modified.
func Write(w io.Writer, detections []model.Detection) error {
	sorted := make([]model.Detection, len(detections))
	copy(sorted, detections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, det := range sorted {
		if err := enc.Encode(Format(det)); err != nil {
			return fmt.Errorf("encode event: %w", err)
		}
	}
	return bw.Flush()
}

// WriteFile writes the JSONL report to path, creating parent directories.
func WriteFile(path string, detections []model.Detection) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := Write(f, detections); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
