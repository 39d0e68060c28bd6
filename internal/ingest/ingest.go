// Package ingest adapts source files into normalized observations. Each
// source format (sensor CSV, performance CSV, alert/error/maintenance text)
// has its own adapter; the normalizer never sees format quirks.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robomaint/triage/internal/model"
)

// Result is the outcome of processing one file.
type Result struct {
	Observations []model.Observation
	Metadata     Metadata
}

type Metadata struct {
	Columns   []string `json:"columns,omitempty"`
	RowCount  int      `json:"row_count,omitempty"`
	LineCount int      `json:"line_count,omitempty"`
}

type Ingestor struct {
	clock func() time.Time
}

func New() *Ingestor {
	return &Ingestor{clock: time.Now}
}

// ProcessFile extracts observations from a file, sniffing the format from
// the extension and content. A file that cannot be processed returns an
// error; callers record the failure and continue with the rest of the batch.
func (g *Ingestor) ProcessFile(path string) (Result, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return g.processCSV(path)
	default:
		return g.processText(path)
	}
}

func readLines(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	var lines []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}
