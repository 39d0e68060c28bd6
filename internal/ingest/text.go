package ingest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/robomaint/triage/internal/model"
)

var (
	alertLineRe       = regexp.MustCompile(`^(\d{2}:\d{2}:\d{2})\s+(\w+):\s+(.+)$`)
	maintenanceLineRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})\s+-\s+(.+)$`)
	errorCodeRe       = regexp.MustCompile(`([A-Z]+-\d+)`)
	errorTypeRe       = regexp.MustCompile(`(?i)(Collision|Torque|Singularity|Overtravel|E-stop|Battery|Fence|Joint|Shift|Run request)`)
	lineTimestampRe   = regexp.MustCompile(`(\d{4}[-/]\d{2}[-/]\d{2}|\d{2}:\d{2}:\d{2}|\[\d{2}:\d{2}:\d{2}\])`)
)

func (g *Ingestor) processText(path string) (Result, error) {
	lines, err := readLines(path)
	if err != nil {
		return Result{}, err
	}
	res := Result{Metadata: Metadata{LineCount: len(lines)}}
	if len(lines) == 0 {
		return res, nil
	}

	// Content sniff over the first few lines decides the adapter.
	n := len(lines)
	if n > 10 {
		n = 10
	}
	preview := strings.Join(lines[:n], "")

	switch {
	case strings.Contains(preview, "ALERT") || strings.Contains(preview, "WARN") || strings.Contains(preview, "CRITICAL"):
		res.Observations = g.extractAlertObservations(lines)
	case strings.Contains(preview, "SRVO") || strings.Contains(preview, "TEMP") || strings.Contains(preview, "MOTN"):
		res.Observations = g.extractErrorObservations(lines)
	case containsAny(preview, "Checked", "Replaced", "Calibrated", "Lubricated", "Inspected"):
		res.Observations = g.extractMaintenanceObservations(lines)
	default:
		res.Observations = g.extractGenericTextObservations(lines)
	}
	return res, nil
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// extractAlertObservations parses lines like "10:03:00 NOTICE: Vibration spike".
func (g *Ingestor) extractAlertObservations(lines []string) []model.Observation {
	batch := g.clock().Unix()
	var out []model.Observation
	for idx, line := range lines {
		m := alertLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		out = append(out, model.Observation{
			EventID:     fmt.Sprintf("alert_%d_%d", idx, batch),
			EventType:   model.EventSystemAlert,
			Timestamp:   m[1],
			Severity:    m[2],
			Description: m[3],
			Data:        map[string]any{"severity": m[2], "message": m[3]},
			RawLine:     line,
		})
	}
	return out
}

func (g *Ingestor) extractErrorObservations(lines []string) []model.Observation {
	batch := g.clock().Unix()
	var out []model.Observation
	for idx, line := range lines {
		obs := model.Observation{
			EventID:     fmt.Sprintf("error_%d_%d", idx, batch),
			EventType:   model.EventErrorLog,
			Description: line,
			Data:        map[string]any{"raw_line": line},
			RawLine:     line,
		}
		if m := errorCodeRe.FindStringSubmatch(line); m != nil {
			obs.ErrorCode = m[1]
			obs.Data["error_code"] = m[1]
		}
		if m := errorTypeRe.FindStringSubmatch(line); m != nil {
			obs.Data["error_type"] = m[1]
		}
		if m := lineTimestampRe.FindStringSubmatch(line); m != nil {
			obs.Timestamp = m[1]
		}
		out = append(out, obs)
	}
	return out
}

// extractMaintenanceObservations parses lines like
// "2025-11-17 - Checked belts on axis 6."
func (g *Ingestor) extractMaintenanceObservations(lines []string) []model.Observation {
	batch := g.clock().Unix()
	var out []model.Observation
	for idx, line := range lines {
		m := maintenanceLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		out = append(out, model.Observation{
			EventID:     fmt.Sprintf("maint_%d_%d", idx, batch),
			EventType:   model.EventMaintenance,
			Timestamp:   m[1],
			Description: m[2],
			Data:        map[string]any{"action": m[2]},
			RawLine:     line,
		})
	}
	return out
}

func (g *Ingestor) extractGenericTextObservations(lines []string) []model.Observation {
	batch := g.clock().Unix()
	var out []model.Observation
	for idx, line := range lines {
		out = append(out, model.Observation{
			EventID:     fmt.Sprintf("txt_%d_%d", idx, batch),
			EventType:   model.EventText,
			Description: line,
			Data:        map[string]any{"content": line},
			RawLine:     line,
		})
	}
	return out
}
