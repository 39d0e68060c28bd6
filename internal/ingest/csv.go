package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/robomaint/triage/internal/model"
)

func (g *Ingestor) processCSV(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return Result{}, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) == 0 {
		return Result{}, nil
	}

	header := rows[0]
	data := rows[1:]
	res := Result{Metadata: Metadata{Columns: header, RowCount: len(data)}}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}

	switch {
	case hasColumn(cols, "Temperature_C") || hasColumn(cols, "Vibration_g"):
		res.Observations = g.extractSensorObservations(cols, data)
	case hasColumn(cols, "Metric1") || hasColumn(cols, "Metric2"):
		res.Observations = g.extractPerformanceObservations(cols, data)
	default:
		res.Observations = g.extractGenericObservations(header, cols, data)
	}
	return res, nil
}

func hasColumn(cols map[string]int, name string) bool {
	_, ok := cols[name]
	return ok
}

func cell(cols map[string]int, row []string, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (g *Ingestor) extractSensorObservations(cols map[string]int, rows [][]string) []model.Observation {
	batch := g.clock().Unix()
	var out []model.Observation
	for idx, row := range rows {
		data := map[string]any{}
		putFloat(data, "temperature", cell(cols, row, "Temperature_C"))
		putFloat(data, "vibration", cell(cols, row, "Vibration_g"))
		for i := 1; i <= 6; i++ {
			putFloat(data, fmt.Sprintf("axis%d", i), cell(cols, row, fmt.Sprintf("Axis%d_deg", i)))
		}
		out = append(out, model.Observation{
			EventID:     fmt.Sprintf("sensor_%d_%d", idx, batch),
			EventType:   model.EventSensorReading,
			Timestamp:   cell(cols, row, "Timestamp"),
			Data:        data,
			Description: sensorDescription(data),
		})
	}
	return out
}

// sensorDescription synthesizes a human-readable description from readings
// that look anomalous: hot or cold joints, vibration spikes.
func sensorDescription(data map[string]any) string {
	var parts []string
	if temp, ok := data["temperature"].(float64); ok {
		if temp > 40 {
			parts = append(parts, fmt.Sprintf("High temperature: %g°C", temp))
		} else if temp < 20 {
			parts = append(parts, fmt.Sprintf("Low temperature: %g°C", temp))
		}
	}
	if vib, ok := data["vibration"].(float64); ok && vib > 0.2 {
		parts = append(parts, fmt.Sprintf("High vibration: %gg", vib))
	}
	if len(parts) > 0 {
		return strings.Join(parts, "; ")
	}
	return "Sensor reading recorded"
}

func (g *Ingestor) extractPerformanceObservations(cols map[string]int, rows [][]string) []model.Observation {
	batch := g.clock().Unix()
	var out []model.Observation
	for idx, row := range rows {
		data := map[string]any{}
		for i := 1; i <= 4; i++ {
			putFloat(data, fmt.Sprintf("metric%d", i), cell(cols, row, fmt.Sprintf("Metric%d", i)))
		}
		ts := cell(cols, row, "Timestamp")
		out = append(out, model.Observation{
			EventID:     fmt.Sprintf("perf_%d_%d", idx, batch),
			EventType:   model.EventPerformanceMetric,
			Timestamp:   ts,
			Data:        data,
			Description: fmt.Sprintf("Performance metrics recorded at %s", ts),
		})
	}
	return out
}

var descriptionColumns = []string{"description", "Description", "DESCRIPTION", "message", "Message", "error", "Error"}
var timestampColumns = []string{"timestamp", "Timestamp", "TIMESTAMP", "time", "Time", "date", "Date"}

func (g *Ingestor) extractGenericObservations(header []string, cols map[string]int, rows [][]string) []model.Observation {
	batch := g.clock().Unix()
	var out []model.Observation
	for idx, row := range rows {
		data := map[string]any{}
		for i, name := range header {
			if i < len(row) {
				data[strings.TrimSpace(name)] = strings.TrimSpace(row[i])
			}
		}

		desc := ""
		for _, col := range descriptionColumns {
			if v := cell(cols, row, col); v != "" {
				desc = v
				break
			}
		}
		if desc == "" {
			var fields []string
			for _, name := range header {
				lower := strings.ToLower(strings.TrimSpace(name))
				if lower == "timestamp" || lower == "time" || lower == "date" || lower == "id" || lower == "index" {
					continue
				}
				if v := cell(cols, row, strings.TrimSpace(name)); v != "" {
					fields = append(fields, fmt.Sprintf("%s: %s", strings.TrimSpace(name), v))
					if len(fields) >= 3 {
						break
					}
				}
			}
			desc = strings.Join(fields, " | ")
		}
		if desc == "" {
			desc = fmt.Sprintf("Data event from row %d", idx)
		}
		if len(desc) > 200 {
			desc = desc[:200]
		}

		ts := ""
		for _, col := range timestampColumns {
			if v := cell(cols, row, col); v != "" {
				ts = v
				break
			}
		}

		out = append(out, model.Observation{
			EventID:     fmt.Sprintf("generic_%d_%d", idx, batch),
			EventType:   model.EventGeneric,
			Timestamp:   ts,
			Data:        data,
			Description: desc,
		})
	}
	return out
}

func putFloat(data map[string]any, key, raw string) {
	if raw == "" {
		return
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		data[key] = f
	}
}
