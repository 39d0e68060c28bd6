package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/robomaint/triage/internal/model"
)

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestProcessSensorCSV(t *testing.T) {
	path := writeFixture(t, "sensors.csv", strings.Join([]string{
		"Timestamp,Temperature_C,Vibration_g,Axis1_deg,Axis2_deg",
		"2025-11-17 09:00:00,45.2,0.35,12.5,30.1",
		"2025-11-17 09:05:00,25.0,0.05,12.6,30.0",
	}, "\n"))

	res, err := New().ProcessFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Observations) != 2 {
		t.Fatalf("got %d observations, want 2", len(res.Observations))
	}
	if res.Metadata.RowCount != 2 || len(res.Metadata.Columns) != 5 {
		t.Errorf("metadata = %+v", res.Metadata)
	}

	first := res.Observations[0]
	if first.EventType != model.EventSensorReading {
		t.Errorf("event type = %q", first.EventType)
	}
	if first.Data["temperature"] != 45.2 || first.Data["vibration"] != 0.35 {
		t.Errorf("data = %v", first.Data)
	}
	if first.Data["axis1"] != 12.5 {
		t.Errorf("axis1 = %v", first.Data["axis1"])
	}
	if !strings.Contains(first.Description, "High temperature") || !strings.Contains(first.Description, "High vibration") {
		t.Errorf("description = %q", first.Description)
	}

	second := res.Observations[1]
	if second.Description != "Sensor reading recorded" {
		t.Errorf("nominal reading description = %q", second.Description)
	}
}

func TestProcessPerformanceCSV(t *testing.T) {
	path := writeFixture(t, "perf.csv", strings.Join([]string{
		"Timestamp,Metric1,Metric2",
		"2025-11-17 09:00:00,98.5,12.0",
	}, "\n"))

	res, err := New().ProcessFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Observations) != 1 {
		t.Fatalf("got %d observations, want 1", len(res.Observations))
	}
	obs := res.Observations[0]
	if obs.EventType != model.EventPerformanceMetric {
		t.Errorf("event type = %q", obs.EventType)
	}
	if obs.Data["metric1"] != 98.5 {
		t.Errorf("metric1 = %v", obs.Data["metric1"])
	}
	if !strings.Contains(obs.Description, "Performance metrics recorded") {
		t.Errorf("description = %q", obs.Description)
	}
}

func TestProcessGenericCSV(t *testing.T) {
	path := writeFixture(t, "generic.csv", strings.Join([]string{
		"Date,Message,Operator",
		"2025-11-17,Cell door opened,a.smith",
	}, "\n"))

	res, err := New().ProcessFile(path)
	if err != nil {
		t.Fatal(err)
	}
	obs := res.Observations[0]
	if obs.EventType != model.EventGeneric {
		t.Errorf("event type = %q", obs.EventType)
	}
	if obs.Description != "Cell door opened" {
		t.Errorf("description column not used: %q", obs.Description)
	}
	if obs.Timestamp != "2025-11-17" {
		t.Errorf("timestamp = %q", obs.Timestamp)
	}
}

func TestProcessAlertLog(t *testing.T) {
	path := writeFixture(t, "alerts.txt", strings.Join([]string{
		"10:03:00 NOTICE: Vibration spike",
		"10:05:12 WARN: Temperature rising on J2",
		"garbage line without structure",
	}, "\n"))

	res, err := New().ProcessFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if res.Metadata.LineCount != 3 {
		t.Errorf("line count = %d, want 3", res.Metadata.LineCount)
	}
	if len(res.Observations) != 2 {
		t.Fatalf("got %d observations, want 2 (unstructured line skipped)", len(res.Observations))
	}
	first := res.Observations[0]
	if first.EventType != model.EventSystemAlert {
		t.Errorf("event type = %q", first.EventType)
	}
	if first.Timestamp != "10:03:00" || first.Severity != "NOTICE" || first.Description != "Vibration spike" {
		t.Errorf("parsed alert = %+v", first)
	}
}

func TestProcessErrorLog(t *testing.T) {
	line := "2025-11-17 09:14:02 SRVO-324 Collision detected on J3"
	path := writeFixture(t, "errors.log", line+"\nMOTN-019 Motion error during program\n")

	res, err := New().ProcessFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Observations) != 2 {
		t.Fatalf("got %d observations, want 2", len(res.Observations))
	}
	first := res.Observations[0]
	if first.EventType != model.EventErrorLog {
		t.Errorf("event type = %q", first.EventType)
	}
	if first.ErrorCode != "SRVO-324" {
		t.Errorf("error code = %q", first.ErrorCode)
	}
	if first.Timestamp != "2025-11-17" {
		t.Errorf("timestamp fragment = %q", first.Timestamp)
	}
	if first.Description != line {
		t.Errorf("description should be the whole line: %q", first.Description)
	}
	if first.Data["error_type"] != "Collision" {
		t.Errorf("error type = %v", first.Data["error_type"])
	}
	if res.Observations[1].ErrorCode != "MOTN-019" {
		t.Errorf("second code = %q", res.Observations[1].ErrorCode)
	}
}

func TestProcessMaintenanceNotes(t *testing.T) {
	path := writeFixture(t, "maintenance.txt", strings.Join([]string{
		"2025-11-10 - Checked belts on axis 6",
		"2025-11-12 - Replaced J3 motor grease",
	}, "\n"))

	res, err := New().ProcessFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Observations) != 2 {
		t.Fatalf("got %d observations, want 2", len(res.Observations))
	}
	first := res.Observations[0]
	if first.EventType != model.EventMaintenance {
		t.Errorf("event type = %q", first.EventType)
	}
	if first.Timestamp != "2025-11-10" || first.Description != "Checked belts on axis 6" {
		t.Errorf("parsed note = %+v", first)
	}
}

func TestProcessGenericText(t *testing.T) {
	path := writeFixture(t, "notes.txt", "operator remarked the cell smelled of ozone\nsecond remark\n")

	res, err := New().ProcessFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Observations) != 2 {
		t.Fatalf("got %d observations, want 2", len(res.Observations))
	}
	if res.Observations[0].EventType != model.EventText {
		t.Errorf("event type = %q", res.Observations[0].EventType)
	}
}

func TestProcessFileMissing(t *testing.T) {
	if _, err := New().ProcessFile(filepath.Join(t.TempDir(), "absent.csv")); err == nil {
		t.Fatal("missing file should error")
	}
}

func TestProcessEmptyFile(t *testing.T) {
	path := writeFixture(t, "empty.txt", "")
	res, err := New().ProcessFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Observations) != 0 {
		t.Errorf("empty file produced %d observations", len(res.Observations))
	}
}
