package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/robomaint/triage/internal/model"
)

func openTempSQLite(t *testing.T, name string) (*SQLite, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	s, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return s, path
}

func TestSQLiteRoundtrip(t *testing.T) {
	s, path := openTempSQLite(t, "triage.db")

	force := 645.0
	rec := &model.Record{
		RecordID:        "rec-1",
		SourceEventID:   "error_3_100",
		SourceEventType: model.EventErrorLog,
		Timestamp:       time.Date(2025, 11, 17, 9, 14, 2, 0, time.UTC),
		Joint:           "J3",
		CollisionType:   model.CollisionHardImpact,
		ForceValue:      &force,
		Severity:        model.SeverityHigh,
		Status:          model.StatusPendingInspection,
		Confidence:      model.ConfidenceHigh,
		RecurrenceCount: 3,
		ErrorCode:       "SRVO-324",
		Description:     "Collision detected on J3",
		Notes:           []string{"note one"},
	}
	if err := s.Append(rec); err != nil {
		t.Fatal(err)
	}
	if err := s.AttachTriage("rec-1", model.TriageResult{Score: 85, Priority: model.PriorityHigh}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	if reopened.Count() != 1 {
		t.Fatalf("count after reopen = %d, want 1", reopened.Count())
	}
	got, ok := reopened.FindByID("rec-1")
	if !ok {
		t.Fatal("record not found after reopen")
	}
	if got.Joint != "J3" || got.ErrorCode != "SRVO-324" || got.CollisionType != model.CollisionHardImpact {
		t.Errorf("fields lost: %+v", got)
	}
	if got.ForceValue == nil || *got.ForceValue != 645 {
		t.Errorf("force = %v, want 645", got.ForceValue)
	}
	if !got.Timestamp.Equal(rec.Timestamp) {
		t.Errorf("timestamp = %v, want %v", got.Timestamp, rec.Timestamp)
	}
	if len(got.Notes) != 1 || got.Notes[0] != "note one" {
		t.Errorf("notes = %v", got.Notes)
	}
	if got.Triage == nil || got.Triage.Score != 85 {
		t.Errorf("triage not persisted: %+v", got.Triage)
	}
}

func TestSQLiteReplaceAllPersists(t *testing.T) {
	s, path := openTempSQLite(t, "triage.db")

	ts := time.Date(2025, 11, 17, 9, 0, 0, 0, time.UTC)
	if err := s.Append(testRecord("a", model.EventErrorLog, ts)); err != nil {
		t.Fatal(err)
	}
	replacement := testRecord("a", model.EventErrorLog, ts)
	replacement.RecurrenceCount = 7
	if err := s.ReplaceAll([]*model.Record{replacement}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	got, ok := reopened.FindByID("a")
	if !ok {
		t.Fatal("record not found after reopen")
	}
	if got.RecurrenceCount != 7 {
		t.Errorf("recurrence = %d, want 7", got.RecurrenceCount)
	}
}

func TestSQLitePreservesOrder(t *testing.T) {
	s, path := openTempSQLite(t, "triage.db")

	ts := time.Date(2025, 11, 17, 9, 0, 0, 0, time.UTC)
	for _, id := range []string{"c", "a", "b"} {
		if err := s.Append(testRecord(id, model.EventErrorLog, ts)); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	var ids []string
	for _, rec := range reopened.All() {
		ids = append(ids, rec.RecordID)
	}
	want := []string{"c", "a", "b"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("order after reopen = %v, want %v", ids, want)
		}
	}
}

func TestSQLiteReplaceAllRollsBackOnFailure(t *testing.T) {
	s, path := openTempSQLite(t, "triage.db")
	ts := time.Date(2025, 11, 17, 9, 0, 0, 0, time.UTC)
	if err := s.Append(testRecord("keep", model.EventErrorLog, ts)); err != nil {
		t.Fatal(err)
	}

	_, err := s.db.Exec(`CREATE TRIGGER reject_boom BEFORE INSERT ON records
		WHEN NEW.record_id = 'boom'
		BEGIN SELECT RAISE(ABORT, 'rejected'); END`)
	if err != nil {
		t.Fatal(err)
	}

	err = s.ReplaceAll([]*model.Record{
		testRecord("fresh", model.EventErrorLog, ts),
		testRecord("boom", model.EventErrorLog, ts),
	})
	if err == nil {
		t.Fatal("want error when a rebuild insert is rejected")
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	if _, ok := reopened.FindByID("keep"); !ok {
		t.Error("original record lost after failed rebuild")
	}
	if got := reopened.Count(); got != 1 {
		t.Errorf("persisted %d records after failed rebuild, want 1", got)
	}
}
