package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/robomaint/triage/internal/model"
)

// SQLite implements Repository with SQLite-backed persistence. It delegates
// query logic to an embedded in-memory Memory store and persists records with
// write-through semantics, so a restarted process resumes with the same pool.
type SQLite struct {
	inner *Memory
	db    *sqlx.DB
	mu    sync.Mutex
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS records (
	record_id        TEXT PRIMARY KEY,
	event_id         TEXT NOT NULL DEFAULT '',
	event_type       TEXT NOT NULL DEFAULT '',
	timestamp        TEXT NOT NULL,
	joint            TEXT NOT NULL DEFAULT 'UNKNOWN',
	collision_type   TEXT NOT NULL DEFAULT '',
	force_value      REAL,
	severity         TEXT NOT NULL,
	status           TEXT NOT NULL DEFAULT 'pending_inspection',
	confidence_flag  TEXT NOT NULL DEFAULT 'inferred',
	recurrence_count INTEGER NOT NULL DEFAULT 1,
	error_code       TEXT NOT NULL DEFAULT '',
	description      TEXT NOT NULL DEFAULT '',
	raw_payload      TEXT NOT NULL DEFAULT '',
	notes            TEXT NOT NULL DEFAULT '[]',
	triage           TEXT,
	position         INTEGER NOT NULL
);
`

func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &SQLite{inner: NewMemory(), db: db}
	if err := s.loadAll(); err != nil {
		db.Close()
		return nil, fmt.Errorf("load state: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

type recordRow struct {
	RecordID        string          `db:"record_id"`
	EventID         string          `db:"event_id"`
	EventType       string          `db:"event_type"`
	Timestamp       string          `db:"timestamp"`
	Joint           string          `db:"joint"`
	CollisionType   string          `db:"collision_type"`
	ForceValue      sql.NullFloat64 `db:"force_value"`
	Severity        string          `db:"severity"`
	Status          string          `db:"status"`
	ConfidenceFlag  string          `db:"confidence_flag"`
	RecurrenceCount int             `db:"recurrence_count"`
	ErrorCode       string          `db:"error_code"`
	Description     string          `db:"description"`
	RawPayload      string          `db:"raw_payload"`
	Notes           string          `db:"notes"`
	Triage          sql.NullString  `db:"triage"`
	Position        int             `db:"position"`
}

func (s *SQLite) loadAll() error {
	var rows []recordRow
	if err := s.db.Select(&rows, "SELECT * FROM records ORDER BY position"); err != nil {
		return err
	}
	recs := make([]*model.Record, 0, len(rows))
	for i := range rows {
		rec, err := rowToRecord(&rows[i])
		if err != nil {
			return fmt.Errorf("decode record %s: %w", rows[i].RecordID, err)
		}
		recs = append(recs, rec)
	}
	return s.inner.ReplaceAll(recs)
}

func rowToRecord(row *recordRow) (*model.Record, error) {
	ts, err := time.Parse(time.RFC3339Nano, row.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("timestamp: %w", err)
	}
	rec := &model.Record{
		RecordID:        row.RecordID,
		SourceEventID:   row.EventID,
		SourceEventType: model.EventType(row.EventType),
		Timestamp:       ts,
		Joint:           row.Joint,
		CollisionType:   model.CollisionType(row.CollisionType),
		Severity:        model.Severity(row.Severity),
		Status:          model.Status(row.Status),
		Confidence:      model.Confidence(row.ConfidenceFlag),
		RecurrenceCount: row.RecurrenceCount,
		ErrorCode:       row.ErrorCode,
		Description:     row.Description,
		RawPayload:      row.RawPayload,
	}
	if row.ForceValue.Valid {
		f := row.ForceValue.Float64
		rec.ForceValue = &f
	}
	if row.Notes != "" {
		if err := json.Unmarshal([]byte(row.Notes), &rec.Notes); err != nil {
			return nil, fmt.Errorf("notes: %w", err)
		}
	}
	if row.Triage.Valid && row.Triage.String != "" {
		var t model.TriageResult
		if err := json.Unmarshal([]byte(row.Triage.String), &t); err != nil {
			return nil, fmt.Errorf("triage: %w", err)
		}
		rec.Triage = &t
	}
	return rec, nil
}

func (s *SQLite) persistRecord(q sqlx.Execer, rec *model.Record, position int) error {
	notes, err := json.Marshal(rec.Notes)
	if err != nil {
		return err
	}
	var force any
	if rec.ForceValue != nil {
		force = *rec.ForceValue
	}
	var triage any
	if rec.Triage != nil {
		b, err := json.Marshal(rec.Triage)
		if err != nil {
			return err
		}
		triage = string(b)
	}
	_, err = q.Exec(`
		INSERT OR REPLACE INTO records
		(record_id, event_id, event_type, timestamp, joint, collision_type, force_value,
		 severity, status, confidence_flag, recurrence_count, error_code, description,
		 raw_payload, notes, triage, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RecordID, rec.SourceEventID, string(rec.SourceEventType),
		rec.Timestamp.Format(time.RFC3339Nano), rec.Joint, string(rec.CollisionType),
		force, string(rec.Severity), string(rec.Status), string(rec.Confidence),
		rec.RecurrenceCount, rec.ErrorCode, rec.Description, rec.RawPayload,
		string(notes), triage, position)
	return err
}

func (s *SQLite) Append(recs ...*model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	base := s.inner.Count()
	for i, rec := range recs {
		if err := s.persistRecord(s.db, rec, base+i); err != nil {
			return fmt.Errorf("persist record: %w", err)
		}
	}
	return s.inner.Append(recs...)
}

func (s *SQLite) List(f Filter) []*model.Record { return s.inner.List(f) }
func (s *SQLite) All() []*model.Record          { return s.inner.All() }
func (s *SQLite) Count() int                    { return s.inner.Count() }

func (s *SQLite) FindByID(id string) (*model.Record, bool) { return s.inner.FindByID(id) }

func (s *SQLite) FindBySourceEventID(id string) (*model.Record, bool) {
	return s.inner.FindBySourceEventID(id)
}

func (s *SQLite) ReplaceAll(recs []*model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM records"); err != nil {
		tx.Rollback()
		return err
	}
	for i, rec := range recs {
		if err := s.persistRecord(tx, rec, i); err != nil {
			tx.Rollback()
			return fmt.Errorf("persist record: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	return s.inner.ReplaceAll(recs)
}

func (s *SQLite) AttachTriage(recordID string, result model.TriageResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.inner.AttachTriage(recordID, result); err != nil {
		return err
	}
	b, err := json.Marshal(&result)
	if err != nil {
		return err
	}
	_, err = s.db.Exec("UPDATE records SET triage = ? WHERE record_id = ?", string(b), recordID)
	return err
}
