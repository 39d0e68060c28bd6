// Package store is the system of record for the pipeline: an append-only
// pool of normalized records for the lifetime of a processing session.
// Components receive a Repository instead of reaching into ambient state, so
// the in-memory pool and the SQLite-backed pool are interchangeable.
package store

import (
	"sync"
	"time"

	"github.com/robomaint/triage/internal/model"
)

// Filter narrows List results. Zero values match everything.
type Filter struct {
	EventType model.EventType
	Start     time.Time
	End       time.Time
	Limit     int
}

// Repository is the record pool contract. Records are appended once and then
// mutated in exactly two ways: recurrence annotation (rewritten wholesale via
// ReplaceAll after dedup) and triage attachment (AttachTriage).
type Repository interface {
	Append(recs ...*model.Record) error
	List(f Filter) []*model.Record
	All() []*model.Record
	FindByID(id string) (*model.Record, bool)
	FindBySourceEventID(id string) (*model.Record, bool)
	ReplaceAll(recs []*model.Record) error
	AttachTriage(recordID string, result model.TriageResult) error
	Count() int
}

// Memory is the reference Repository: a mutex-guarded ordered slice.
type Memory struct {
	mu   sync.Mutex
	recs []*model.Record
	byID map[string]*model.Record
}

func NewMemory() *Memory {
	return &Memory{byID: map[string]*model.Record{}}
}

func (m *Memory) Append(recs ...*model.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range recs {
		m.recs = append(m.recs, r)
		m.byID[r.RecordID] = r
	}
	return nil
}

func (m *Memory) List(f Filter) []*model.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Record
	for _, r := range m.recs {
		if f.EventType != "" && r.SourceEventType != f.EventType {
			continue
		}
		if !f.Start.IsZero() && r.Timestamp.Before(f.Start) {
			continue
		}
		if !f.End.IsZero() && r.Timestamp.After(f.End) {
			continue
		}
		out = append(out, r)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out
}

func (m *Memory) All() []*model.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Record, len(m.recs))
	copy(out, m.recs)
	return out
}

func (m *Memory) FindByID(id string) (*model.Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[id]
	return r, ok
}

func (m *Memory) FindBySourceEventID(id string) (*model.Record, bool) {
	if id == "" {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.recs {
		if r.SourceEventID == id {
			return r, true
		}
	}
	return nil, false
}

// ReplaceAll clears and rebuilds the pool. Used by full reprocessing runs.
func (m *Memory) ReplaceAll(recs []*model.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = make([]*model.Record, 0, len(recs))
	m.byID = make(map[string]*model.Record, len(recs))
	for _, r := range recs {
		m.recs = append(m.recs, r)
		m.byID[r.RecordID] = r
	}
	return nil
}

func (m *Memory) AttachTriage(recordID string, result model.TriageResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[recordID]
	if !ok {
		return ErrNotFound
	}
	r.Triage = &result
	return nil
}

func (m *Memory) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recs)
}
