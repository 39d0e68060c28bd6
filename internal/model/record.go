package model

import "time"

// JointUnknown is the explicit value used when no joint could be extracted.
// It is a valid joint identifier throughout the pipeline, never a null.
const JointUnknown = "UNKNOWN"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMed      Severity = "med"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities low < med < high < critical. Unknown values rank
// below low so comparisons against valid tiers stay monotonic.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMed:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

func (s Severity) Valid() bool { return s.Rank() > 0 }

type CollisionType string

const (
	CollisionNone       CollisionType = ""
	CollisionHardImpact CollisionType = "hard_impact"
	CollisionSoft       CollisionType = "soft_collision"
	CollisionEStop      CollisionType = "emergency_stop"
)

type Status string

const (
	StatusPendingInspection Status = "pending_inspection"
	StatusUnderRepair       Status = "under_repair"
	StatusResolved          Status = "resolved"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPendingInspection, StatusUnderRepair, StatusResolved:
		return true
	}
	return false
}

type Confidence string

const (
	ConfidenceHigh     Confidence = "high"
	ConfidenceMedium   Confidence = "medium"
	ConfidenceInferred Confidence = "inferred"
)

type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityLow      Priority = "LOW"
)

type EventType string

const (
	EventSensorReading     EventType = "sensor_reading"
	EventPerformanceMetric EventType = "performance_metric"
	EventSystemAlert       EventType = "system_alert"
	EventErrorLog          EventType = "error_log"
	EventMaintenance       EventType = "maintenance"
	EventGeneric           EventType = "generic"
	EventText              EventType = "text_event"
)

// Record is the canonical unit flowing through the pipeline: one normalized
// robot observation. Created once by the normalizer, annotated in place by the
// deduplicator (RecurrenceCount) and the triage scorer (Triage).
type Record struct {
	RecordID        string        `json:"record_id" db:"record_id"`
	SourceEventID   string        `json:"event_id,omitempty" db:"event_id"`
	SourceEventType EventType     `json:"event_type" db:"event_type"`
	Timestamp       time.Time     `json:"timestamp" db:"timestamp"`
	Joint           string        `json:"joint" db:"joint"`
	CollisionType   CollisionType `json:"collision_type,omitempty" db:"collision_type"`
	ForceValue      *float64      `json:"force_value,omitempty" db:"force_value"`
	Severity        Severity      `json:"severity" db:"severity"`
	Status          Status        `json:"status" db:"status"`
	Confidence      Confidence    `json:"confidence_flag" db:"confidence_flag"`
	RecurrenceCount int           `json:"recurrence_count" db:"recurrence_count"`
	ErrorCode       string        `json:"error_code,omitempty" db:"error_code"`
	Description     string        `json:"description" db:"description"`
	RawPayload      string        `json:"raw_payload,omitempty" db:"raw_payload"`
	Notes           []string      `json:"notes,omitempty" db:"-"`

	Triage *TriageResult `json:"triage,omitempty" db:"-"`
}

// ReportSections is the five-section maintenance report the oracle is asked
// to produce for every triaged record.
type ReportSections struct {
	DiagnoseCause       string `json:"diagnose_cause"`
	InspectionProcedure string `json:"inspection_procedure"`
	MaintenanceActions  string `json:"maintenance_actions"`
	SafetyClearance     string `json:"safety_clearance"`
	ReturnToService     string `json:"return_to_service"`
}

// TriageResult is attached to a Record after scoring. It never replaces
// normalized fields; a record without one simply has not been scored yet.
type TriageResult struct {
	Score          float64         `json:"score"`
	Priority       Priority        `json:"priority"`
	Recommendation string          `json:"recommendation"`
	Narrative      string          `json:"narrative,omitempty"`
	Sections       *ReportSections `json:"maintenance_report,omitempty"`
	OracleUsed     bool            `json:"oracle_used"`
	Cached         bool            `json:"cached,omitempty"`
	ScoredAt       time.Time       `json:"scored_at"`
}

// Match is one similarity result: a candidate record, its score, and the
// reasons that contributed to it.
type Match struct {
	Record  *Record  `json:"record"`
	Score   float64  `json:"similarity_score"`
	Reasons []string `json:"match_reasons"`
}
