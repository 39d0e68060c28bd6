package model

// Observation is the normalized intermediate every ingestion adapter emits.
// Source-format quirks (column names, nested payloads, line formats) are
// resolved by the adapter that produced it; the normalizer only ever sees
// this shape.
type Observation struct {
	EventID     string         `json:"event_id"`
	EventType   EventType      `json:"event_type"`
	Timestamp   string         `json:"timestamp,omitempty"`
	Severity    string         `json:"severity,omitempty"`
	ErrorCode   string         `json:"error_code,omitempty"`
	Status      string         `json:"status,omitempty"`
	Description string         `json:"description,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	RawLine     string         `json:"raw_line,omitempty"`
}
