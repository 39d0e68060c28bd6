// Package oracle is the recommendation oracle boundary: an external advisory
// system that produces a narrative, risk score, and priority for a record.
// The oracle is fallible by contract — unavailable, slow, or wrong — so every
// consumer treats its output as a starting point, and a documented local
// heuristic produces the same shape when it cannot be reached.
package oracle

import (
	"context"

	"github.com/robomaint/triage/internal/model"
)

type TemplateKind string

const (
	TemplateDefault TemplateKind = "default"
	TemplateTriage  TemplateKind = "triage"
)

// Analysis is the oracle's advisory output. RiskScore is 0-100; Priority may
// be empty when the oracle declined to commit to one.
type Analysis struct {
	Priority       model.Priority        `json:"priority,omitempty"`
	RiskScore      float64               `json:"risk_score"`
	Recommendation string                `json:"recommendation"`
	Narrative      string                `json:"analysis"`
	Sections       *model.ReportSections `json:"maintenance_report,omitempty"`
	Source         string                `json:"source"` // "model" or "heuristic"
	Cached         bool                  `json:"cached,omitempty"`
}

// Oracle analyzes a record in the context of its similar history. Analyze may
// fail; callers substitute Heuristic so downstream logic never special-cases
// an absent oracle.
type Oracle interface {
	Analyze(ctx context.Context, rec *model.Record, similar []model.Match, kind TemplateKind) (Analysis, error)
	Available() bool
}
