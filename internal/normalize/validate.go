package normalize

import (
	"fmt"

	"github.com/robomaint/triage/internal/model"
)

// Validate checks a normalized record against the schema. Invalid records are
// excluded from the pool by the caller; one bad record never aborts a batch.
func Validate(rec model.Record) (bool, []string) {
	var errs []string

	if rec.RecordID == "" {
		errs = append(errs, "missing required field: record_id")
	}
	if rec.Timestamp.IsZero() {
		errs = append(errs, "missing required field: timestamp")
	}
	if rec.Joint == "" {
		errs = append(errs, "missing required field: joint")
	}
	if !rec.Severity.Valid() {
		errs = append(errs, fmt.Sprintf("invalid severity: %q (must be low|med|high|critical)", rec.Severity))
	}
	if !rec.Status.Valid() {
		errs = append(errs, fmt.Sprintf("invalid status: %q (must be pending_inspection|under_repair|resolved)", rec.Status))
	}
	if rec.ForceValue != nil && (*rec.ForceValue < 0 || *rec.ForceValue > forceMax) {
		errs = append(errs, fmt.Sprintf("force value out of range: %.2fN (must be 0-%dN)", *rec.ForceValue, forceMax))
	}

	return len(errs) == 0, errs
}
