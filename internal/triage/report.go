package triage

import (
	"fmt"
	"strings"

	"github.com/robomaint/triage/internal/model"
)

// BuildReportMarkdown renders a scored record as a maintenance report. The
// markdown is part of the triage envelope, not presentation: transports may
// serve it raw or render it further.
func BuildReportMarkdown(rec *model.Record) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Maintenance Triage Report\n\n")
	fmt.Fprintf(&b, "- Record ID: %s\n", rec.RecordID)
	if rec.SourceEventID != "" {
		fmt.Fprintf(&b, "- Source Event: %s\n", rec.SourceEventID)
	}
	fmt.Fprintf(&b, "- Timestamp: %s\n", rec.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "- Joint: %s\n", rec.Joint)
	fmt.Fprintf(&b, "- Severity: `%s`\n", rec.Severity)
	if rec.CollisionType != model.CollisionNone {
		fmt.Fprintf(&b, "- Collision Type: `%s`\n", rec.CollisionType)
	}
	if rec.ForceValue != nil {
		fmt.Fprintf(&b, "- Force: %.2fN\n", *rec.ForceValue)
	}
	if rec.ErrorCode != "" {
		fmt.Fprintf(&b, "- Error Code: %s\n", rec.ErrorCode)
	}
	fmt.Fprintf(&b, "- Recurrence: %d occurrence(s) in 24h window\n", rec.RecurrenceCount)
	fmt.Fprintf(&b, "- Status: %s\n", rec.Status)
	fmt.Fprintf(&b, "- Confidence: %s\n\n", rec.Confidence)

	fmt.Fprintf(&b, "## Event\n\n%s\n\n", rec.Description)

	if rec.Triage == nil {
		fmt.Fprintf(&b, "## Triage\n\nNot yet scored.\n")
		return b.String()
	}

	t := rec.Triage
	fmt.Fprintf(&b, "## Triage\n\n")
	fmt.Fprintf(&b, "- Score: **%.2f / 100**\n", t.Score)
	fmt.Fprintf(&b, "- Priority: **%s**\n", t.Priority)
	fmt.Fprintf(&b, "- Oracle-backed: %v\n\n", t.OracleUsed)
	fmt.Fprintf(&b, "### Recommendation\n\n%s\n\n", t.Recommendation)

	if t.Sections != nil {
		s := t.Sections
		fmt.Fprintf(&b, "### Diagnose Cause\n\n%s\n\n", s.DiagnoseCause)
		fmt.Fprintf(&b, "### Inspection Procedure\n\n%s\n\n", s.InspectionProcedure)
		fmt.Fprintf(&b, "### Maintenance Actions\n\n%s\n\n", s.MaintenanceActions)
		fmt.Fprintf(&b, "### Safety Clearance\n\n%s\n\n", s.SafetyClearance)
		fmt.Fprintf(&b, "### Return To Service\n\n%s\n\n", s.ReturnToService)
	}

	if len(rec.Notes) > 0 {
		fmt.Fprintf(&b, "## Data Quality Notes\n\n")
		for _, n := range rec.Notes {
			fmt.Fprintf(&b, "- %s\n", n)
		}
	}
	return b.String()
}
