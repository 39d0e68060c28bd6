package oracle

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/robomaint/triage/internal/model"
)

var (
	riskScoreRe     = regexp.MustCompile(`(?i)RISK_SCORE[:\s]+(\d+)`)
	priorityRe      = regexp.MustCompile(`(?i)PRIORITY[:\s]+(CRITICAL|HIGH|MEDIUM|LOW)`)
	numberedTitleRe = regexp.MustCompile(`^\d\.`)
)

// sectionHeaders maps header keywords to report section slots, checked in
// order so "RETURN-TO-SERVICE" is not swallowed by "SAFETY".
var sectionHeaders = []struct {
	keywords []string
	assign   func(*model.ReportSections, string)
}{
	{[]string{"DIAGNOSE", "CAUSE"}, func(s *model.ReportSections, v string) { s.DiagnoseCause = v }},
	{[]string{"INSPECTION"}, func(s *model.ReportSections, v string) { s.InspectionProcedure = v }},
	{[]string{"MAINTENANCE"}, func(s *model.ReportSections, v string) { s.MaintenanceActions = v }},
	{[]string{"SAFETY"}, func(s *model.ReportSections, v string) { s.SafetyClearance = v }},
	{[]string{"RETURN", "SERVICE"}, func(s *model.ReportSections, v string) { s.ReturnToService = v }},
}

// ParseResponse turns free-form oracle text into a structured Analysis.
// Parsing is defensive throughout: a missing or malformed RISK_SCORE or
// PRIORITY sentinel falls back to a deterministic computation from the record
// itself, never an error.
func ParseResponse(text string, rec *model.Record) Analysis {
	sections := extractSections(text)

	var riskScore float64 = -1
	if m := riskScoreRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			riskScore = clamp(float64(n), 0, 100)
		}
	}

	var priority model.Priority
	if m := priorityRe.FindStringSubmatch(text); m != nil {
		priority = model.Priority(strings.ToUpper(m[1]))
	}

	basePriority, baseScore := fallbackScore(rec)
	if riskScore < 0 {
		riskScore = baseScore
	}
	if priority == "" {
		priority = basePriority
	}

	// The oracle is advisory: a known-critical physical event is never
	// reported below its floor, regardless of what the model said.
	switch {
	case rec.Severity == model.SeverityCritical && riskScore < 80:
		riskScore = max(baseScore, riskScore)
		priority = model.PriorityCritical
	case rec.Severity == model.SeverityHigh && riskScore < 60:
		riskScore = max(baseScore, riskScore)
		if priority != model.PriorityCritical {
			priority = model.PriorityHigh
		}
	}

	return Analysis{
		Priority:       priority,
		RiskScore:      riskScore,
		Recommendation: buildRecommendation(sections),
		Narrative:      text,
		Sections:       fillSectionDefaults(sections),
		Source:         "model",
	}
}

// fallbackScore computes the deterministic score/priority used when the
// oracle response carries no usable sentinels.
func fallbackScore(rec *model.Record) (model.Priority, float64) {
	force := 0.0
	if rec.ForceValue != nil {
		force = *rec.ForceValue
	}

	var priority model.Priority
	var score float64
	switch {
	case rec.Severity == model.SeverityCritical || force > 800:
		priority, score = model.PriorityCritical, 90
	case rec.Severity == model.SeverityHigh || force > 600:
		priority, score = model.PriorityHigh, 75
	case rec.Severity == model.SeverityMed || force > 300:
		priority, score = model.PriorityMedium, 50
	default:
		priority, score = model.PriorityLow, 30
	}

	// Chronic issues are more urgent.
	switch r := rec.RecurrenceCount; {
	case r > 100:
		score += 25
	case r > 50:
		score += 20
	case r > 10:
		score += 15
	case r > 5:
		score += 10
	case r > 1:
		score += 5
	}
	return priority, clamp(score, 0, 100)
}

func extractSections(text string) *model.ReportSections {
	sections := &model.ReportSections{}
	var current func(*model.ReportSections, string)
	var buf strings.Builder

	flush := func() {
		if current != nil {
			current(sections, strings.TrimSpace(buf.String()))
		}
		buf.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		upper := strings.ToUpper(line)
		if riskScoreRe.MatchString(line) || priorityRe.MatchString(line) {
			continue
		}
		matched := false
		for _, h := range sectionHeaders {
			all := true
			for _, kw := range h.keywords {
				if !strings.Contains(upper, kw) {
					all = false
					break
				}
			}
			if all && looksLikeHeader(line) {
				flush()
				current = h.assign
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		if current != nil && strings.TrimSpace(line) != "" {
			buf.WriteString(strings.TrimSpace(line))
			buf.WriteString("\n")
		}
	}
	flush()

	if *sections == (model.ReportSections{}) {
		return nil
	}
	return sections
}

// looksLikeHeader filters body lines that merely mention a header keyword.
// Headers are short and end with a colon or are fully numbered titles.
func looksLikeHeader(line string) bool {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) > 60 {
		return false
	}
	return strings.HasSuffix(trimmed, ":") || numberedTitleRe.MatchString(trimmed)
}

func buildRecommendation(sections *model.ReportSections) string {
	if sections == nil {
		return "Review event details and follow standard maintenance procedures"
	}
	var parts []string
	if sections.DiagnoseCause != "" {
		parts = append(parts, "Diagnosis: "+truncate(sections.DiagnoseCause, 200))
	}
	if sections.MaintenanceActions != "" {
		parts = append(parts, "Actions: "+truncate(sections.MaintenanceActions, 200))
	}
	if len(parts) == 0 {
		return "Review event details and follow standard maintenance procedures"
	}
	return strings.Join(parts, "\n\n")
}

func fillSectionDefaults(sections *model.ReportSections) *model.ReportSections {
	if sections == nil {
		return nil
	}
	def := func(v, fallback string) string {
		if strings.TrimSpace(v) == "" {
			return fallback
		}
		return v
	}
	sections.DiagnoseCause = def(sections.DiagnoseCause, "Analysis pending")
	sections.InspectionProcedure = def(sections.InspectionProcedure, "Standard inspection required")
	sections.MaintenanceActions = def(sections.MaintenanceActions, "Review event details")
	sections.SafetyClearance = def(sections.SafetyClearance, "Verify all safety checks")
	sections.ReturnToService = def(sections.ReturnToService, "Meet all return-to-service criteria")
	return sections
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
