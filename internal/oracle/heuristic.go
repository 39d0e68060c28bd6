package oracle

import (
	"fmt"
	"strings"

	"github.com/robomaint/triage/internal/model"
)

// Heuristic produces an Analysis with the same shape as a model response,
// derived entirely from deterministic rules over the record and its similar
// history. It is the documented substitute whenever the oracle is
// unavailable, times out, or errors.
func Heuristic(rec *model.Record, similar []model.Match) Analysis {
	priority := model.PriorityMedium
	riskScore := 50.0

	switch rec.Severity {
	case model.SeverityCritical:
		priority, riskScore = model.PriorityCritical, 90
	case model.SeverityHigh:
		priority, riskScore = model.PriorityHigh, 70
	case model.SeverityMed:
		priority, riskScore = model.PriorityMedium, 50
	case model.SeverityLow:
		priority, riskScore = model.PriorityLow, 30
	}
	if strings.Contains(strings.ToUpper(rec.Description), "CRITICAL") {
		priority, riskScore = model.PriorityCritical, 90
	}

	code := strings.ToUpper(rec.ErrorCode)
	if strings.Contains(code, "SRVO") {
		riskScore += 10
	}
	if strings.Contains(code, "TEMP") {
		riskScore += 5
	}

	urgent := 0
	for _, m := range similar {
		if m.Record.Severity == model.SeverityCritical || m.Record.Severity == model.SeverityHigh {
			urgent++
		}
	}
	if urgent > 0 {
		riskScore += min(float64(urgent)*5, 20)
	}

	riskScore = clamp(riskScore, 0, 100)

	var narrative strings.Builder
	fmt.Fprintf(&narrative, "Event type: %s. ", rec.SourceEventType)
	fmt.Fprintf(&narrative, "Severity: %s. ", rec.Severity)
	if rec.ErrorCode != "" {
		fmt.Fprintf(&narrative, "Error code: %s. ", rec.ErrorCode)
	}
	fmt.Fprintf(&narrative, "Based on analysis, this event has %s priority with a risk score of %.0f.", priority, riskScore)

	return Analysis{
		Priority:       priority,
		RiskScore:      riskScore,
		Recommendation: heuristicRecommendation(priority),
		Narrative:      narrative.String(),
		Source:         "heuristic",
	}
}

func heuristicRecommendation(priority model.Priority) string {
	switch priority {
	case model.PriorityCritical:
		return "Immediate action required. Stop operations and investigate root cause."
	case model.PriorityHigh:
		return "Schedule maintenance soon. Monitor closely for escalation."
	case model.PriorityMedium:
		return "Review during next maintenance window. Continue monitoring."
	default:
		return "Log for tracking. No immediate action needed."
	}
}
