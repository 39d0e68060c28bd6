package triage

import (
	"strings"
	"time"

	"github.com/robomaint/triage/internal/model"
)

// HeuristicScore produces a TriageResult without any oracle call. Used in
// fast batch mode, where scoring thousands of records must be instant and
// deterministic.
func HeuristicScore(rec *model.Record) model.TriageResult {
	var score float64
	var priority model.Priority

	switch rec.Severity {
	case model.SeverityCritical:
		score, priority = 90, model.PriorityCritical
	case model.SeverityHigh:
		score, priority = 75, model.PriorityHigh
	case model.SeverityMed:
		score, priority = 50, model.PriorityMedium
	default:
		score, priority = 30, model.PriorityLow

		code := strings.ToUpper(rec.ErrorCode)
		switch {
		case strings.Contains(code, "SRVO") && (strings.Contains(code, "324") || strings.Contains(strings.ToUpper(rec.Description), "COLLISION")):
			score, priority = 70, model.PriorityHigh
		case strings.Contains(code, "SRVO"):
			score, priority = 55, model.PriorityMedium
		case strings.Contains(code, "TEMP"):
			score, priority = 50, model.PriorityMedium
		case strings.Contains(code, "MOTN"), strings.Contains(code, "INTP"):
			score, priority = 45, model.PriorityMedium
		}

		if rec.SourceEventType == model.EventErrorLog && score < 50 {
			score, priority = 50, model.PriorityMedium
		}

		switch rec.CollisionType {
		case model.CollisionHardImpact:
			score, priority = 80, model.PriorityHigh
		case model.CollisionEStop:
			score, priority = 75, model.PriorityHigh
		case model.CollisionSoft:
			score, priority = 60, model.PriorityMedium
		}

		if rec.ForceValue != nil {
			switch f := *rec.ForceValue; {
			case f > 800:
				score, priority = 85, model.PriorityCritical
			case f > 600:
				score, priority = 70, model.PriorityHigh
			case f > 300:
				score, priority = 55, model.PriorityMedium
			}
		}

		switch r := rec.RecurrenceCount; {
		case r > 10:
			score = min(score+20, 100)
			if priority == model.PriorityLow {
				priority = model.PriorityMedium
			}
		case r > 5:
			score = min(score+15, 100)
		case r > 1:
			score = min(score+10, 100)
		}
	}

	return model.TriageResult{
		Score:          clamp(score, 0, 100),
		Priority:       priority,
		Recommendation: "Review event details and follow standard maintenance procedures. Run full triage for oracle-backed recommendations.",
		OracleUsed:     false,
		ScoredAt:       time.Now(),
	}
}
