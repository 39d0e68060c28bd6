// Package triage turns oracle output into a final score and priority. The
// oracle is advisory, never authoritative: deterministic override rules
// (severity floors, recurrence boosts, similarity boosts) bound its mistakes,
// so a known-critical physical event is never under-reported regardless of
// what the model said.
package triage

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/robomaint/triage/internal/model"
	"github.com/robomaint/triage/internal/oracle"
)

type Scorer struct {
	oracle oracle.Oracle
	log    *logrus.Logger
	clock  func() time.Time
}

func NewScorer(o oracle.Oracle, log *logrus.Logger) *Scorer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Scorer{oracle: o, log: log, clock: time.Now}
}

// Score produces the TriageResult for one record. Pure given its inputs; the
// oracle call is the only point of external failure, and a failed call is
// replaced by the local heuristic, never propagated.
func (s *Scorer) Score(ctx context.Context, rec *model.Record, similar []model.Match) model.TriageResult {
	analysis, err := s.oracle.Analyze(ctx, rec, similar, oracle.TemplateTriage)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"record_id": rec.RecordID,
			"error":     err.Error(),
		}).Warn("oracle unavailable, falling back to heuristic")
		analysis = oracle.Heuristic(rec, similar)
	}

	score := applyOverrides(analysis.RiskScore, rec)
	score += similarityBoost(similar)
	score = clamp(score, 0, 100)
	score = round2(score)

	return model.TriageResult{
		Score:          score,
		Priority:       derivePriority(rec.Severity, analysis.Priority, score),
		Recommendation: analysis.Recommendation,
		Narrative:      analysis.Narrative,
		Sections:       analysis.Sections,
		OracleUsed:     analysis.Source == "model",
		Cached:         analysis.Cached,
		ScoredAt:       s.clock(),
	}
}

// applyOverrides takes the oracle score as a starting point and applies the
// severity floors and recurrence boosts in fixed order. Critical gets the
// largest boosts: chronic plus critical is the worst case.
func applyOverrides(oracleScore float64, rec *model.Record) float64 {
	score := oracleScore
	recurrence := rec.RecurrenceCount

	switch rec.Severity {
	case model.SeverityCritical:
		score = max(score, 80)
		switch {
		case recurrence > 100:
			score = 95
		case recurrence > 50:
			score = min(score+10, 100)
		case recurrence > 10:
			score = min(score+5, 100)
		case recurrence > 1:
			score = min(score+5, 100)
		}
	case model.SeverityHigh:
		score = max(score, 60)
		switch {
		case recurrence > 100:
			score = min(score+15, 100)
		case recurrence > 50:
			score = min(score+10, 100)
		case recurrence > 10:
			score = min(score+5, 100)
		case recurrence > 1:
			score = min(score+5, 100)
		}
	default:
		switch {
		case recurrence > 100:
			score = min(score+20, 100)
		case recurrence > 50:
			score = min(score+15, 100)
		case recurrence > 10:
			score = min(score+10, 100)
		case recurrence > 1:
			score = min(score+5, 100)
		}
	}
	return score
}

// similarityBoost adds urgency when the top similar history is very close:
// a near-identical pattern recurring is a reinforcing signal.
func similarityBoost(similar []model.Match) float64 {
	if len(similar) == 0 {
		return 0
	}
	n := len(similar)
	if n > 5 {
		n = 5
	}
	sum := 0.0
	for _, m := range similar[:n] {
		sum += m.Score
	}
	if sum/float64(n) > 0.8 {
		return 10
	}
	return 0
}

// derivePriority re-derives the priority tier in the same override order as
// the score floors. Only when neither severity nor the oracle determined one
// does the score-threshold mapping apply.
func derivePriority(severity model.Severity, oraclePriority model.Priority, score float64) model.Priority {
	switch severity {
	case model.SeverityCritical:
		return model.PriorityCritical
	case model.SeverityHigh:
		if oraclePriority == model.PriorityCritical {
			return model.PriorityCritical
		}
		return model.PriorityHigh
	}
	if oraclePriority != "" {
		return oraclePriority
	}
	return scoreToPriority(score)
}

func scoreToPriority(score float64) model.Priority {
	switch {
	case score >= 80:
		return model.PriorityCritical
	case score >= 60:
		return model.PriorityHigh
	case score >= 40:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
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

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
