// Package similarity ranks historically similar records for a target record.
// Scoring is a fixed weighted formula over categorical matches plus a text
// ratio; each returned match carries the reasons that contributed, so the
// ranking stays explainable. Cost is O(pool size * description length) per
// query, which is fine for pools up to a few thousand records. Pools past
// ~10^4 would need an index; none is built here.
package similarity

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/robomaint/triage/internal/model"
)

// Scoring weights. The total for a perfect match exceeds 1.0 slightly once
// the keyword bonus is included.
const (
	weightSameType     = 0.4
	weightDescription  = 0.3
	weightSameError    = 0.2
	weightSameSeverity = 0.1
	keywordBonus       = 0.05
	keywordBonusCap    = 0.2

	DefaultThreshold = 0.3
	DefaultLimit     = 10
)

// domainKeywords is the fixed vocabulary used for the shared-keyword bonus.
var domainKeywords = []string{
	"collision", "torque", "vibration", "temperature", "servo",
	"battery", "fence", "overtravel", "singularity", "joint",
	"motor", "axis", "sensor", "network", "calibrate", "belt",
	"wiring", "lubricate", "replace", "check", "inspect",
}

type Engine struct {
	threshold float64
	limit     int
}

func New(threshold float64, limit int) *Engine {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Engine{threshold: threshold, limit: limit}
}

// FindSimilar returns the highest-scoring matches for target from pool,
// descending by score, ties broken by pool order. The target itself is
// excluded by record/source identity, never by value equality: two textually
// identical but distinct records are not the same record.
func (e *Engine) FindSimilar(target *model.Record, pool []*model.Record) []model.Match {
	targetDesc := strings.ToLower(target.Description)
	targetKeywords := extractKeywords(targetDesc)

	var matches []model.Match
	for _, cand := range pool {
		if sameIdentity(target, cand) {
			continue
		}

		score := 0.0
		var reasons []string

		if target.SourceEventType != "" && cand.SourceEventType != "" && target.SourceEventType == cand.SourceEventType {
			score += weightSameType
			reasons = append(reasons, "same_type")
		}

		candDesc := strings.ToLower(cand.Description)
		if targetDesc != "" && candDesc != "" {
			ratio := textRatio(targetDesc, candDesc)
			score += ratio * weightDescription
			if ratio > 0.3 {
				reasons = append(reasons, fmt.Sprintf("similar_description(%.2f)", ratio))
			}
		}

		if target.ErrorCode != "" && cand.ErrorCode != "" && target.ErrorCode == cand.ErrorCode {
			score += weightSameError
			reasons = append(reasons, "same_error_code")
		}

		if target.Severity != "" && cand.Severity != "" && target.Severity == cand.Severity {
			score += weightSameSeverity
			reasons = append(reasons, "same_severity")
		}

		if shared := intersect(targetKeywords, extractKeywords(candDesc)); len(shared) > 0 {
			score += math.Min(float64(len(shared))*keywordBonus, keywordBonusCap)
			reasons = append(reasons, "common_keywords: "+strings.Join(shared, ", "))
		}

		if score >= e.threshold {
			matches = append(matches, model.Match{
				Record:  cand,
				Score:   round3(score),
				Reasons: reasons,
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > e.limit {
		matches = matches[:e.limit]
	}
	return matches
}

func sameIdentity(a, b *model.Record) bool {
	if a.RecordID != "" && a.RecordID == b.RecordID {
		return true
	}
	if a.SourceEventID != "" && a.SourceEventID == b.SourceEventID {
		return true
	}
	return false
}

func extractKeywords(lowerText string) []string {
	var found []string
	for _, kw := range domainKeywords {
		if strings.Contains(lowerText, kw) {
			found = append(found, kw)
		}
	}
	return found
}

func intersect(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, s := range b {
		set[s] = struct{}{}
	}
	var out []string
	for _, s := range a {
		if _, ok := set[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
