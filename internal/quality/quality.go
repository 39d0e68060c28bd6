// Package quality computes extraction-quality and deduplication statistics
// over a record pool. Read-only reporting; no side effects.
package quality

import (
	"math"

	"github.com/robomaint/triage/internal/dedup"
	"github.com/robomaint/triage/internal/model"
)

// Field weights for the overall extraction score.
var fieldWeights = map[string]float64{
	"timestamp":      0.25,
	"joint":          0.25,
	"severity":       0.20,
	"force_value":    0.15,
	"collision_type": 0.15,
}

// DefaultTarget is the weighted completion score a pool must meet.
const DefaultTarget = 75.0

type Report struct {
	TotalRecords  int                `json:"total_records"`
	ValidRecords  int                `json:"valid_records"`
	Accuracy      float64            `json:"accuracy"`
	FieldAccuracy map[string]float64 `json:"field_accuracy"`
	OverallScore  float64            `json:"overall_score"`
	MeetsTarget   bool               `json:"meets_target"`
}

type DedupStats struct {
	TotalRecords    int            `json:"total_records"`
	UniqueGroups    int            `json:"unique_groups"`
	Duplicates      int            `json:"duplicates"`
	DuplicationRate float64        `json:"duplication_rate"`
	RecurrenceStats map[string]int `json:"recurrence_stats"`
}

// Assess computes per-field completion rates and the weighted overall score.
// A record counts as valid when timestamp, joint, and severity are all
// present. Target <= 0 uses DefaultTarget.
func Assess(records []model.Record, target float64) Report {
	if target <= 0 {
		target = DefaultTarget
	}
	total := len(records)
	if total == 0 {
		return Report{FieldAccuracy: map[string]float64{}}
	}

	counts := map[string]int{}
	valid := 0
	for i := range records {
		rec := &records[i]
		hasTimestamp := !rec.Timestamp.IsZero()
		hasJoint := rec.Joint != "" && rec.Joint != model.JointUnknown
		hasSeverity := rec.Severity.Valid()

		if hasTimestamp {
			counts["timestamp"]++
		}
		if hasJoint {
			counts["joint"]++
		}
		if hasSeverity {
			counts["severity"]++
		}
		if rec.ForceValue != nil {
			counts["force_value"]++
		}
		if rec.CollisionType != model.CollisionNone {
			counts["collision_type"]++
		}
		if hasTimestamp && hasJoint && hasSeverity {
			valid++
		}
	}

	fieldAccuracy := make(map[string]float64, len(fieldWeights))
	weighted := 0.0
	for field, weight := range fieldWeights {
		rate := float64(counts[field]) / float64(total) * 100
		fieldAccuracy[field] = round2(rate)
		weighted += rate * weight
	}

	return Report{
		TotalRecords:  total,
		ValidRecords:  valid,
		Accuracy:      round2(float64(valid) / float64(total) * 100),
		FieldAccuracy: fieldAccuracy,
		OverallScore:  round2(weighted),
		MeetsTarget:   weighted >= target,
	}
}

// Deduplication summarizes the (joint, date) grouping of the pool. Groups
// with more than one member are reported in RecurrenceStats.
func Deduplication(records []model.Record) DedupStats {
	total := len(records)
	if total == 0 {
		return DedupStats{RecurrenceStats: map[string]int{}}
	}

	unique := dedup.BucketCount(records)
	duplicates := total - unique

	recurring := map[string]int{}
	for key, size := range dedup.GroupSizes(records) {
		if size > 1 {
			recurring[key] = size
		}
	}

	return DedupStats{
		TotalRecords:    total,
		UniqueGroups:    unique,
		Duplicates:      duplicates,
		DuplicationRate: round2(float64(duplicates) / float64(total) * 100),
		RecurrenceStats: recurring,
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
