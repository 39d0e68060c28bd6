// Package dedup annotates records with recurrence counts. It is not true
// deduplication: no records are dropped, because downstream scoring must see
// every occurrence to reward chronic recurrence. The shared count per
// (joint, calendar-date) bucket is the clustering signal.
package dedup

import (
	"github.com/robomaint/triage/internal/model"
)

// UnknownDateBucket groups records whose timestamp could not be resolved to a
// calendar date. Records from different joints never share a bucket; the
// joint half of the composite key is always present.
const UnknownDateBucket = "unknown"

type bucketKey struct {
	joint string
	date  string
}

// Annotate sets RecurrenceCount on every record to the size of its
// (joint, date) bucket. Single-member buckets get a count of 1. Records are
// returned in their original order; the grouping is stable across runs for a
// fixed input order.
func Annotate(records []model.Record) []model.Record {
	if len(records) == 0 {
		return records
	}

	counts := make(map[bucketKey]int, len(records))
	for i := range records {
		counts[keyOf(&records[i])]++
	}
	for i := range records {
		records[i].RecurrenceCount = counts[keyOf(&records[i])]
	}
	return records
}

// GroupSizes returns the size of every (joint, date) bucket keyed as
// "joint_date", e.g. "J3_2025-11-17".
func GroupSizes(records []model.Record) map[string]int {
	sizes := make(map[string]int, len(records))
	for i := range records {
		k := keyOf(&records[i])
		sizes[k.joint+"_"+k.date]++
	}
	return sizes
}

// BucketCount returns the number of distinct (joint, date) buckets.
func BucketCount(records []model.Record) int {
	seen := make(map[bucketKey]struct{}, len(records))
	for i := range records {
		seen[keyOf(&records[i])] = struct{}{}
	}
	return len(seen)
}

func keyOf(rec *model.Record) bucketKey {
	date := UnknownDateBucket
	if !rec.Timestamp.IsZero() {
		date = rec.Timestamp.Format("2006-01-02")
	}
	joint := rec.Joint
	if joint == "" {
		joint = model.JointUnknown
	}
	return bucketKey{joint: joint, date: date}
}
