package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/robomaint/triage/internal/model"
)

// Force thresholds (Newtons) for the severity step function.
const (
	forceMedThreshold      = 300
	forceHighThreshold     = 600
	forceCriticalThreshold = 800
	forceMax               = 10000
)

// errorCodeNames maps FANUC error codes to standardized names.
var errorCodeNames = map[string]string{
	"SRVO-160": "Torque limit reached",
	"SRVO-161": "Torque limit reached",
	"SRVO-005": "Torque limit reached",
	"SRVO-050": "Torque limit reached",
	"SRVO-062": "Torque limit reached",
	"SRVO-324": "Collision detected",
	"TEMP-100": "Temperature anomaly",
	"MOTN-019": "Motion error",
	"INTP-105": "Interpreter error",
	"PROG-048": "Program error",
}

// collisionKeywords maps collision categories to trigger keywords, checked in
// listed order against description and error code.
var collisionKeywords = []struct {
	kind     model.CollisionType
	keywords []string
}{
	{model.CollisionHardImpact, []string{"collision", "crash", "impact", "strike"}},
	{model.CollisionSoft, []string{"contact", "touch", "brush"}},
	{model.CollisionEStop, []string{"e-stop", "emergency", "estop", "emergency stop"}},
}

var jointPatterns = []*regexp.Regexp{
	regexp.MustCompile(`J([1-6])`),
	regexp.MustCompile(`AXIS\s*([1-6])`),
	regexp.MustCompile(`JOINT\s*([1-6])`),
}

var forceDescriptionRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*[Nn]`)

// Config controls the tunable parts of normalization.
type Config struct {
	// VibrationForceScale converts a vibration reading (g) into an
	// approximate force-equivalent. Tunable, not a physical law.
	VibrationForceScale float64
	// Clock supplies "now" for time-only and unparseable timestamps.
	Clock func() time.Time
	// NewID mints record IDs.
	NewID func() string
}

// Normalizer converts raw observations into canonical Records. Normalize is
// best-effort and never fails: irrecoverable fields become UNKNOWN or absent,
// each with a data-quality note.
type Normalizer struct {
	cfg Config
}

func New(cfg Config) *Normalizer {
	if cfg.VibrationForceScale == 0 {
		cfg.VibrationForceScale = 100
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	return &Normalizer{cfg: cfg}
}

func (n *Normalizer) Normalize(obs model.Observation) model.Record {
	now := n.cfg.Clock()

	ts, inferred := parseTimestamp(obs.Timestamp, now)
	joint := extractJoint(obs)
	force := n.extractForce(obs)

	rec := model.Record{
		RecordID:        n.cfg.NewID(),
		SourceEventID:   obs.EventID,
		SourceEventType: obs.EventType,
		Timestamp:       ts,
		Joint:           joint,
		CollisionType:   detectCollisionType(obs),
		ForceValue:      force,
		Severity:        calculateSeverity(obs, force),
		Status:          normalizeStatus(obs.Status),
		Confidence:      determineConfidence(obs, joint, force),
		ErrorCode:       obs.ErrorCode,
		Description:     description(obs),
		RawPayload:      rawPayload(obs),
	}

	if strings.TrimSpace(obs.Timestamp) == "" {
		rec.Notes = append(rec.Notes, "Timestamp inferred from sequence")
	} else if inferred {
		rec.Notes = append(rec.Notes, fmt.Sprintf("Timestamp %q not parseable, using processing time", obs.Timestamp))
	}
	if joint == model.JointUnknown {
		rec.Notes = append(rec.Notes, "Joint identifier not found, may need manual review")
	}
	if force == nil {
		rec.Notes = append(rec.Notes, "Force value not available, severity calculated from other indicators")
	}
	return rec
}

func description(obs model.Observation) string {
	if strings.TrimSpace(obs.Description) != "" {
		return obs.Description
	}
	return "No description"
}

func rawPayload(obs model.Observation) string {
	if obs.RawLine != "" {
		return obs.RawLine
	}
	b, err := json.Marshal(obs)
	if err != nil {
		return ""
	}
	return string(b)
}

// extractJoint scans the description for explicit joint mentions, then falls
// back to per-axis data fields, then a generic numeric axis field. First rule
// that fires wins.
func extractJoint(obs model.Observation) string {
	desc := strings.ToUpper(obs.Description)
	for _, re := range jointPatterns {
		if m := re.FindStringSubmatch(desc); m != nil {
			return "J" + m[1]
		}
	}
	for i := 1; i <= 6; i++ {
		if v, ok := obs.Data[fmt.Sprintf("axis%d", i)]; ok && v != nil {
			return fmt.Sprintf("J%d", i)
		}
	}
	for _, key := range []string{"Axis", "axis"} {
		if v, ok := obs.Data[key]; ok {
			if f, ok := toFloat(v); ok {
				axis := int(f)
				if axis >= 1 && axis <= 6 && f == float64(axis) {
					return fmt.Sprintf("J%d", axis)
				}
			}
		}
	}
	return model.JointUnknown
}

func detectCollisionType(obs model.Observation) model.CollisionType {
	desc := strings.ToLower(obs.Description)
	code := strings.ToLower(obs.ErrorCode)

	for _, group := range collisionKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(desc, kw) || strings.Contains(code, kw) {
				return group.kind
			}
		}
	}

	upperCode := strings.ToUpper(obs.ErrorCode)
	upperDesc := strings.ToUpper(obs.Description)
	if strings.Contains(upperCode, "SRVO-324") {
		return model.CollisionHardImpact
	}
	if strings.Contains(upperCode, "SRVO") && strings.Contains(upperDesc, "COLLISION") {
		return model.CollisionHardImpact
	}
	if strings.Contains(upperDesc, "E-STOP") || strings.Contains(upperDesc, "EMERGENCY") {
		return model.CollisionEStop
	}
	return model.CollisionNone
}

// extractForce checks structured fields first, scaling vibration readings into
// a force-equivalent, then falls back to a "<number> N" match in the
// description. Out-of-range values are discarded, never clamped.
func (n *Normalizer) extractForce(obs model.Observation) *float64 {
	for _, key := range []string{"force", "force_value", "torque", "vibration"} {
		v, ok := obs.Data[key]
		if !ok || v == nil {
			continue
		}
		f, ok := toFloat(v)
		if !ok {
			continue
		}
		if key == "vibration" && f > 0 {
			f *= n.cfg.VibrationForceScale
		}
		if f >= 0 && f <= forceMax {
			f = round2(f)
			return &f
		}
	}

	if m := forceDescriptionRe.FindStringSubmatch(strings.ToLower(obs.Description)); m != nil {
		f, err := strconv.ParseFloat(m[1], 64)
		if err == nil && f >= 0 && f <= forceMax {
			f = round2(f)
			return &f
		}
	}
	return nil
}

// calculateSeverity applies the force step function when a force is known,
// otherwise keyword-matches the raw severity string, otherwise defaults to
// low — bumped to med when the error code or description points at collision
// or servo trouble.
func calculateSeverity(obs model.Observation, force *float64) model.Severity {
	if force != nil {
		switch f := *force; {
		case f < forceMedThreshold:
			return model.SeverityLow
		case f < forceHighThreshold:
			return model.SeverityMed
		case f < forceCriticalThreshold:
			return model.SeverityHigh
		default:
			return model.SeverityCritical
		}
	}

	raw := strings.ToUpper(obs.Severity)
	switch {
	case strings.Contains(raw, "CRITICAL"):
		return model.SeverityCritical
	case strings.Contains(raw, "HIGH"), strings.Contains(raw, "ALERT"):
		return model.SeverityHigh
	case strings.Contains(raw, "MEDIUM"), strings.Contains(raw, "MED"), strings.Contains(raw, "WARN"):
		return model.SeverityMed
	case strings.Contains(raw, "LOW"), strings.Contains(raw, "NOTICE"), strings.Contains(raw, "INFO"):
		return model.SeverityLow
	}

	if strings.Contains(obs.ErrorCode, "SRVO") || strings.Contains(strings.ToUpper(obs.Description), "COLLISION") {
		return model.SeverityMed
	}
	return model.SeverityLow
}

// determineConfidence counts how many of timestamp, joint, force, and error
// code were actually present rather than inferred.
func determineConfidence(obs model.Observation, joint string, force *float64) model.Confidence {
	score := 0
	if strings.TrimSpace(obs.Timestamp) != "" {
		score++
	}
	if joint != model.JointUnknown {
		score++
	}
	if force != nil {
		score++
	}
	if strings.TrimSpace(obs.ErrorCode) != "" {
		score++
	}
	switch {
	case score >= 3:
		return model.ConfidenceHigh
	case score >= 2:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceInferred
	}
}

func normalizeStatus(raw string) model.Status {
	s := model.Status(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), " ", "_"))
	if s.Valid() {
		return s
	}
	return model.StatusPendingInspection
}

// StandardizeErrorCode maps a FANUC error code to its canonical name.
// Unknown codes pass through unchanged.
func StandardizeErrorCode(code string) string {
	if code == "" {
		return ""
	}
	if name, ok := errorCodeNames[code]; ok {
		return name
	}
	return code
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
