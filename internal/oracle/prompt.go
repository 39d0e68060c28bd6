package oracle

import (
	"fmt"
	"strings"

	"github.com/robomaint/triage/internal/model"
	"github.com/robomaint/triage/internal/normalize"
)

const triageOutputContract = `REQUIRED OUTPUT FORMAT (provide all 5 sections):

1. DIAGNOSE CAUSE:
   [Explain the root cause based on force level, joint location, frequency, error patterns, and event characteristics. Be specific and technical.]

2. STEP-BY-STEP INSPECTION PROCEDURE:
   [List specific checks the technician should perform, in order. Number each step.]

3. REQUIRED MAINTENANCE ACTIONS:
   [Specify exact repairs, replacements, or adjustments needed. Include torque specifications and required tools.]

4. SAFETY CLEARANCE PROCEDURE:
   [What must be verified before restarting the robot. Include lockout verification, safety system checks, and test procedures.]

5. RETURN-TO-SERVICE CONDITIONS:
   [Specific criteria for putting the robot back online. Include test movements, verification steps, and monitoring requirements.]

CRITICAL: At the END of your response, provide these values on separate lines:
RISK_SCORE: [number 0-100]
PRIORITY: [CRITICAL or HIGH or MEDIUM or LOW]

Provide your response in clear, technician-focused language. Use controlled vocabulary and be specific. Each section should be comprehensive and actionable.`

// BuildPrompt assembles the user prompt for a record and its similar history.
func BuildPrompt(rec *model.Record, similar []model.Match, kind TemplateKind) string {
	if kind == TemplateTriage {
		return buildTriagePrompt(rec, similar)
	}
	return buildDefaultPrompt(rec, similar)
}

func buildTriagePrompt(rec *model.Record, similar []model.Match) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze the following FANUC robot event and provide a comprehensive maintenance recommendation.\n\n")
	fmt.Fprintf(&b, "EVENT TYPE: %s\n\n", strings.ToUpper(string(rec.SourceEventType)))
	fmt.Fprintf(&b, "FANUC ROBOT EVENT DETAILS:\n")
	fmt.Fprintf(&b, "- Joint: %s (J1=Base, J2=Shoulder, J3=Elbow, J4=Wrist Roll, J5=Wrist Pitch, J6=Wrist Yaw)\n", rec.Joint)
	if rec.ForceValue != nil {
		fmt.Fprintf(&b, "- Force Value: %.2fN\n", *rec.ForceValue)
	} else {
		fmt.Fprintf(&b, "- Force Value: N/A\n")
	}
	fmt.Fprintf(&b, "- Severity: %s\n", rec.Severity)
	if rec.CollisionType != model.CollisionNone {
		fmt.Fprintf(&b, "- Collision Type: %s\n", rec.CollisionType)
	}
	fmt.Fprintf(&b, "- Timestamp: %s\n", rec.Timestamp.Format("2006-01-02T15:04:05"))
	fmt.Fprintf(&b, "- Description: %s\n", rec.Description)

	if rec.ErrorCode != "" {
		fmt.Fprintf(&b, "\nFANUC Error Code: %s (%s)\n", rec.ErrorCode, normalize.StandardizeErrorCode(rec.ErrorCode))
	}

	if rec.RecurrenceCount > 1 {
		fmt.Fprintf(&b, "\nRECURRENCE WARNING: This event has occurred %d times in the last 24 hours. This suggests a chronic issue requiring immediate attention.\n", rec.RecurrenceCount)
	}

	if len(rec.Notes) > 0 {
		fmt.Fprintf(&b, "\nDATA QUALITY NOTES: %s\n", strings.Join(rec.Notes, "; "))
	}

	appendSimilarContext(&b, similar)

	b.WriteString("\n")
	b.WriteString(triageOutputContract)
	return b.String()
}

func buildDefaultPrompt(rec *model.Record, similar []model.Match) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze the following industrial robot event and provide:\n")
	fmt.Fprintf(&b, "1. Priority level (CRITICAL, HIGH, MEDIUM, LOW)\n")
	fmt.Fprintf(&b, "2. Risk assessment (0-100 score)\n")
	fmt.Fprintf(&b, "3. Recommended action\n")
	fmt.Fprintf(&b, "4. Brief analysis\n\n")
	fmt.Fprintf(&b, "Event Details:\n")
	fmt.Fprintf(&b, "- Type: %s\n", rec.SourceEventType)
	fmt.Fprintf(&b, "- Timestamp: %s\n", rec.Timestamp.Format("2006-01-02T15:04:05"))
	fmt.Fprintf(&b, "- Description: %s\n", rec.Description)
	if rec.ErrorCode != "" {
		fmt.Fprintf(&b, "- Error Code: %s\n", rec.ErrorCode)
	}
	fmt.Fprintf(&b, "- Severity: %s\n", rec.Severity)

	appendSimilarContext(&b, similar)

	b.WriteString("\nAt the end of your response, provide these values on separate lines:\n")
	b.WriteString("RISK_SCORE: [number 0-100]\n")
	b.WriteString("PRIORITY: [CRITICAL or HIGH or MEDIUM or LOW]\n")
	return b.String()
}

func appendSimilarContext(b *strings.Builder, similar []model.Match) {
	if len(similar) == 0 {
		return
	}
	fmt.Fprintf(b, "\nSIMILAR HISTORICAL EVENTS (%d found):\n", len(similar))
	for i, m := range similar {
		if i >= 3 {
			break
		}
		fmt.Fprintf(b, "%d. %s (Similarity: %.0f%%)\n", i+1, m.Record.Description, m.Score*100)
	}
}
