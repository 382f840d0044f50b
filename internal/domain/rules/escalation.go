package rules

import "github.com/skillbridge/backend/internal/domain/enums"

const (
	// RepeatOffenderThreshold is the number of prior resolved flags with a
	// punitive resolution after which the target is treated as a repeat
	// offender.
	RepeatOffenderThreshold = 3

	repeatOffenderSeverity = 9
	highRiskSeverity       = 8
	mediumRiskSeverity     = 6
	defaultSeverity        = 3
)

// FlagTriage returns the auto-assigned priority and severity for a new
// content flag based on the reported reason.
func FlagTriage(reason enums.FlagReason) (enums.FlagPriority, int) {
	switch reason {
	case enums.FlagReasonHateSpeech, enums.FlagReasonViolence, enums.FlagReasonHarassment:
		return enums.PriorityHigh, highRiskSeverity
	case enums.FlagReasonSpam, enums.FlagReasonFraud:
		return enums.PriorityMedium, mediumRiskSeverity
	default:
		return enums.PriorityLow, defaultSeverity
	}
}

// RepeatOffenderTriage is the forced escalation applied when the target
// user already has RepeatOffenderThreshold punitive resolutions.
func RepeatOffenderTriage() (enums.FlagPriority, int) {
	return enums.PriorityHigh, repeatOffenderSeverity
}

// NeedsModeratorAlert reports whether a flag priority warrants immediate
// moderator fan-out.
func NeedsModeratorAlert(priority enums.FlagPriority) bool {
	return priority == enums.PriorityHigh || priority == enums.PriorityUrgent
}
