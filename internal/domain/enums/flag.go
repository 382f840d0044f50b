package enums

type FlagReason string

const (
	FlagReasonSpam          FlagReason = "spam"
	FlagReasonFraud         FlagReason = "fraud"
	FlagReasonHarassment    FlagReason = "harassment"
	FlagReasonHateSpeech    FlagReason = "hate_speech"
	FlagReasonViolence      FlagReason = "violence"
	FlagReasonInappropriate FlagReason = "inappropriate_content"
	FlagReasonMisinfo       FlagReason = "misinformation"
	FlagReasonOther         FlagReason = "other"
)

func IsValidFlagReason(value string) bool {
	switch FlagReason(value) {
	case FlagReasonSpam, FlagReasonFraud, FlagReasonHarassment, FlagReasonHateSpeech,
		FlagReasonViolence, FlagReasonInappropriate, FlagReasonMisinfo, FlagReasonOther:
		return true
	default:
		return false
	}
}

type FlagStatus string

const (
	FlagPending     FlagStatus = "pending"
	FlagUnderReview FlagStatus = "under_review"
	FlagResolved    FlagStatus = "resolved"
	FlagDismissed   FlagStatus = "dismissed"
)

type FlagPriority string

const (
	PriorityLow    FlagPriority = "low"
	PriorityMedium FlagPriority = "medium"
	PriorityHigh   FlagPriority = "high"
	PriorityUrgent FlagPriority = "urgent"
)

func IsValidFlagPriority(value string) bool {
	switch FlagPriority(value) {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

type FlagResolution string

const (
	ResolutionContentRemoved FlagResolution = "content_removed"
	ResolutionUserSuspended  FlagResolution = "user_suspended"
	ResolutionUserBanned     FlagResolution = "user_banned"
	ResolutionWarningIssued  FlagResolution = "warning_issued"
	ResolutionContentEdited  FlagResolution = "content_edited"
	ResolutionNoAction       FlagResolution = "no_action"
)

func IsValidFlagResolution(value string) bool {
	switch FlagResolution(value) {
	case ResolutionContentRemoved, ResolutionUserSuspended, ResolutionUserBanned,
		ResolutionWarningIssued, ResolutionContentEdited, ResolutionNoAction:
		return true
	default:
		return false
	}
}

// IsPunitiveResolution reports whether a resolution counts against the
// target user for repeat-offender escalation.
func IsPunitiveResolution(value FlagResolution) bool {
	switch value {
	case ResolutionContentRemoved, ResolutionUserSuspended, ResolutionUserBanned, ResolutionWarningIssued:
		return true
	default:
		return false
	}
}

type ContentType string

const (
	ContentMessage ContentType = "message"
	ContentProject ContentType = "project"
	ContentCourse  ContentType = "course"
	ContentProfile ContentType = "profile"
	ContentReview  ContentType = "review"
)

func IsValidContentType(value string) bool {
	switch ContentType(value) {
	case ContentMessage, ContentProject, ContentCourse, ContentProfile, ContentReview:
		return true
	default:
		return false
	}
}
