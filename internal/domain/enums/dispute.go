package enums

type DisputeType string

const (
	DisputeProject    DisputeType = "project"
	DisputeMentorship DisputeType = "mentorship"
	DisputeCourse     DisputeType = "course"
	DisputeMessage    DisputeType = "message"
	DisputeUser       DisputeType = "user"
)

func IsValidDisputeType(value string) bool {
	switch DisputeType(value) {
	case DisputeProject, DisputeMentorship, DisputeCourse, DisputeMessage, DisputeUser:
		return true
	default:
		return false
	}
}

type DisputeStatus string

const (
	DisputeOpen        DisputeStatus = "open"
	DisputeUnderReview DisputeStatus = "under_review"
	DisputeMediation   DisputeStatus = "mediation"
	DisputeResolved    DisputeStatus = "resolved"
	DisputeClosed      DisputeStatus = "closed"
)

type ResolutionType string

const (
	DisputeResolutionRefund       ResolutionType = "refund"
	DisputeResolutionCompensation ResolutionType = "compensation"
	DisputeResolutionMediated     ResolutionType = "mediated_agreement"
	DisputeResolutionDismissedRes ResolutionType = "dismissed"
	DisputeResolutionOther        ResolutionType = "other"
)

func IsValidResolutionType(value string) bool {
	switch ResolutionType(value) {
	case DisputeResolutionRefund, DisputeResolutionCompensation,
		DisputeResolutionMediated, DisputeResolutionDismissedRes, DisputeResolutionOther:
		return true
	default:
		return false
	}
}
