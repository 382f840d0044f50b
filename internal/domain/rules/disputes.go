package rules

import (
	"fmt"
	"time"
)

const (
	ResponseDeadlineDays   = 7
	MediationDeadlineDays  = 14
	ResolutionDeadlineDays = 30
)

// Deadlines holds the three computed dispute deadlines set at creation.
type Deadlines struct {
	Response   time.Time
	Mediation  time.Time
	Resolution time.Time
}

func DisputeDeadlines(createdAt time.Time) Deadlines {
	return Deadlines{
		Response:   createdAt.AddDate(0, 0, ResponseDeadlineDays),
		Mediation:  createdAt.AddDate(0, 0, MediationDeadlineDays),
		Resolution: createdAt.AddDate(0, 0, ResolutionDeadlineDays),
	}
}

// DisputeID formats the human-readable dispute identifier. The sequence
// number comes from a dedicated database sequence and is rendered modulo
// 10000 so the suffix stays four digits.
func DisputeID(createdAt time.Time, seq int64) string {
	return fmt.Sprintf("DSP-%d-%04d", createdAt.UnixMilli(), seq%10000)
}
