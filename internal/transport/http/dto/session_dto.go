package dto

import "time"

type ScheduleSessionRequest struct {
	MentorshipID int64     `json:"mentorship_id"`
	ScheduledAt  time.Time `json:"scheduled_at"`
	DurationMin  int       `json:"duration_min"`
	Notes        string    `json:"notes"`
}

type SessionStatusRequest struct {
	Status string `json:"status"`
}

type SessionFeedbackRequest struct {
	Feedback string `json:"feedback"`
	Rating   int    `json:"rating"`
}

type SessionResponse struct {
	ID             int64     `json:"id"`
	MentorshipID   int64     `json:"mentorship_id"`
	MentorID       int64     `json:"mentor_id"`
	MenteeID       int64     `json:"mentee_id"`
	ScheduledAt    time.Time `json:"scheduled_at"`
	DurationMin    int       `json:"duration_min"`
	Status         string    `json:"status"`
	Notes          string    `json:"notes,omitempty"`
	MentorFeedback *string   `json:"mentor_feedback,omitempty"`
	MentorRating   *int      `json:"mentor_rating,omitempty"`
	MenteeFeedback *string   `json:"mentee_feedback,omitempty"`
	MenteeRating   *int      `json:"mentee_rating,omitempty"`
}

type SessionsResponse struct {
	Items []SessionResponse `json:"items"`
}
