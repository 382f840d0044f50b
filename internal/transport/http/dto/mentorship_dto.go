package dto

import "time"

type MentorshipRequestRequest struct {
	MentorID       int64    `json:"mentor_id"`
	FocusAreas     []string `json:"focus_areas"`
	LearningGoals  string   `json:"learning_goals"`
	RequestMessage string   `json:"request_message"`
}

type MentorshipResponse struct {
	ID             int64      `json:"id"`
	MentorID       int64      `json:"mentor_id"`
	MenteeID       int64      `json:"mentee_id"`
	FocusAreas     []string   `json:"focus_areas"`
	LearningGoals  string     `json:"learning_goals,omitempty"`
	RequestMessage string     `json:"request_message,omitempty"`
	Status         string     `json:"status"`
	SessionCount   int        `json:"session_count"`
	CreatedAt      time.Time  `json:"created_at"`
	RespondedAt    *time.Time `json:"responded_at,omitempty"`
	StartDate      *time.Time `json:"start_date,omitempty"`
}

type MentorshipsResponse struct {
	Items []MentorshipResponse `json:"items"`
}

type IDResponse struct {
	ID int64 `json:"id"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}
