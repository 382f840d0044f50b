package dto

import "time"

type FlagCreateRequest struct {
	ContentType string `json:"content_type"`
	ContentID   string `json:"content_id"`
	Reason      string `json:"reason"`
	Description string `json:"description"`
}

type FlagResolveRequest struct {
	Resolution string `json:"resolution"`
	Notes      string `json:"notes"`
}

type FlagEscalateRequest struct {
	Priority string `json:"priority"`
	Severity int    `json:"severity"`
}

type FlagDismissRequest struct {
	Notes string `json:"notes"`
}

type FlagEvidenceRequest struct {
	Kind      string `json:"kind"`
	ObjectKey string `json:"object_key"`
	Note      string `json:"note"`
}

type FlagResponse struct {
	ID           int64      `json:"id"`
	ReporterID   int64      `json:"reporter_id"`
	ContentType  string     `json:"content_type"`
	ContentID    string     `json:"content_id"`
	TargetUserID int64      `json:"target_user_id"`
	Reason       string     `json:"reason"`
	Description  string     `json:"description,omitempty"`
	Status       string     `json:"status"`
	Priority     string     `json:"priority"`
	Severity     int        `json:"severity"`
	ModeratorID  *int64     `json:"moderator_id,omitempty"`
	Resolution   *string    `json:"resolution,omitempty"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
	AutoDetected bool       `json:"auto_detected"`
	CreatedAt    time.Time  `json:"created_at"`
}

type FlagDetailResponse struct {
	Flag     FlagResponse           `json:"flag"`
	Evidence []EvidenceItemResponse `json:"evidence"`
}

type FlagsResponse struct {
	Items []FlagResponse `json:"items"`
}

type EvidenceItemResponse struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	ObjectKey string    `json:"object_key"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type EvidenceCreatedResponse struct {
	ID string `json:"id"`
}

type EvidenceURLResponse struct {
	URL string `json:"url"`
}

type FlagStatsResponse struct {
	ByStatus          map[string]int `json:"by_status"`
	ByReason          map[string]int `json:"by_reason"`
	AvgResolutionSecs float64        `json:"avg_resolution_secs"`
}
