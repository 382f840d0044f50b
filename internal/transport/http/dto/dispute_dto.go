package dto

import "time"

type DisputeCreateRequest struct {
	Type              string `json:"type"`
	Priority          string `json:"priority"`
	RespondentID      int64  `json:"respondent_id"`
	RelatedEntityType string `json:"related_entity_type"`
	RelatedEntityID   string `json:"related_entity_id"`
	Title             string `json:"title"`
	Description       string `json:"description"`
}

type DisputeCreatedResponse struct {
	ID        int64  `json:"id"`
	DisputeID string `json:"dispute_id"`
}

type DisputeAssignRequest struct {
	MediatorID int64 `json:"mediator_id"`
}

type DisputeFollowUpRequest struct {
	Description string    `json:"description"`
	AssignedTo  int64     `json:"assigned_to"`
	Deadline    time.Time `json:"deadline"`
}

type DisputeResolveRequest struct {
	ResolutionType string                   `json:"resolution_type"`
	Description    string                   `json:"description"`
	Compensation   *float64                 `json:"compensation,omitempty"`
	FollowUps      []DisputeFollowUpRequest `json:"follow_ups,omitempty"`
}

type DisputeMessageRequest struct {
	Message   string `json:"message"`
	IsPrivate bool   `json:"is_private"`
}

type DisputeEvidenceRequest struct {
	Kind      string `json:"kind"`
	ObjectKey string `json:"object_key"`
	Note      string `json:"note"`
}

type DisputeResponse struct {
	ID                 int64      `json:"id"`
	DisputeID          string     `json:"dispute_id"`
	Type               string     `json:"type"`
	Status             string     `json:"status"`
	Priority           string     `json:"priority"`
	InitiatorID        int64      `json:"initiator_id"`
	RespondentID       int64      `json:"respondent_id"`
	MediatorID         *int64     `json:"mediator_id,omitempty"`
	RelatedEntityType  string     `json:"related_entity_type,omitempty"`
	RelatedEntityID    string     `json:"related_entity_id,omitempty"`
	Title              string     `json:"title"`
	Description        string     `json:"description,omitempty"`
	ResponseDeadline   time.Time  `json:"response_deadline"`
	MediationDeadline  time.Time  `json:"mediation_deadline"`
	ResolutionDeadline time.Time  `json:"resolution_deadline"`
	ResolutionType     *string    `json:"resolution_type,omitempty"`
	ResolutionDesc     *string    `json:"resolution_desc,omitempty"`
	Compensation       *float64   `json:"compensation,omitempty"`
	ResolvedBy         *int64     `json:"resolved_by,omitempty"`
	ResolvedAt         *time.Time `json:"resolved_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

type DisputeTimelineResponse struct {
	Action    string    `json:"action"`
	ActorID   int64     `json:"actor_id,omitempty"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type DisputeMessageResponse struct {
	ID        int64     `json:"id"`
	SenderID  int64     `json:"sender_id"`
	Message   string    `json:"message"`
	IsPrivate bool      `json:"is_private"`
	CreatedAt time.Time `json:"created_at"`
}

type DisputeDetailResponse struct {
	Dispute  DisputeResponse           `json:"dispute"`
	Timeline []DisputeTimelineResponse `json:"timeline"`
	Messages []DisputeMessageResponse  `json:"messages"`
	Evidence []EvidenceItemResponse    `json:"evidence"`
}

type DisputesResponse struct {
	Items []DisputeResponse `json:"items"`
}

type DisputeStatsResponse struct {
	ByStatus          map[string]int `json:"by_status"`
	ByType            map[string]int `json:"by_type"`
	AvgResolutionSecs float64        `json:"avg_resolution_secs"`
}
