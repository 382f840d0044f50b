package dto

import "time"

type NotificationResponse struct {
	ID        int64          `json:"id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	ActionURL string         `json:"action_url,omitempty"`
	Priority  string         `json:"priority"`
	IsRead    bool           `json:"is_read"`
	CreatedAt time.Time      `json:"created_at"`
}

type NotificationsResponse struct {
	Items []NotificationResponse `json:"items"`
}

type UnreadCountResponse struct {
	Count int `json:"count"`
}
