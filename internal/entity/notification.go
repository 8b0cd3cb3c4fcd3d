package entity

import (
	"slices"
	"time"
)

// Notification is a broadcast record created whenever a version is appended.
type Notification struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	RegulationID string    `json:"regulation_id,omitempty"`
	VersionID    string    `json:"version_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	SeenBy       []string  `json:"seen_by"`
}

// SeenByUser reports whether username has marked the notification as seen.
func (n *Notification) SeenByUser(username string) bool {
	return slices.Contains(n.SeenBy, username)
}

// NotificationView is a notification as presented to one user.
type NotificationView struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Seen      bool      `json:"seen"`
	CreatedAt time.Time `json:"created_at"`
}
