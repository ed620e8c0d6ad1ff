package models

import "time"

// NotificationKind mirrors the two toast styles of the UI.
type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationError   NotificationKind = "error"
)

// Notification is a user-facing message produced by a mutation outcome.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Message   string           `json:"message"`
	Kind      NotificationKind `json:"kind"`
	CreatedAt time.Time        `json:"createdAt"`
}
