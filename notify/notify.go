// Package notify holds campus-wide announcements: admin-written,
// visible to every authenticated user, newest first.
package notify

import (
	"context"
	"time"
)

type Notification struct {
	ID        string
	Title     string
	Message   string
	CreatedAt time.Time
}

type Store interface {
	CreateNotification(ctx context.Context, n Notification) error
	ListNotifications(ctx context.Context) ([]Notification, error)
}
