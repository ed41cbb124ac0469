// Package source provides the data sources the loader reads from: the live
// backend and a fixed demo fixture.
package source

import (
	"context"

	"github.com/Kerhoff/wishlist/internal/apiclient"
	"github.com/Kerhoff/wishlist/internal/models"
)

// DataSource yields full snapshots of each entity for a user.
type DataSource interface {
	Wishes(ctx context.Context, userID int64) ([]models.Wish, error)
	Friends(ctx context.Context, userID int64) ([]models.Friend, error)
	PendingRequests(ctx context.Context, userID int64) ([]models.FriendRequest, error)
	Notifications(ctx context.Context, userID int64) ([]models.Notification, error)
}

// Live reads from the backend through an API client.
type Live struct {
	client *apiclient.Client
	limit  int
}

// NewLive creates a live source. limit caps the notification list; zero
// lets the backend decide.
func NewLive(client *apiclient.Client, notificationsLimit int) *Live {
	return &Live{client: client, limit: notificationsLimit}
}

func (l *Live) Wishes(ctx context.Context, userID int64) ([]models.Wish, error) {
	return l.client.Wishes(ctx, userID)
}

func (l *Live) Friends(ctx context.Context, userID int64) ([]models.Friend, error) {
	return l.client.Friends(ctx, userID)
}

func (l *Live) PendingRequests(ctx context.Context, userID int64) ([]models.FriendRequest, error) {
	return l.client.PendingRequests(ctx, userID)
}

func (l *Live) Notifications(ctx context.Context, userID int64) ([]models.Notification, error) {
	return l.client.Notifications(ctx, userID, l.limit)
}
