package actions

import (
	"context"
	"errors"
	"net/http"

	"github.com/Kerhoff/wishlist/internal/apiclient"
	"github.com/Kerhoff/wishlist/internal/models"
)

// Backend performs the mutations. *apiclient.Client implements it.
type Backend interface {
	CreateWish(ctx context.Context, wish models.NewWish) (*models.Wish, error)
	DeleteWish(ctx context.Context, wishID int64) error
	MarkGift(ctx context.Context, wishID int64) (*models.Wish, error)
	AddFriend(ctx context.Context, username string) error
	AcceptFriend(ctx context.Context, requesterID int64) error
	RemoveFriend(ctx context.Context, friendID int64) error
}

var errOffline = errors.New("demo mode has no backend")

// Offline is the backend of a session running without a server. Every
// mutation fails as unreachable.
type Offline struct{}

func offline(method, path string) error {
	return &apiclient.NetworkError{Method: method, Path: path, Err: errOffline}
}

func (Offline) CreateWish(context.Context, models.NewWish) (*models.Wish, error) {
	return nil, offline(http.MethodPost, "/wishes")
}

func (Offline) DeleteWish(context.Context, int64) error {
	return offline(http.MethodDelete, "/wishes")
}

func (Offline) MarkGift(context.Context, int64) (*models.Wish, error) {
	return nil, offline(http.MethodPut, "/wishes")
}

func (Offline) AddFriend(context.Context, string) error {
	return offline(http.MethodPost, "/friends/add")
}

func (Offline) AcceptFriend(context.Context, int64) error {
	return offline(http.MethodPost, "/friends/accept")
}

func (Offline) RemoveFriend(context.Context, int64) error {
	return offline(http.MethodDelete, "/friends")
}
