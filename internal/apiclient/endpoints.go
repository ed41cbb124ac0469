package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/Kerhoff/wishlist/internal/models"
)

// ---------------------------------------------------------------------------
// Wishes
// ---------------------------------------------------------------------------

// Wishes lists the wishes owned by userID.
func (c *Client) Wishes(ctx context.Context, userID int64) ([]models.Wish, error) {
	data, err := c.Request(ctx, http.MethodGet, "/wishes?userId="+strconv.FormatInt(userID, 10), nil)
	if err != nil {
		return nil, err
	}
	var wishes []models.Wish
	if err := decodeField(data, "wishes", &wishes, true); err != nil {
		return nil, err
	}
	return wishes, nil
}

// CreateWish creates a wish and returns the stored record.
func (c *Client) CreateWish(ctx context.Context, wish models.NewWish) (*models.Wish, error) {
	data, err := c.Request(ctx, http.MethodPost, "/wishes", wish)
	if err != nil {
		return nil, err
	}
	var created models.Wish
	if err := decodeField(data, "wish", &created, false); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteWish deletes one of the session user's wishes.
func (c *Client) DeleteWish(ctx context.Context, wishID int64) error {
	_, err := c.Request(ctx, http.MethodDelete, fmt.Sprintf("/wishes/%d", wishID), nil)
	return err
}

type giftRequest struct {
	UserID int64 `json:"userId"`
}

// MarkGift marks somebody else's wish as the gift the session user will give.
func (c *Client) MarkGift(ctx context.Context, wishID int64) (*models.Wish, error) {
	data, err := c.Request(ctx, http.MethodPut, fmt.Sprintf("/wishes/%d/gift", wishID),
		giftRequest{UserID: c.session.UserID})
	if err != nil {
		return nil, err
	}
	var updated models.Wish
	if err := decodeField(data, "wish", &updated, false); err != nil {
		return nil, err
	}
	return &updated, nil
}

// ---------------------------------------------------------------------------
// Friends
// ---------------------------------------------------------------------------

// Friends lists the accepted friends of userID.
func (c *Client) Friends(ctx context.Context, userID int64) ([]models.Friend, error) {
	data, err := c.Request(ctx, http.MethodGet, fmt.Sprintf("/friends/%d", userID), nil)
	if err != nil {
		return nil, err
	}
	var friends []models.Friend
	if err := decodeField(data, "friends", &friends, true); err != nil {
		return nil, err
	}
	return friends, nil
}

// PendingRequests lists invitations addressed to userID.
func (c *Client) PendingRequests(ctx context.Context, userID int64) ([]models.FriendRequest, error) {
	data, err := c.Request(ctx, http.MethodGet, fmt.Sprintf("/friends/%d/pending", userID), nil)
	if err != nil {
		return nil, err
	}
	var requests []models.FriendRequest
	if err := decodeField(data, "requests", &requests, true); err != nil {
		return nil, err
	}
	return requests, nil
}

type addFriendRequest struct {
	UserID         int64  `json:"userId"`
	FriendUsername string `json:"friendUsername"`
}

// AddFriend sends an invitation to the user with the given username.
func (c *Client) AddFriend(ctx context.Context, username string) error {
	_, err := c.Request(ctx, http.MethodPost, "/friends/add",
		addFriendRequest{UserID: c.session.UserID, FriendUsername: username})
	return err
}

type acceptFriendRequest struct {
	UserID   int64 `json:"userId"`
	FriendID int64 `json:"friendId"`
}

// AcceptFriend accepts the invitation sent by requesterID.
func (c *Client) AcceptFriend(ctx context.Context, requesterID int64) error {
	_, err := c.Request(ctx, http.MethodPost, "/friends/accept",
		acceptFriendRequest{UserID: c.session.UserID, FriendID: requesterID})
	return err
}

// RemoveFriend rejects a pending invitation from, or removes an accepted
// friendship with, friendID.
func (c *Client) RemoveFriend(ctx context.Context, friendID int64) error {
	_, err := c.Request(ctx, http.MethodDelete, fmt.Sprintf("/friends/%d", friendID), nil)
	return err
}

// ---------------------------------------------------------------------------
// Notifications
// ---------------------------------------------------------------------------

// Notifications lists the newest notifications of userID.
func (c *Client) Notifications(ctx context.Context, userID int64, limit int) ([]models.Notification, error) {
	path := fmt.Sprintf("/notifications/%d", userID)
	if limit > 0 {
		path += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}
	data, err := c.Request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var notifications []models.Notification
	if err := decodeField(data, "notifications", &notifications, true); err != nil {
		return nil, err
	}
	return notifications, nil
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

type verifyRequest struct {
	InitData string `json:"initData"`
}

// Verify exchanges host-issued launch data for the verified user and a
// session token.
func (c *Client) Verify(ctx context.Context, initData string) (*models.User, string, error) {
	data, err := c.Request(ctx, http.MethodPost, "/auth/verify", verifyRequest{InitData: initData})
	if err != nil {
		return nil, "", err
	}
	var user models.User
	if err := decodeField(data, "user", &user, false); err != nil {
		return nil, "", err
	}
	token := gjson.GetBytes(data, "token")
	if token.Type != gjson.String {
		return nil, "", fmt.Errorf("%w: missing %q", ErrMalformedResponse, "token")
	}
	return &user, token.String(), nil
}
