package models

import "time"

// FriendshipStatus represents the state of a friendship edge
type FriendshipStatus string

const (
	FriendshipStatusPending  FriendshipStatus = "pending"
	FriendshipStatusAccepted FriendshipStatus = "accepted"
)

// Friend is an accepted friendship seen from the current user's side
type Friend struct {
	User
	Status FriendshipStatus `json:"status"`
	Since  time.Time        `json:"since"`
}

// FriendRequest is a pending invitation addressed to the current user
type FriendRequest struct {
	ID          int64     `json:"id"`
	RequesterID int64     `json:"requester_id"`
	AddresseeID int64     `json:"addressee_id"`
	Requester   User      `json:"requester"`
	CreatedAt   time.Time `json:"created_at"`
}
