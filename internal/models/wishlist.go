package models

import "time"

// WishStatus represents the lifecycle state of a wish
type WishStatus string

const (
	WishStatusActive    WishStatus = "active"
	WishStatusFulfilled WishStatus = "fulfilled"
)

// Field limits enforced before a wish is submitted.
const (
	WishTitleMaxLen       = 100
	WishDescriptionMaxLen = 500
)

// Wish represents one item on a user's wish list
type Wish struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Price       *float64   `json:"price,omitempty"`
	Link        string     `json:"link,omitempty"`
	PhotoURL    string     `json:"photo_url,omitempty"`
	Status      WishStatus `json:"status"`
	GiftedByID  *int64     `json:"gifted_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`

	// Local marks a wish synthesized while the backend was unreachable.
	// It has never been persisted.
	Local bool `json:"-"`
}

// IsFulfilled returns true if someone has marked the wish as a gift
func (w Wish) IsFulfilled() bool {
	return w.Status == WishStatusFulfilled
}

// IsOwnedBy reports whether userID owns the wish
func (w Wish) IsOwnedBy(userID int64) bool {
	return w.UserID == userID
}

// NewWish holds the fields a user submits to create a wish
type NewWish struct {
	UserID      int64    `json:"userId"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Link        string   `json:"link,omitempty"`
}
