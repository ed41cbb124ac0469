// Package state holds the in-memory application state of one mini app
// session.
package state

import (
	"slices"

	"github.com/Kerhoff/wishlist/internal/models"
)

// Tab names the visible section of the app
type Tab string

const (
	TabWishes   Tab = "wishes"
	TabSocial   Tab = "social"
	TabSettings Tab = "settings"
)

// Tabs lists the tabs in display order.
var Tabs = []Tab{TabWishes, TabSocial, TabSettings}

// ParseTab validates a tab name.
func ParseTab(name string) (Tab, bool) {
	for _, t := range Tabs {
		if string(t) == name {
			return t, true
		}
	}
	return "", false
}

// Entity names a list the loader replaces as a whole
type Entity string

const (
	EntityWishes        Entity = "wishes"
	EntityFriends       Entity = "friends"
	EntityRequests      Entity = "requests"
	EntityNotifications Entity = "notifications"
	EntityFriendWishes  Entity = "friend_wishes"
)

// NoticeKind classifies a transient notice
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
	NoticeInfo    NoticeKind = "info"
)

// Notice is a transient message shown after an action
type Notice struct {
	ID      uint64
	Kind    NoticeKind
	Message string
}

// DemoFlags records which lists currently hold demo data
type DemoFlags struct {
	Wishes        bool `json:"wishes"`
	Friends       bool `json:"friends"`
	Requests      bool `json:"requests"`
	Notifications bool `json:"notifications"`
}

// Any reports whether any list is demo data.
func (d DemoFlags) Any() bool {
	return d.Wishes || d.Friends || d.Requests || d.Notifications
}

// FriendView is the wish list of a friend opened from the social tab
type FriendView struct {
	Friend models.User
	Wishes []models.Wish
	Demo   bool
}

// AppState is a snapshot of everything the renderer needs
type AppState struct {
	Session models.Session
	Tab     Tab
	Loaded  bool

	Wishes        []models.Wish
	Friends       []models.Friend
	Requests      []models.FriendRequest
	Notifications []models.Notification
	Demo          DemoFlags

	Settings models.Settings
	Viewing  *FriendView
	Notice   *Notice
	Busy     bool
}

// FindWish returns the wish with id from the user's own list.
func (s AppState) FindWish(id int64) (models.Wish, bool) {
	i := slices.IndexFunc(s.Wishes, func(w models.Wish) bool { return w.ID == id })
	if i < 0 {
		return models.Wish{}, false
	}
	return s.Wishes[i], true
}

// FindFriendWish returns the wish with id from the friend view.
func (s AppState) FindFriendWish(id int64) (models.Wish, bool) {
	if s.Viewing == nil {
		return models.Wish{}, false
	}
	i := slices.IndexFunc(s.Viewing.Wishes, func(w models.Wish) bool { return w.ID == id })
	if i < 0 {
		return models.Wish{}, false
	}
	return s.Viewing.Wishes[i], true
}

// HasRequestFrom reports whether a pending invitation from requesterID exists.
func (s AppState) HasRequestFrom(requesterID int64) bool {
	return slices.ContainsFunc(s.Requests, func(r models.FriendRequest) bool {
		return r.RequesterID == requesterID
	})
}

// clone copies the slices so a snapshot never aliases the store.
func (s AppState) clone() AppState {
	s.Wishes = slices.Clone(s.Wishes)
	s.Friends = slices.Clone(s.Friends)
	s.Requests = slices.Clone(s.Requests)
	s.Notifications = slices.Clone(s.Notifications)
	if s.Viewing != nil {
		v := *s.Viewing
		v.Wishes = slices.Clone(v.Wishes)
		s.Viewing = &v
	}
	if s.Notice != nil {
		n := *s.Notice
		s.Notice = &n
	}
	return s
}
