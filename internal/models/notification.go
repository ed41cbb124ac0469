package models

import (
	"fmt"
	"time"
)

// NotificationType enumerates server-generated notification kinds
type NotificationType string

const (
	NotificationWishCreated    NotificationType = "wish_created"
	NotificationFriendRequest  NotificationType = "friend_request"
	NotificationFriendAccepted NotificationType = "friend_accepted"
	NotificationGiftMarked     NotificationType = "gift_marked"
	NotificationBirthday       NotificationType = "birthday"
)

// Notification is a read-only event shown in the social tab
type Notification struct {
	ID        int64            `json:"id"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message,omitempty"`
	Actor     string           `json:"actor,omitempty"`
	WishTitle string           `json:"wish_title,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// Text returns the message to display. Notifications without a message are
// composed from their actor and type.
func (n Notification) Text() string {
	if n.Message != "" {
		return n.Message
	}
	actor := n.Actor
	if actor == "" {
		actor = "Друг"
	} else {
		actor = "@" + actor
	}
	switch n.Type {
	case NotificationWishCreated:
		return fmt.Sprintf("%s добавил новое желание \"%s\"", actor, n.WishTitle)
	case NotificationFriendRequest:
		return fmt.Sprintf("%s хочет добавить вас в друзья", actor)
	case NotificationFriendAccepted:
		return fmt.Sprintf("%s принял приглашение в друзья", actor)
	case NotificationGiftMarked:
		return fmt.Sprintf("%s выбрал подарить \"%s\"", actor, n.WishTitle)
	case NotificationBirthday:
		return fmt.Sprintf("Скоро день рождения у %s", actor)
	default:
		return "Новое уведомление"
	}
}
