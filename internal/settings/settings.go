// Package settings persists the user's client-side preferences in local
// storage. The backend never sees them.
package settings

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Kerhoff/wishlist/internal/models"
	"github.com/Kerhoff/wishlist/internal/storage"
)

// Storage keys, one boolean each.
const (
	KeyNotificationsEnabled  = "notificationsEnabled"
	KeyBirthdayNotifications = "birthdayNotifications"
)

// Store reads and writes settings for one user.
type Store struct {
	ls     storage.LocalStorage
	userID int64
}

// NewStore binds local storage to a user.
func NewStore(ls storage.LocalStorage, userID int64) *Store {
	return &Store{ls: ls, userID: userID}
}

func (s *Store) key(name string) string {
	return fmt.Sprintf("user:%d:%s", s.userID, name)
}

// Load returns the stored settings. Missing or unreadable values fall back
// to the defaults.
func (s *Store) Load(ctx context.Context) (models.Settings, error) {
	settings := models.DefaultSettings()

	var err error
	if settings.NotificationsEnabled, err = s.getBool(ctx, KeyNotificationsEnabled, settings.NotificationsEnabled); err != nil {
		return settings, err
	}
	if settings.BirthdayNotifications, err = s.getBool(ctx, KeyBirthdayNotifications, settings.BirthdayNotifications); err != nil {
		return settings, err
	}
	return settings, nil
}

// Set stores one setting and returns the full settings after the write.
func (s *Store) Set(ctx context.Context, name string, value bool) (models.Settings, error) {
	current, err := s.Load(ctx)
	if err != nil {
		return current, err
	}
	switch name {
	case KeyNotificationsEnabled:
		current.NotificationsEnabled = value
	case KeyBirthdayNotifications:
		current.BirthdayNotifications = value
	default:
		return current, fmt.Errorf("unknown setting %q", name)
	}
	if err := s.ls.SetItem(ctx, s.key(name), strconv.FormatBool(value)); err != nil {
		return current, fmt.Errorf("failed to save setting %s: %w", name, err)
	}
	return current, nil
}

func (s *Store) getBool(ctx context.Context, name string, def bool) (bool, error) {
	raw, ok, err := s.ls.GetItem(ctx, s.key(name))
	if err != nil {
		return def, fmt.Errorf("failed to load setting %s: %w", name, err)
	}
	if !ok {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def, nil
	}
	return v, nil
}
