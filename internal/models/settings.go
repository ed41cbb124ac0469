package models

// Settings are client-local preferences, persisted in local storage and
// never sent to the backend
type Settings struct {
	NotificationsEnabled  bool `json:"notificationsEnabled"`
	BirthdayNotifications bool `json:"birthdayNotifications"`
}

// DefaultSettings returns the values used when nothing is stored yet
func DefaultSettings() Settings {
	return Settings{NotificationsEnabled: true, BirthdayNotifications: true}
}
