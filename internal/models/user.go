package models

// User represents a Telegram user as known to the wishlist backend
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// FullName returns the user's full name
func (u User) FullName() string {
	if u.LastName != "" {
		return u.FirstName + " " + u.LastName
	}
	return u.FirstName
}

// DisplayName returns the best display name for the user
func (u User) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	if name := u.FullName(); name != "" {
		return name
	}
	return "user"
}
