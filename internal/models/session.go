package models

import "time"

// Session is the identity established once at startup
type Session struct {
	UserID    int64
	User      *User
	Token     string
	ExpiresAt *time.Time
	Demo      bool
}

// Expired reports whether the session token is known to be expired at now.
// Sessions without a token or without an expiry never expire locally.
func (s *Session) Expired(now time.Time) bool {
	return s.Token != "" && s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}

// Chrome is the host-side window setup requested for the page.
type Chrome struct {
	Expand      bool
	HeaderColor string
}
