package domain

import "time"

// Session is the authenticated learner context. It is created once at login
// and passed by reference to whatever needs the organization, role or token.
type Session struct {
	ID             string
	UserID         string
	Email          string
	OrganizationID string
	Role           string
	AccessToken    string
	ExpiresAt      *time.Time
	CreatedAt      time.Time
}

// Expired reports whether the session token is past its expiry at now.
// Sessions without an expiry never expire locally.
func (s *Session) Expired(now time.Time) bool {
	if s == nil || s.ExpiresAt == nil {
		return false
	}
	return !now.Before(*s.ExpiresAt)
}

// DisplayID returns a short identifier for display.
func (s *Session) DisplayID() string {
	if len(s.ID) >= 8 {
		return s.ID[:8]
	}
	return s.ID
}
