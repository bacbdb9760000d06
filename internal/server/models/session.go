package models

import "time"

// Session is a refresh-token grant. TokenHash is the SHA-256 of the opaque
// token handed to the client; the token itself is never stored.
type Session struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Valid reports whether the session has not yet expired at now.
func (s *Session) Valid(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}
