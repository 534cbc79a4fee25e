package domain

import "time"

// Credential is a bearer token together with its expiry. It is always replaced as a whole value.
type Credential struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Valid reports whether the credential can still be used at the given instant
func (c Credential) Valid(now time.Time) bool {
	return c.Token != "" && now.Before(c.ExpiresAt)
}
