package tokencache

import "time"

// CacheVersion is incremented when the on-disk token format changes.
const CacheVersion = "v1"

// Entry is the on-disk format for one cached access token.
type Entry struct {
	Version   string    `json:"version"`
	Key       string    `json:"key"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Valid reports whether the entry holds a token that has not expired at now.
func (e Entry) Valid(now time.Time) bool {
	return e.Version == CacheVersion && e.Token != "" && now.Before(e.ExpiresAt)
}
