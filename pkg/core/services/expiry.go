package services

import "time"

// IsExpired reports whether expiresAt is set and strictly before now.
func IsExpired(expiresAt *time.Time, now time.Time) bool {
	return expiresAt != nil && expiresAt.Before(now)
}
