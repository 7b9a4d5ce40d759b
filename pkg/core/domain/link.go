package domain

import "time"

// ShortLink represents a short code bound to a target URL
type ShortLink struct {
	ID         string     `json:"id"`
	Code       string     `json:"short_code"`
	TargetURL  string     `json:"original_url"`
	Title      string     `json:"title,omitempty"`
	OwnerID    *string    `json:"owner_id,omitempty"`
	ClickCount int64      `json:"clicks"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// OwnedBy reports whether the link belongs to userID.
func (l *ShortLink) OwnedBy(userID *string) bool {
	if l.OwnerID == nil || userID == nil {
		return false
	}
	return *l.OwnerID == *userID
}

// LinkStats holds aggregate counters over every stored link
type LinkStats struct {
	TotalLinks  int64   `json:"total_links"`
	TotalClicks int64   `json:"total_clicks"`
	AvgClicks   float64 `json:"avg_clicks"`
}
