package types

import "time"

// ShortLink maps a short code to its target URL. Only ClickCount and
// LastAccessedAt change after the record is created.
type ShortLink struct {
	Code           string     `json:"short_code" db:"code"`
	TargetURL      string     `json:"long_url" db:"target_url"`
	ExpiresAt      *time.Time `json:"expires_at" db:"expires_at"`
	ClickCount     int64      `json:"click_count" db:"click_count"`
	OwnerID        *string    `json:"owner_id" db:"owner_id"`
	LastAccessedAt *time.Time `json:"last_accessed" db:"last_accessed_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// ExpiredAt reports whether the link has an expiry at or before now.
func (l *ShortLink) ExpiredAt(now time.Time) bool {
	return l.ExpiresAt != nil && !l.ExpiresAt.After(now)
}

// Clone returns a copy that shares no pointers with l.
func (l *ShortLink) Clone() *ShortLink {
	c := *l
	c.ExpiresAt = cloneTime(l.ExpiresAt)
	c.LastAccessedAt = cloneTime(l.LastAccessedAt)
	if l.OwnerID != nil {
		owner := *l.OwnerID
		c.OwnerID = &owner
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
