package model

import "time"

// URLMapping is a stored short code together with its target and owner.
type URLMapping struct {
	ID        string    `json:"id"`
	ShortCode string    `json:"shortCode"`
	TargetURL string    `json:"targetURL"`
	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// OwnedBy reports whether userID is the owner of the mapping.
// An empty userID never owns anything.
func (m URLMapping) OwnedBy(userID string) bool {
	return userID != "" && m.OwnerID == userID
}

// MappingPatch describes a partial update of a mapping.
type MappingPatch struct {
	TargetURL *string
	ShortCode *string
	UpdatedAt time.Time
}

// Apply returns a copy of m with the patch applied. ID, OwnerID and
// CreatedAt are never touched.
func (p MappingPatch) Apply(m URLMapping) URLMapping {
	if p.TargetURL != nil {
		m.TargetURL = *p.TargetURL
	}
	if p.ShortCode != nil {
		m.ShortCode = *p.ShortCode
	}
	m.UpdatedAt = p.UpdatedAt
	return m
}

// ChangesCode reports whether applying the patch to m changes its short code.
func (p MappingPatch) ChangesCode(m URLMapping) bool {
	return p.ShortCode != nil && *p.ShortCode != m.ShortCode
}
