package domain

import "time"

// ContentPack is the versioned namespace every catalog row belongs to.
// Activation is decided at startup; toggling a pack mid-process is not
// supported.
type ContentPack struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Version     string    `json:"version"`
	Author      string    `json:"author,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks the identity fields of a pack.
func (p ContentPack) Validate() error {
	if p.ID == "" {
		return &ValidationError{Field: "id", Value: p.ID, Msg: "must not be empty"}
	}
	if p.Version == "" {
		return &ValidationError{Field: "version", Value: p.Version, Msg: "must not be empty"}
	}
	return nil
}
