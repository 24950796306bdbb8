// Package models defines the shared domain types exchanged between the
// HTTP layer, core business logic, and storage.
package models

import "time"

// Timestamps holds the audit columns shared by all persisted entities.
type Timestamps struct {
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
