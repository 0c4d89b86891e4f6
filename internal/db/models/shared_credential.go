package models

import "time"

// SharedCredential is a time-bounded grant of one credential from its
// owner to a recipient. The composite unique index keeps at most one row
// per (credential, recipient) pair even when two share requests race:
// the second insert loses at the storage layer instead of creating a
// duplicate grant.
type SharedCredential struct {
	ID               uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CredentialID     uint      `json:"credential_id" gorm:"not null;uniqueIndex:idx_share_pair,priority:1"`
	OwnerID          uint      `json:"owner_id" gorm:"index;not null"`
	SharedWithUserID uint      `json:"shared_with_user_id" gorm:"not null;uniqueIndex:idx_share_pair,priority:2"`
	CanEdit          bool      `json:"can_edit" gorm:"not null;default:false"`
	ExpiresAt        time.Time `json:"expires_at" gorm:"not null"`
	CreatedAt        time.Time `json:"created_at"`
}
