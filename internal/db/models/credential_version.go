package models

import "time"

// CredentialVersion is an immutable snapshot of a credential's state
// before a mutation. Version numbers count up from 1 per credential.
// Rows are never updated; they are deleted only in bulk when the parent
// credential is deleted.
type CredentialVersion struct {
	ID                uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CredentialID      uint      `json:"credential_id" gorm:"index;not null"`
	Version           int       `json:"version" gorm:"not null;default:1"`
	EncryptedPassword string    `json:"encrypted_password" gorm:"type:text;not null"`
	Notes             string    `json:"notes" gorm:"type:text"`
	Tags              string    `json:"tags" gorm:"type:varchar(255)"`
	CreatedAt         time.Time `json:"created_at"`
}
