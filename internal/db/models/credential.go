package models

import "time"

// Credential is a stored username/password pair owned by one user. The
// password column only ever holds the codec's at-rest token, never
// plaintext.
type Credential struct {
	ID                uint       `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID            uint       `json:"user_id" gorm:"index;not null"`
	Username          string     `json:"username" gorm:"type:varchar(255);not null"`
	EncryptedPassword string     `json:"-" gorm:"type:text;not null"`
	Notes             string     `json:"notes" gorm:"type:text"`
	Tags              string     `json:"tags" gorm:"type:varchar(255)"`
	ExpiresAt         *time.Time `json:"expires_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}
