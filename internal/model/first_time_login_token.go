package model

import "time"

// FirstTimeLoginToken is a one-time ticket that lets a user set their first password.
type FirstTimeLoginToken struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Token     string    `json:"-" gorm:"uniqueIndex;size:64;not null"`
	UserID    uint      `json:"userId" gorm:"not null;index"`
	ExpiresAt time.Time `json:"expiresAt" gorm:"not null;index"`
	Used      bool      `json:"used" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"createdAt"`

	// Relations
	User User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// IsExpired reports whether the token expired before now.
func (t *FirstTimeLoginToken) IsExpired(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}
