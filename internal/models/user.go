package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type User struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	WalletAddress string     `gorm:"uniqueIndex;not null" json:"walletAddress"`
	Nonce         string     `json:"-"`
	IsPremium     bool       `gorm:"default:false" json:"isPremium"`
	PremiumUntil  *time.Time `json:"premiumUntil"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// HasActivePremium reports whether the premium flag is set and has not expired.
func (u User) HasActivePremium(now time.Time) bool {
	if !u.IsPremium {
		return false
	}
	return u.PremiumUntil == nil || u.PremiumUntil.After(now)
}

type JWTClaims struct {
	UserID        uint   `json:"userId"`
	WalletAddress string `json:"walletAddress"`
	jwt.RegisteredClaims
}
