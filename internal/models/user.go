package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Address is the optional postal address on a profile.
type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
}

// User captures application-facing fields for an account holder.
type User struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	Email             string          `json:"email"`
	Phone             string          `json:"phone,omitempty"`
	Role              Role            `json:"role"`
	Address           Address         `json:"address"`
	Balance           decimal.Decimal `json:"balance"`
	IsEmailVerified   bool            `json:"isEmailVerified"`
	UPIID             string          `json:"upiId,omitempty"`
	HasSetupUPI       bool            `json:"hasSetupUpi"`
	PasswordHash      string          `json:"-"`
	UPIPINHash        string          `json:"-"`
	VerificationToken string          `json:"-"`
	OTP               string          `json:"-"`
	OTPExpiresAt      *time.Time      `json:"-"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// UserSummary is the public view of a counterparty.
type UserSummary struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	UPIID string `json:"upiId,omitempty"`
}

// Summary returns the counterparty view of u.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, UPIID: u.UPIID}
}

// ProfileUpdate carries the optional fields a user may change on themselves.
type ProfileUpdate struct {
	Name    *string  `json:"name,omitempty"`
	Email   *string  `json:"email,omitempty"`
	Phone   *string  `json:"phone,omitempty"`
	Address *Address `json:"address,omitempty"`
}

// AdminUserUpdate extends ProfileUpdate with fields only admins may change.
type AdminUserUpdate struct {
	ProfileUpdate
	Role            *Role `json:"role,omitempty"`
	IsEmailVerified *bool `json:"isEmailVerified,omitempty"`
}
