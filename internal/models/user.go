package models

import "time"

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleEmployee:
		return true
	}
	return false
}

// User doubles as the credential and OTP store. OTP and OTPExpiresAt are
// always written and cleared together.
type User struct {
	ID            uint64     `gorm:"primarykey" json:"id"`
	Email         string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash  *string    `gorm:"type:varchar(255)" json:"-"`
	Name          string     `gorm:"type:varchar(255);not null" json:"name"`
	Role          Role       `gorm:"type:varchar(20);not null;default:'employee'" json:"role"`
	GoogleID      *string    `gorm:"column:google_id;type:varchar(255);uniqueIndex" json:"-"`
	EmailVerified bool       `gorm:"not null;default:false" json:"email_verified"`
	OTP           *string    `gorm:"column:otp;type:varchar(6)" json:"-"`
	OTPExpiresAt  *time.Time `gorm:"column:otp_expires_at" json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
