package entity

import (
	"time"

	"github.com/google/uuid"
)

type UserStatus string

const (
	UserStatusPending UserStatus = "PENDING"
	UserStatusActive  UserStatus = "ACTIVE"
	UserStatusBlocked UserStatus = "BLOCKED"
)

// User represents the centralized authentication table
type User struct {
	ID                         uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name                       string     `gorm:"type:varchar(255);not null" json:"name"`
	Email                      string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password                   string     `gorm:"type:text;not null" json:"-"`
	Phone                      string     `gorm:"type:varchar(20);not null" json:"phone"`
	Age                        *int       `json:"age,omitempty"`
	Role                       Role       `gorm:"type:varchar(20);not null;default:'patient';index" json:"role"`
	Status                     UserStatus `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	EmailVerified              bool       `gorm:"not null;default:false" json:"email_verified"`
	EmailVerificationToken     *string    `gorm:"type:varchar(128);index" json:"-"`
	EmailVerificationExpiresAt *time.Time `json:"-"`
	ResetPasswordToken         *string    `gorm:"type:varchar(128);index" json:"-"`
	ResetPasswordExpiresAt     *time.Time `json:"-"`
	CreatedAt                  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// IsBlocked checks if the account was blocked by an administrator
func (u *User) IsBlocked() bool {
	return u.Status == UserStatusBlocked
}

// MarkEmailVerified activates the account and clears the verification token
func (u *User) MarkEmailVerified() {
	u.EmailVerified = true
	u.Status = UserStatusActive
	u.EmailVerificationToken = nil
	u.EmailVerificationExpiresAt = nil
}
