package domain

import "time"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

type User struct {
	ID           string    `json:"id" gorm:"type:char(36);primaryKey"`
	UserName     string    `json:"userName" gorm:"size:80;not null;uniqueIndex"`
	Email        string    `json:"email" gorm:"size:160;not null;uniqueIndex"`
	PasswordHash string    `json:"-" gorm:"size:100;not null"`
	Role         Role      `json:"role" gorm:"size:20;not null;default:'customer'"`
	FullName     string    `json:"fullName" gorm:"size:160"`
	Address      string    `json:"address" gorm:"size:512"`
	PhoneNumber  string    `json:"phoneNumber" gorm:"size:40"`
	CreatedAt    time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// Principal is the authenticated identity behind a request.
type Principal struct {
	ID    string
	Role  Role
	Email string
}

// RequireRole is the single capability check used by every protected operation.
func RequireRole(p *Principal, role Role) error {
	if p == nil {
		return NewUnauthorized("unauthorized")
	}
	if p.Role != role {
		return NewForbidden("forbidden")
	}
	return nil
}
