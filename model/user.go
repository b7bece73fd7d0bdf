package model

import "gorm.io/gorm"

const (
	RoleEmployee   = "employee"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"

	StatusActive = "active"
)

// User is the employee profile owned by the wider office application.
// Chat only reads it.
type User struct {
	gorm.Model
	Name   string `json:"name"`
	Email  string `gorm:"uniqueIndex;not null" json:"email"`
	Avatar string `json:"avatar"`
	Role   string `gorm:"not null;default:employee" json:"role"`
	Status string `gorm:"not null;default:active" json:"status"`
}
