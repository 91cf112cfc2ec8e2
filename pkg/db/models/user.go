package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/statbricks/mbiz-backend/pkg/enums"
)

// User is an operator account scoped to one organization.
type User struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	TenantID     uuid.UUID        `gorm:"column:tenant_id;type:uuid;not null;index"`
	Email        string           `gorm:"column:email;not null;uniqueIndex"`
	PasswordHash string           `gorm:"column:password_hash;not null"`
	FirstName    string           `gorm:"column:first_name;not null"`
	LastName     string           `gorm:"column:last_name"`
	Role         enums.MemberRole `gorm:"column:role;not null;default:'staff'"`
	IsActive     bool             `gorm:"column:is_active;not null;default:true"`
	LastLoginAt  *time.Time       `gorm:"column:last_login_at"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
