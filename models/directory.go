package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User is a tenant member. Role drives both inbox query shape and approver
// resolution.
type User struct {
	ID       string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID string `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Email    string `gorm:"not null;index" json:"email"`
	Name     string `json:"name"`
	Role     string `gorm:"default:'vendor_user'" json:"role"`
	IsActive bool   `gorm:"default:true" json:"is_active"`

	// VendorID links vendor_user accounts to their vendor organisation.
	VendorID string `gorm:"type:uuid;index" json:"vendor_id"`

	// TeamIDs is a JSON array of team UUIDs the user belongs to.
	TeamIDs datatypes.JSON `json:"team_ids"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Vendor is a third-party organisation under governance.
type Vendor struct {
	ID              string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID        string  `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Name            string  `gorm:"not null" json:"name"`
	ContactEmail    string  `json:"contact_email"`
	ComplianceScore float64 `json:"compliance_score"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (v *Vendor) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

// Agent is an AI agent registered by a vendor and taken through onboarding.
type Agent struct {
	ID              string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID        string  `gorm:"type:uuid;not null;index" json:"tenant_id"`
	VendorID        string  `gorm:"type:uuid;index" json:"vendor_id"`
	Name            string  `gorm:"not null" json:"name"`
	AgentType       string  `json:"agent_type"`
	Description     string  `json:"description"`
	Status          string  `gorm:"default:'draft'" json:"status"`
	ComplianceScore float64 `json:"compliance_score"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (a *Agent) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
