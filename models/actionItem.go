package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActionItem is the universal inbox task row, polymorphic over its source
// entity via SourceType/SourceID.
type ActionItem struct {
	ID               string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID         string `gorm:"type:uuid;not null;index"`
	AssignedTo       string `gorm:"type:uuid;index"`
	Title            string
	Description      string `gorm:"not null"`
	SourceType       string `gorm:"index"`
	SourceID         string `gorm:"type:uuid;index"`
	WorkflowTicketID string
	Status           string `gorm:"default:'pending'"`
	Priority         string
	DueDate          *time.Time
	AssignedAt       time.Time
	CompletedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (a *ActionItem) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.AssignedAt.IsZero() {
		a.AssignedAt = time.Now()
	}
	return nil
}
