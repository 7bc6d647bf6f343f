package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog captures workflow actions for later review. Writes are best-effort
// and never fail the primary request.
type AuditLog struct {
	ID         string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID   string `gorm:"type:uuid;not null;index"`
	ActorID    string `gorm:"type:uuid"`
	Action     string `gorm:"not null"`
	EntityType string
	EntityID   string `gorm:"type:uuid"`
	Metadata   datatypes.JSON
	CreatedAt  time.Time
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
