package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Assessment is a named questionnaire template owned by a tenant.
type Assessment struct {
	// ID is a unique identifier for the assessment, stored as a UUID in the database.
	ID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`

	// TenantID scopes the assessment; nearly every query filters on it.
	TenantID string `gorm:"type:uuid;not null;index:idx_assessments_tenant" json:"tenant_id"`

	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`

	// OwnerID is the user who created the assessment and is first in line
	// for approval routing.
	OwnerID string `gorm:"type:uuid" json:"owner_id"`

	// TeamIDs is a JSON array of team UUIDs allowed to manage the assessment.
	TeamIDs datatypes.JSON `json:"team_ids"`

	// Schedule is an optional recurrence descriptor (e.g. "quarterly").
	Schedule string `json:"schedule"`

	// IsActive is flipped to false on delete; rows are never hard-deleted.
	IsActive bool `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Assessment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// AssessmentQuestion belongs to one assessment. Questions are either authored
// in place (new_question) or reference a requirement from the tenant library.
type AssessmentQuestion struct {
	ID           string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID     string `gorm:"type:uuid;not null;index" json:"tenant_id"`
	AssessmentID string `gorm:"type:uuid;not null;index:idx_questions_assessment" json:"assessment_id"`

	QuestionType string `gorm:"default:'new_question'" json:"question_type"`

	// RequirementID is set only for requirement_reference questions; answers
	// to those are mirrored into SubmissionRequirementResponse.
	RequirementID string `gorm:"type:uuid" json:"requirement_id"`

	Text            string         `gorm:"not null" json:"text"`
	Section         string         `json:"section"`
	DisplayOrder    int            `json:"display_order"`
	Required        bool           `json:"required"`
	ValidationRules datatypes.JSON `json:"validation_rules"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (q *AssessmentQuestion) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}

// LibraryQuestion is a tenant-level reusable question. Bulk population copies
// library rows into AssessmentQuestion rows for a given assessment.
type LibraryQuestion struct {
	ID              string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID        string         `gorm:"type:uuid;not null;index" json:"tenant_id"`
	QuestionType    string         `gorm:"default:'new_question'" json:"question_type"`
	RequirementID   string         `gorm:"type:uuid" json:"requirement_id"`
	Text            string         `gorm:"not null" json:"text"`
	Section         string         `json:"section"`
	Required        bool           `json:"required"`
	ValidationRules datatypes.JSON `json:"validation_rules"`
	CreatedAt       time.Time      `json:"created_at"`
}

func (q *LibraryQuestion) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}
