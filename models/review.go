package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AssessmentReview is a human or AI review pass over a completed assignment.
type AssessmentReview struct {
	ID           string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID     string `gorm:"type:uuid;not null;index" json:"tenant_id"`
	AssignmentID string `gorm:"type:uuid;not null;index" json:"assignment_id"`
	ReviewerID   string `gorm:"type:uuid" json:"reviewer_id"`
	ReviewType   string `gorm:"default:'human'" json:"review_type"`
	Status       string `gorm:"default:'pending'" json:"status"`
	Summary      string `json:"summary"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (r *AssessmentReview) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// AssessmentQuestionReview is a per-question verdict. The assignment moves to
// approval only once no question review is left pending.
type AssessmentQuestionReview struct {
	ID           string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID     string `gorm:"type:uuid;not null;index" json:"tenant_id"`
	AssignmentID string `gorm:"type:uuid;not null;uniqueIndex:idx_question_reviews_pair" json:"assignment_id"`
	QuestionID   string `gorm:"type:uuid;not null;uniqueIndex:idx_question_reviews_pair" json:"question_id"`
	ReviewerID   string `gorm:"type:uuid" json:"reviewer_id"`
	Status       string `gorm:"default:'pending'" json:"status"`
	Comment      string `json:"comment"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (r *AssessmentQuestionReview) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
