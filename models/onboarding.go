package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OnboardingRequest tracks a per-agent onboarding workflow, independent of
// assessments but surfaced in the same inbox.
type OnboardingRequest struct {
	ID          string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID    string `gorm:"type:uuid;not null;index" json:"tenant_id"`
	AgentID     string `gorm:"type:uuid;not null;index" json:"agent_id"`
	RequestedBy string `gorm:"type:uuid" json:"requested_by"`
	AssignedTo  string `gorm:"type:uuid;index" json:"assigned_to"`
	Status      string `gorm:"default:'pending'" json:"status"`
	CurrentStep int    `gorm:"default:1" json:"current_step"`

	// WorkflowSteps mirrors the WorkflowConfiguration step shape so the inbox
	// can classify the current step as approval vs review.
	WorkflowSteps datatypes.JSON `json:"workflow_steps"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *OnboardingRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// CurrentStepConfig returns the step descriptor matching CurrentStep, if the
// request carries a parseable step list.
func (r *OnboardingRequest) CurrentStepConfig() *StepConfig {
	cfg := WorkflowConfiguration{ID: r.ID, WorkflowSteps: r.WorkflowSteps}
	steps, err := cfg.ParseSteps()
	if err != nil {
		return nil
	}
	for i := range steps {
		if steps[i].StepNumber == r.CurrentStep {
			return &steps[i]
		}
	}
	return nil
}

// Ticket is a generic support/ops ticket assigned to a user.
type Ticket struct {
	ID         string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID   string `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Code       string `json:"code"`
	Subject    string `gorm:"not null" json:"subject"`
	Status     string `gorm:"default:'open'" json:"status"`
	Priority   string `json:"priority"`
	AssignedTo string `gorm:"type:uuid;index" json:"assigned_to"`
	DueDate    *time.Time `json:"due_date"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (t *Ticket) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// Message is a direct or public note on a resource. Unread messages directed
// at a user (or public ones) appear in the inbox.
type Message struct {
	ID           string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID     string `gorm:"type:uuid;not null;index" json:"tenant_id"`
	SenderID     string `gorm:"type:uuid" json:"sender_id"`
	RecipientID  string `gorm:"type:uuid;index" json:"recipient_id"`
	ResourceType string `json:"resource_type"`
	ResourceID   string `gorm:"type:uuid" json:"resource_id"`
	Body         string `json:"body"`
	IsPublic     bool   `gorm:"default:false" json:"is_public"`
	Read         bool   `gorm:"default:false" json:"read"`
	CreatedAt    time.Time `json:"created_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
