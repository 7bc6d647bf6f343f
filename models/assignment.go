package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AssessmentAssignment binds an assessment to a vendor and/or agent for
// completion. It is the unit the workflow engine drives through its lifecycle.
type AssessmentAssignment struct {
	ID           string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID     string `gorm:"type:uuid;not null;index:idx_assignments_tenant" json:"tenant_id"`
	AssessmentID string `gorm:"type:uuid;not null;index" json:"assessment_id"`

	VendorID string `gorm:"type:uuid" json:"vendor_id"`
	AgentID  string `gorm:"type:uuid" json:"agent_id"`

	// AssignedBy is the user who created the assignment; resubmission routing
	// prefers this user.
	AssignedBy string `gorm:"type:uuid" json:"assigned_by"`
	AssignedTo string `gorm:"type:uuid" json:"assigned_to"`

	Status string `gorm:"default:'pending';index" json:"status"`

	// WorkflowTicketID is the human-readable code (e.g. ASMT-2026-017) minted
	// when the assignment is first submitted.
	WorkflowTicketID string `gorm:"index" json:"workflow_ticket_id"`

	DueDate     *time.Time `json:"due_date"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *AssessmentAssignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// AssessmentQuestionResponse holds one answer per (assignment, question).
// Rows are upserted on every save, draft or final.
type AssessmentQuestionResponse struct {
	ID           string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID     string `gorm:"type:uuid;not null;index" json:"tenant_id"`
	AssignmentID string `gorm:"type:uuid;not null;uniqueIndex:idx_responses_assignment_question" json:"assignment_id"`
	QuestionID   string `gorm:"type:uuid;not null;uniqueIndex:idx_responses_assignment_question" json:"question_id"`

	Value   string `json:"value"`
	Comment string `json:"comment"`

	// Documents is a JSON array of evidence URLs attached to the answer.
	Documents datatypes.JSON `json:"documents"`

	OwnerID      string         `gorm:"type:uuid" json:"owner_id"`
	AIEvaluation datatypes.JSON `json:"ai_evaluation"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *AssessmentQuestionResponse) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// SubmissionRequirementResponse mirrors requirement_reference answers onto the
// agent's requirement record so onboarding and assessments share one source.
type SubmissionRequirementResponse struct {
	ID            string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID      string `gorm:"type:uuid;not null;index" json:"tenant_id"`
	AgentID       string `gorm:"type:uuid;not null;index" json:"agent_id"`
	RequirementID string `gorm:"type:uuid;not null" json:"requirement_id"`
	Value         string `json:"value"`

	// SourceResponseID points back at the assessment response the value was
	// mirrored from, when there is one.
	SourceResponseID string `gorm:"type:uuid" json:"source_response_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *SubmissionRequirementResponse) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// AssessmentWorkflowHistory records every status transition on an assignment.
type AssessmentWorkflowHistory struct {
	ID           string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID     string         `gorm:"type:uuid;not null;index" json:"tenant_id"`
	AssignmentID string         `gorm:"type:uuid;not null;index" json:"assignment_id"`
	FromStatus   string         `json:"from_status"`
	ToStatus     string         `json:"to_status"`
	ActorID      string         `gorm:"type:uuid" json:"actor_id"`
	Comment      string         `json:"comment"`
	Metadata     datatypes.JSON `json:"metadata"`
	CreatedAt    time.Time      `json:"created_at"`
}

func (h *AssessmentWorkflowHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	return nil
}
