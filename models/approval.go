package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ApprovalInstance is the multi-step sign-off chain attached to a completed
// assignment. At most one active instance exists per assignment.
type ApprovalInstance struct {
	ID           string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID     string `gorm:"type:uuid;not null;index" json:"tenant_id"`
	AssignmentID string `gorm:"type:uuid;not null;index" json:"assignment_id"`
	CurrentStep  int    `gorm:"default:1" json:"current_step"`
	Status       string `gorm:"default:'in_progress'" json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (i *ApprovalInstance) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// ApprovalStep is one configured step of an approval instance. AssignedTo or
// AssignedRole determines who may act on it.
type ApprovalStep struct {
	ID           string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID     string `gorm:"type:uuid;not null;index" json:"tenant_id"`
	InstanceID   string `gorm:"type:uuid;not null;index" json:"instance_id"`
	StepNumber   int    `json:"step_number"`
	Name         string `json:"name"`
	Status       string `gorm:"default:'pending'" json:"status"`
	AssignedTo   string `gorm:"type:uuid" json:"assigned_to"`
	AssignedRole string `json:"assigned_role"`
	DecidedBy    string `gorm:"type:uuid" json:"decided_by"`
	Comment      string `json:"comment"`
	CompletedAt  *time.Time `json:"completed_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (s *ApprovalStep) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// WorkflowConfiguration holds a tenant's ordered approval step descriptors as a
// JSON array. Steps are parsed and validated once at load via ParseSteps rather
// than re-checked field by field on every read.
type WorkflowConfiguration struct {
	ID            string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID      string         `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Name          string         `json:"name"`
	RequestType   string         `gorm:"default:'assessment_workflow'" json:"request_type"`
	IsActive      bool           `gorm:"default:true" json:"is_active"`
	WorkflowSteps datatypes.JSON `json:"workflow_steps"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (c *WorkflowConfiguration) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// StepConfig is one validated workflow step descriptor.
type StepConfig struct {
	StepNumber   int    `json:"step_number"`
	Name         string `json:"name"`
	StepType     string `json:"step_type"`
	AssignedRole string `json:"assigned_role"`
	AutoAssign   bool   `json:"auto_assign"`
}

// ParseSteps decodes and validates the configuration's workflow_steps blob,
// returning steps sorted by step_number. Step numbers must be positive and
// unique.
func (c *WorkflowConfiguration) ParseSteps() ([]StepConfig, error) {
	if len(c.WorkflowSteps) == 0 {
		return nil, fmt.Errorf("workflow configuration %s has no steps", c.ID)
	}
	var steps []StepConfig
	if err := json.Unmarshal(c.WorkflowSteps, &steps); err != nil {
		return nil, fmt.Errorf("invalid workflow_steps on configuration %s: %w", c.ID, err)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("workflow configuration %s has no steps", c.ID)
	}
	seen := make(map[int]bool, len(steps))
	for _, s := range steps {
		if s.StepNumber <= 0 {
			return nil, fmt.Errorf("workflow configuration %s: step_number must be positive, got %d", c.ID, s.StepNumber)
		}
		if seen[s.StepNumber] {
			return nil, fmt.Errorf("workflow configuration %s: duplicate step_number %d", c.ID, s.StepNumber)
		}
		seen[s.StepNumber] = true
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].StepNumber < steps[j].StepNumber })
	return steps, nil
}

// DefaultApprovalSteps is the built-in fallback used when a tenant has no
// workflow configuration: a two-step review then final approval chain.
func DefaultApprovalSteps() []StepConfig {
	return []StepConfig{
		{StepNumber: 1, Name: "Assessment Review", StepType: "approval", AssignedRole: RoleApprover, AutoAssign: true},
		{StepNumber: 2, Name: "Final Approval", StepType: "approval", AssignedRole: RoleApprover, AutoAssign: true},
	}
}
