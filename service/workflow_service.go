package services

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	model "github.com/vakaflow-ai/vakaflow/models"
	"gorm.io/gorm"
)

// WorkflowService is the approval workflow engine. It reads a tenant's step
// configuration, drives ApprovalInstance/ApprovalStep rows through the chain,
// and fans out action items to resolved approvers.
type WorkflowService struct {
	db *gorm.DB
}

func NewWorkflowService(db *gorm.DB) *WorkflowService {
	return &WorkflowService{db: db}
}

// ResolveStepConfigs picks the step list for a tenant's assessment workflow.
// Resolution order: process mapping -> tenant default configuration -> the
// built-in two-step fallback. A configuration that fails validation is logged
// and skipped, never fatal.
func (s *WorkflowService) ResolveStepConfigs(tenantID string) []model.StepConfig {
	var mapping model.ProcessMapping
	err := s.db.Where("tenant_id = ? AND request_type = ? AND is_active = ?", tenantID, "assessment_workflow", true).
		First(&mapping).Error
	if err == nil {
		if configID := mapping.LayoutIDForStage("workflow_configuration"); configID != "" {
			var config model.WorkflowConfiguration
			if err := s.db.Where("id = ? AND tenant_id = ?", configID, tenantID).First(&config).Error; err == nil {
				if steps, err := config.ParseSteps(); err == nil {
					return steps
				} else {
					log.Printf("[ResolveStepConfigs] Mapped configuration %s invalid: %v", configID, err)
				}
			}
		}
	}

	var config model.WorkflowConfiguration
	err = s.db.Where("tenant_id = ? AND request_type = ? AND is_active = ?", tenantID, "assessment_workflow", true).
		Order("updated_at DESC").First(&config).Error
	if err == nil {
		if steps, err := config.ParseSteps(); err == nil {
			return steps
		} else {
			log.Printf("[ResolveStepConfigs] Tenant %s default configuration invalid: %v", tenantID, err)
		}
	}

	return model.DefaultApprovalSteps()
}

// StartApproval creates the approval chain for a completed assignment and
// creates action items for the first step's approvers. If an active instance
// already exists it is returned unchanged.
func (s *WorkflowService) StartApproval(tenantID string, assignment *model.AssessmentAssignment, submitterID string) (*model.ApprovalInstance, error) {
	var existing model.ApprovalInstance
	err := s.db.Where("tenant_id = ? AND assignment_id = ? AND status = ?",
		tenantID, assignment.ID, model.ApprovalStatusInProgress).First(&existing).Error
	if err == nil {
		log.Printf("[StartApproval] Active approval instance %s already exists for assignment %s", existing.ID, assignment.ID)
		return &existing, nil
	}

	steps := s.ResolveStepConfigs(tenantID)

	instance := model.ApprovalInstance{
		TenantID:     tenantID,
		AssignmentID: assignment.ID,
		CurrentStep:  steps[0].StepNumber,
		Status:       model.ApprovalStatusInProgress,
	}
	if err := s.db.Create(&instance).Error; err != nil {
		return nil, fmt.Errorf("failed to create approval instance: %w", err)
	}

	for i, cfg := range steps {
		status := model.StepStatusPending
		if i == 0 {
			status = model.StepStatusInProgress
		}
		step := model.ApprovalStep{
			TenantID:     tenantID,
			InstanceID:   instance.ID,
			StepNumber:   cfg.StepNumber,
			Name:         cfg.Name,
			Status:       status,
			AssignedRole: cfg.AssignedRole,
		}
		if err := s.db.Create(&step).Error; err != nil {
			return nil, fmt.Errorf("failed to create approval step %d: %w", cfg.StepNumber, err)
		}
	}

	if steps[0].AutoAssign {
		approvers := s.ResolveApprovers(tenantID, assignment, submitterID)
		s.CreateApproverItems(tenantID, assignment, steps[0].Name, approvers, submitterID)
	}

	log.Printf("[StartApproval] Created approval instance %s with %d steps for assignment %s",
		instance.ID, len(steps), assignment.ID)
	return &instance, nil
}

// AdvanceOrFinish completes the current step and either moves the instance to
// the next configured step (accept with a next step) or marks it terminal.
// It returns true when the instance reached a terminal state.
func (s *WorkflowService) AdvanceOrFinish(instance *model.ApprovalInstance, assignment *model.AssessmentAssignment, accepted bool, actorID, comment, submitterID string) (bool, error) {
	now := time.Now()

	var step model.ApprovalStep
	err := s.db.Where("instance_id = ? AND step_number = ?", instance.ID, instance.CurrentStep).First(&step).Error
	if err == nil {
		step.Status = model.StepStatusCompleted
		step.DecidedBy = actorID
		step.Comment = comment
		step.CompletedAt = &now
		step.UpdatedAt = now
		if err := s.db.Save(&step).Error; err != nil {
			return false, fmt.Errorf("failed to complete approval step: %w", err)
		}
	} else {
		log.Printf("[AdvanceOrFinish] No step row for instance %s step %d: %v", instance.ID, instance.CurrentStep, err)
	}

	steps := s.ResolveStepConfigs(instance.TenantID)
	var next *model.StepConfig
	if accepted {
		for i := range steps {
			if steps[i].StepNumber > instance.CurrentStep {
				next = &steps[i]
				break
			}
		}
	}

	if next == nil {
		instance.Status = model.ApprovalStatusApproved
		if !accepted {
			instance.Status = model.ApprovalStatusRejected
		}
		instance.UpdatedAt = now
		if err := s.db.Save(instance).Error; err != nil {
			return false, fmt.Errorf("failed to finish approval instance: %w", err)
		}
		log.Printf("[AdvanceOrFinish] Instance %s terminal: %s", instance.ID, instance.Status)
		return true, nil
	}

	instance.CurrentStep = next.StepNumber
	instance.UpdatedAt = now
	if err := s.db.Save(instance).Error; err != nil {
		return false, fmt.Errorf("failed to advance approval instance: %w", err)
	}

	var nextStep model.ApprovalStep
	err = s.db.Where("instance_id = ? AND step_number = ?", instance.ID, next.StepNumber).First(&nextStep).Error
	if err != nil {
		nextStep = model.ApprovalStep{
			TenantID:     instance.TenantID,
			InstanceID:   instance.ID,
			StepNumber:   next.StepNumber,
			Name:         next.Name,
			AssignedRole: next.AssignedRole,
		}
	}
	nextStep.Status = model.StepStatusInProgress
	nextStep.UpdatedAt = now
	if nextStep.ID == "" {
		if err := s.db.Create(&nextStep).Error; err != nil {
			return false, fmt.Errorf("failed to create next approval step: %w", err)
		}
	} else if err := s.db.Save(&nextStep).Error; err != nil {
		return false, fmt.Errorf("failed to activate next approval step: %w", err)
	}

	if next.AutoAssign {
		approvers := s.ResolveApprovers(instance.TenantID, assignment, submitterID)
		s.CreateApproverItems(instance.TenantID, assignment, next.Name, approvers, submitterID)
	}

	log.Printf("[AdvanceOrFinish] Instance %s advanced to step %d (%s)", instance.ID, next.StepNumber, next.Name)
	return false, nil
}

// ResolveApprovers picks the users who should act on an approval step. The
// chain widens from the assessment owner out to any active tenant user; the
// submitter is always excluded from their own approval queue.
func (s *WorkflowService) ResolveApprovers(tenantID string, assignment *model.AssessmentAssignment, submitterID string) []model.User {
	var assessment model.Assessment
	if err := s.db.Where("id = ? AND tenant_id = ?", assignment.AssessmentID, tenantID).First(&assessment).Error; err != nil {
		log.Printf("[ResolveApprovers] Error fetching assessment %s: %v", assignment.AssessmentID, err)
	}

	// Tier 1: the assessment owner, when the owner holds an approver role.
	if assessment.OwnerID != "" && assessment.OwnerID != submitterID {
		var owner model.User
		if err := s.db.Where("id = ? AND tenant_id = ? AND is_active = ?", assessment.OwnerID, tenantID, true).First(&owner).Error; err == nil {
			if owner.Role == model.RoleApprover || model.IsAdminRole(owner.Role) {
				return []model.User{owner}
			}
		}
	}

	// Tier 2: team members with approver-capable roles.
	teamIDs := decodeIDList(assessment.TeamIDs)
	if len(teamIDs) > 0 {
		var candidates []model.User
		if err := s.db.Where("tenant_id = ? AND is_active = ?", tenantID, true).Find(&candidates).Error; err != nil {
			log.Printf("[ResolveApprovers] Error fetching tenant users: %v", err)
		}
		var team []model.User
		for _, u := range candidates {
			if u.ID == submitterID || !model.IsApproverRole(u.Role) {
				continue
			}
			if intersects(decodeIDList(u.TeamIDs), teamIDs) {
				team = append(team, u)
			}
		}
		if len(team) > 0 {
			return team
		}
	}

	// Tier 3: every tenant approver/reviewer plus platform admins.
	var pool []model.User
	err := s.db.Where("tenant_id = ? AND is_active = ? AND role IN ?",
		tenantID, true, []string{model.RoleApprover, model.RoleReviewer, model.RolePlatformAdmin}).
		Find(&pool).Error
	if err != nil {
		log.Printf("[ResolveApprovers] Error fetching approver pool: %v", err)
	}
	pool = excludeUser(pool, submitterID)
	if len(pool) > 0 {
		return pool
	}

	// Tier 4: fallback chain tenant_admin -> any active user -> owner.
	var admins []model.User
	if err := s.db.Where("tenant_id = ? AND is_active = ? AND role = ?", tenantID, true, model.RoleTenantAdmin).
		Find(&admins).Error; err == nil {
		admins = excludeUser(admins, submitterID)
		if len(admins) > 0 {
			return admins
		}
	}

	var anyone []model.User
	if err := s.db.Where("tenant_id = ? AND is_active = ?", tenantID, true).Find(&anyone).Error; err == nil {
		anyone = excludeUser(anyone, submitterID)
		if len(anyone) > 0 {
			return anyone
		}
	}

	if assessment.OwnerID != "" && assessment.OwnerID != submitterID {
		var owner model.User
		if err := s.db.Where("id = ?", assessment.OwnerID).First(&owner).Error; err == nil {
			return []model.User{owner}
		}
	}

	log.Printf("[ResolveApprovers] No approver candidates for tenant %s assignment %s", tenantID, assignment.ID)
	return nil
}

// CreateApproverItems creates one pending assessment_approval action item per
// approver, skipping users who already hold a live item for this assignment.
// A unique partial index backs this check; a constraint violation on Create is
// treated the same as an existing row.
func (s *WorkflowService) CreateApproverItems(tenantID string, assignment *model.AssessmentAssignment, stepName string, approvers []model.User, submitterID string) {
	for _, approver := range approvers {
		if approver.ID == submitterID {
			continue
		}
		var count int64
		err := s.db.Model(&model.ActionItem{}).
			Where("tenant_id = ? AND assigned_to = ? AND source_type = ? AND source_id = ? AND status IN ?",
				tenantID, approver.ID, model.SourceAssessmentApproval, assignment.ID,
				[]string{model.ActionItemStatusPending, model.ActionItemStatusInProgress}).
			Count(&count).Error
		if err != nil {
			log.Printf("[CreateApproverItems] Error checking existing items for %s: %v", approver.ID, err)
			continue
		}
		if count > 0 {
			log.Printf("[CreateApproverItems] Approver %s already has a pending item for assignment %s; skipping", approver.ID, assignment.ID)
			continue
		}
		item := model.ActionItem{
			TenantID:         tenantID,
			AssignedTo:       approver.ID,
			Title:            fmt.Sprintf("Approval required: %s", stepName),
			Description:      fmt.Sprintf("Review and decide on assessment submission %s", assignment.WorkflowTicketID),
			SourceType:       model.SourceAssessmentApproval,
			SourceID:         assignment.ID,
			WorkflowTicketID: assignment.WorkflowTicketID,
			Status:           model.ActionItemStatusPending,
			Priority:         "high",
			DueDate:          assignment.DueDate,
			AssignedAt:       time.Now(),
		}
		if err := s.db.Create(&item).Error; err != nil {
			// The partial unique index rejects concurrent duplicates; that is
			// the same outcome as the count check above.
			log.Printf("[CreateApproverItems] Error creating item for approver %s: %v", approver.ID, err)
			continue
		}
		log.Printf("[CreateApproverItems] Created approval item %s for %s on assignment %s", item.ID, approver.ID, assignment.ID)
	}
}

func decodeIDList(blob []byte) []string {
	if len(blob) == 0 {
		return nil
	}
	var ids []string
	if err := json.Unmarshal(blob, &ids); err != nil {
		return nil
	}
	return ids
}

func intersects(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	for _, s := range b {
		if set[s] {
			return true
		}
	}
	return false
}

func excludeUser(users []model.User, id string) []model.User {
	out := users[:0]
	for _, u := range users {
		if u.ID != id {
			out = append(out, u)
		}
	}
	return out
}
