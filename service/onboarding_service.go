package services

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	model "github.com/vakaflow-ai/vakaflow/models"
	"gorm.io/gorm"
)

// OnboardingService runs the per-agent onboarding workflow, tracked
// independently of assessments but surfaced in the same inbox.
type OnboardingService struct {
	db       *gorm.DB
	workflow *WorkflowService
}

func NewOnboardingService(db *gorm.DB, workflow *WorkflowService) *OnboardingService {
	return &OnboardingService{db: db, workflow: workflow}
}

// RegisterAgent stores a new draft agent for a vendor.
func (s *OnboardingService) RegisterAgent(tenantID, actorID string, agent *model.Agent) error {
	if agent.Name == "" {
		return fmt.Errorf("%w: agent name is required", ErrValidation)
	}
	agent.TenantID = tenantID
	agent.Status = model.AgentStatusDraft
	if err := s.db.Create(agent).Error; err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}
	logAction(s.db, tenantID, actorID, "agent.registered", "agent", agent.ID, nil)
	return nil
}

// ListAgents returns a tenant's agents, optionally filtered by status.
func (s *OnboardingService) ListAgents(tenantID, status string) ([]model.Agent, error) {
	query := s.db.Where("tenant_id = ?", tenantID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var agents []model.Agent
	if err := query.Order("created_at DESC").Find(&agents).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch agents: %w", err)
	}
	return agents, nil
}

// SubmitAgent moves an agent into onboarding. Submitting an already-submitted
// agent with a live request is idempotent: the existing request is returned
// and no duplicate is created.
func (s *OnboardingService) SubmitAgent(tenantID, actorID, agentID string) (*model.OnboardingRequest, error) {
	var agent model.Agent
	if err := s.db.Where("id = ? AND tenant_id = ?", agentID, tenantID).First(&agent).Error; err != nil {
		return nil, fmt.Errorf("%w: agent %s", ErrNotFound, agentID)
	}

	if agent.Status == model.AgentStatusSubmitted {
		var existing model.OnboardingRequest
		err := s.db.Where("tenant_id = ? AND agent_id = ? AND status IN ?",
			tenantID, agentID, []string{model.OnboardingStatusPending, model.OnboardingStatusInProgress}).
			First(&existing).Error
		if err == nil {
			log.Printf("[SubmitAgent] Agent %s already submitted; returning request %s", agentID, existing.ID)
			return &existing, nil
		}
	}
	if agent.Status == model.AgentStatusApproved {
		return nil, fmt.Errorf("%w: agent %s is already approved", ErrConflict, agentID)
	}

	steps := s.workflow.ResolveStepConfigs(tenantID)
	stepsBlob, err := json.Marshal(steps)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal workflow steps: %w", err)
	}

	assignee := ""
	dummy := model.AssessmentAssignment{TenantID: tenantID, AgentID: agentID}
	if approvers := s.workflow.ResolveApprovers(tenantID, &dummy, actorID); len(approvers) > 0 {
		assignee = approvers[0].ID
	}

	request := model.OnboardingRequest{
		TenantID:      tenantID,
		AgentID:       agentID,
		RequestedBy:   actorID,
		AssignedTo:    assignee,
		Status:        model.OnboardingStatusPending,
		CurrentStep:   steps[0].StepNumber,
		WorkflowSteps: stepsBlob,
	}
	if err := s.db.Create(&request).Error; err != nil {
		return nil, fmt.Errorf("failed to create onboarding request: %w", err)
	}

	now := time.Now()
	err = s.db.Model(&agent).Updates(map[string]interface{}{
		"status":     model.AgentStatusSubmitted,
		"updated_at": now,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to mark agent submitted: %w", err)
	}

	if assignee != "" {
		s.createOnboardingItem(tenantID, &request, &agent, assignee)
	}

	logAction(s.db, tenantID, actorID, "agent.submitted", "agent", agentID, map[string]interface{}{
		"onboarding_request_id": request.ID,
	})
	log.Printf("[SubmitAgent] Agent %s submitted; onboarding request %s created", agentID, request.ID)
	return &request, nil
}

func (s *OnboardingService) createOnboardingItem(tenantID string, request *model.OnboardingRequest, agent *model.Agent, userID string) {
	var count int64
	err := s.db.Model(&model.ActionItem{}).
		Where("tenant_id = ? AND assigned_to = ? AND source_type = ? AND source_id = ? AND status IN ?",
			tenantID, userID, model.SourceOnboardingRequest, request.ID,
			[]string{model.ActionItemStatusPending, model.ActionItemStatusInProgress}).
		Count(&count).Error
	if err != nil {
		log.Printf("[createOnboardingItem] Error checking existing items: %v", err)
		return
	}
	if count > 0 {
		return
	}
	item := model.ActionItem{
		TenantID:    tenantID,
		AssignedTo:  userID,
		Title:       fmt.Sprintf("Onboard agent: %s", agent.Name),
		Description: fmt.Sprintf("Review onboarding request for agent %s", agent.Name),
		SourceType:  model.SourceOnboardingRequest,
		SourceID:    request.ID,
		Status:      model.ActionItemStatusPending,
		Priority:    "medium",
		AssignedAt:  time.Now(),
	}
	if err := s.db.Create(&item).Error; err != nil {
		log.Printf("[createOnboardingItem] Error creating item: %v", err)
	}
}

// DecideOnboarding applies an approve/reject verdict to the request's current
// step. Approving the last step completes onboarding and approves the agent.
func (s *OnboardingService) DecideOnboarding(tenantID, actorID, requestID, decision, comment string) (*model.OnboardingRequest, error) {
	if decision != "approve" && decision != "reject" {
		return nil, fmt.Errorf("%w: invalid onboarding decision %q", ErrValidation, decision)
	}

	var request model.OnboardingRequest
	if err := s.db.Where("id = ? AND tenant_id = ?", requestID, tenantID).First(&request).Error; err != nil {
		return nil, fmt.Errorf("%w: onboarding request %s", ErrNotFound, requestID)
	}
	switch request.Status {
	case model.OnboardingStatusCompleted, model.OnboardingStatusRejected:
		return nil, fmt.Errorf("%w: onboarding request %s is %s", ErrConflict, requestID, request.Status)
	}

	now := time.Now()
	if decision == "reject" {
		request.Status = model.OnboardingStatusRejected
		request.UpdatedAt = now
		if err := s.db.Save(&request).Error; err != nil {
			return nil, fmt.Errorf("failed to reject onboarding request: %w", err)
		}
		err := s.db.Model(&model.Agent{}).
			Where("id = ? AND tenant_id = ?", request.AgentID, tenantID).
			Updates(map[string]interface{}{"status": model.AgentStatusRejected, "updated_at": now}).Error
		if err != nil {
			log.Printf("[DecideOnboarding] Error marking agent %s rejected: %v", request.AgentID, err)
		}
		logAction(s.db, tenantID, actorID, "onboarding.rejected", "onboarding_request", requestID, nil)
		return &request, nil
	}

	cfg := model.WorkflowConfiguration{ID: request.ID, WorkflowSteps: request.WorkflowSteps}
	steps, err := cfg.ParseSteps()
	if err != nil {
		steps = model.DefaultApprovalSteps()
	}
	var next *model.StepConfig
	for i := range steps {
		if steps[i].StepNumber > request.CurrentStep {
			next = &steps[i]
			break
		}
	}

	if next == nil {
		request.Status = model.OnboardingStatusCompleted
		request.UpdatedAt = now
		if err := s.db.Save(&request).Error; err != nil {
			return nil, fmt.Errorf("failed to complete onboarding request: %w", err)
		}
		err := s.db.Model(&model.Agent{}).
			Where("id = ? AND tenant_id = ?", request.AgentID, tenantID).
			Updates(map[string]interface{}{
				"status":           model.AgentStatusApproved,
				"compliance_score": 100.0,
				"updated_at":       now,
			}).Error
		if err != nil {
			log.Printf("[DecideOnboarding] Error marking agent %s approved: %v", request.AgentID, err)
		}
		logAction(s.db, tenantID, actorID, "onboarding.completed", "onboarding_request", requestID, map[string]interface{}{
			"comment": comment,
		})
		log.Printf("[DecideOnboarding] Onboarding request %s completed", requestID)
		return &request, nil
	}

	request.CurrentStep = next.StepNumber
	request.Status = model.OnboardingStatusInProgress
	request.UpdatedAt = now
	if err := s.db.Save(&request).Error; err != nil {
		return nil, fmt.Errorf("failed to advance onboarding request: %w", err)
	}
	logAction(s.db, tenantID, actorID, "onboarding.step_approved", "onboarding_request", requestID, map[string]interface{}{
		"current_step": next.StepNumber,
	})
	log.Printf("[DecideOnboarding] Onboarding request %s advanced to step %d", requestID, next.StepNumber)
	return &request, nil
}
