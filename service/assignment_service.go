package services

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	model "github.com/vakaflow-ai/vakaflow/models"
	"gorm.io/gorm"
)

// AssignmentService drives an assessment assignment from creation through
// response collection, review and final decision.
type AssignmentService struct {
	db       *gorm.DB
	workflow *WorkflowService
	search   *SearchService
}

func NewAssignmentService(db *gorm.DB, workflow *WorkflowService, search *SearchService) *AssignmentService {
	return &AssignmentService{db: db, workflow: workflow, search: search}
}

// CreateAssignmentInput carries the fields needed to assign an assessment.
type CreateAssignmentInput struct {
	AssessmentID string     `json:"assessment_id" binding:"required"`
	VendorID     string     `json:"vendor_id"`
	AgentID      string     `json:"agent_id"`
	AssignedTo   string     `json:"assigned_to"`
	DueDate      *time.Time `json:"due_date"`
}

// CreateAssignment binds an assessment to a vendor/agent. The assessment must
// carry at least one question. One assessment_assignment action item is
// created per resolved vendor user, with duplicate suppression.
func (s *AssignmentService) CreateAssignment(tenantID, actorID string, input CreateAssignmentInput) (*model.AssessmentAssignment, error) {
	var assessment model.Assessment
	if err := s.db.Where("id = ? AND tenant_id = ? AND is_active = ?", input.AssessmentID, tenantID, true).
		First(&assessment).Error; err != nil {
		return nil, fmt.Errorf("%w: assessment %s", ErrNotFound, input.AssessmentID)
	}

	var questionCount int64
	if err := s.db.Model(&model.AssessmentQuestion{}).
		Where("assessment_id = ?", assessment.ID).Count(&questionCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count questions: %w", err)
	}
	if questionCount == 0 {
		return nil, fmt.Errorf("%w: assessment %s has no questions", ErrValidation, assessment.ID)
	}

	assignment := model.AssessmentAssignment{
		TenantID:     tenantID,
		AssessmentID: assessment.ID,
		VendorID:     input.VendorID,
		AgentID:      input.AgentID,
		AssignedBy:   actorID,
		AssignedTo:   input.AssignedTo,
		Status:       model.AssignmentStatusPending,
		DueDate:      input.DueDate,
	}
	if err := s.db.Create(&assignment).Error; err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}

	targets := s.resolveAssignmentTargets(tenantID, &assignment)
	for _, user := range targets {
		s.createAssignmentItem(tenantID, &assignment, assessment.Name, user, model.SourceAssessmentAssignment,
			fmt.Sprintf("Complete assessment '%s'", assessment.Name))
	}

	logAction(s.db, tenantID, actorID, "assignment.created", "assessment_assignment", assignment.ID, map[string]interface{}{
		"assessment_id": assessment.ID,
		"vendor_id":     assignment.VendorID,
		"agent_id":      assignment.AgentID,
	})
	log.Printf("[CreateAssignment] Created assignment %s for assessment %s", assignment.ID, assessment.ID)
	return &assignment, nil
}

// resolveAssignmentTargets picks the vendor users who must complete the
// assignment: the explicit assignee first, then active vendor users of the
// assignment's vendor.
func (s *AssignmentService) resolveAssignmentTargets(tenantID string, assignment *model.AssessmentAssignment) []model.User {
	if assignment.AssignedTo != "" {
		var user model.User
		if err := s.db.Where("id = ? AND tenant_id = ?", assignment.AssignedTo, tenantID).First(&user).Error; err == nil {
			return []model.User{user}
		}
		log.Printf("[resolveAssignmentTargets] Explicit assignee %s not found", assignment.AssignedTo)
	}
	if assignment.VendorID != "" {
		var users []model.User
		err := s.db.Where("tenant_id = ? AND vendor_id = ? AND role = ? AND is_active = ?",
			tenantID, assignment.VendorID, model.RoleVendorUser, true).Find(&users).Error
		if err != nil {
			log.Printf("[resolveAssignmentTargets] Error fetching vendor users: %v", err)
			return nil
		}
		return users
	}
	return nil
}

func (s *AssignmentService) createAssignmentItem(tenantID string, assignment *model.AssessmentAssignment, assessmentName string, user model.User, sourceType, description string) {
	var count int64
	err := s.db.Model(&model.ActionItem{}).
		Where("tenant_id = ? AND assigned_to = ? AND source_type = ? AND source_id = ? AND status IN ?",
			tenantID, user.ID, sourceType, assignment.ID,
			[]string{model.ActionItemStatusPending, model.ActionItemStatusInProgress}).
		Count(&count).Error
	if err != nil {
		log.Printf("[createAssignmentItem] Error checking existing items for %s: %v", user.ID, err)
		return
	}
	if count > 0 {
		log.Printf("[createAssignmentItem] User %s already has a pending %s item for assignment %s; skipping", user.ID, sourceType, assignment.ID)
		return
	}
	item := model.ActionItem{
		TenantID:         tenantID,
		AssignedTo:       user.ID,
		Title:            assessmentName,
		Description:      description,
		SourceType:       sourceType,
		SourceID:         assignment.ID,
		WorkflowTicketID: assignment.WorkflowTicketID,
		Status:           model.ActionItemStatusPending,
		Priority:         "medium",
		DueDate:          assignment.DueDate,
		AssignedAt:       time.Now(),
	}
	if err := s.db.Create(&item).Error; err != nil {
		log.Printf("[createAssignmentItem] Error creating item for %s: %v", user.ID, err)
		return
	}
	if user.Email != "" {
		if err := sendActionItemEmail(item, user.Email); err != nil {
			log.Printf("[createAssignmentItem] Notification mail to %s failed: %v", user.Email, err)
		}
	}
}

// QuestionAnswer is one answer in a save-responses payload.
type QuestionAnswer struct {
	QuestionID string   `json:"question_id" binding:"required"`
	Value      string   `json:"value"`
	Comment    string   `json:"comment"`
	Documents  []string `json:"documents"`
}

// SaveResponsesInput is the save-responses payload.
type SaveResponsesInput struct {
	IsDraft bool             `json:"is_draft"`
	Answers []QuestionAnswer `json:"answers"`
}

// SaveResponses upserts one response row per answered question. On a final
// (non-draft) save it runs completion detection: when every required question
// has a non-empty answer (or, with no required questions, every question), the
// assignment completes, a workflow ticket is minted and the approval engine is
// triggered synchronously. The bool result reports completion.
func (s *AssignmentService) SaveResponses(tenantID, actorID, assignmentID string, input SaveResponsesInput) (*model.AssessmentAssignment, bool, error) {
	var assignment model.AssessmentAssignment
	if err := s.db.Where("id = ? AND tenant_id = ?", assignmentID, tenantID).First(&assignment).Error; err != nil {
		return nil, false, fmt.Errorf("%w: assignment %s", ErrNotFound, assignmentID)
	}
	switch assignment.Status {
	case model.AssignmentStatusApproved, model.AssignmentStatusRejected, model.AssignmentStatusCancelled:
		return nil, false, fmt.Errorf("%w: assignment %s is %s", ErrConflict, assignmentID, assignment.Status)
	}

	var questions []model.AssessmentQuestion
	if err := s.db.Where("assessment_id = ?", assignment.AssessmentID).Find(&questions).Error; err != nil {
		return nil, false, fmt.Errorf("failed to fetch questions: %w", err)
	}
	questionsByID := make(map[string]model.AssessmentQuestion, len(questions))
	for _, q := range questions {
		questionsByID[q.ID] = q
	}

	payloadValues := make(map[string]string, len(input.Answers))
	for _, answer := range input.Answers {
		question, ok := questionsByID[answer.QuestionID]
		if !ok {
			return nil, false, fmt.Errorf("%w: question %s does not belong to assessment %s",
				ErrValidation, answer.QuestionID, assignment.AssessmentID)
		}
		payloadValues[answer.QuestionID] = answer.Value
		if err := s.upsertResponse(tenantID, actorID, &assignment, question, answer); err != nil {
			return nil, false, err
		}
	}

	now := time.Now()
	if assignment.Status == model.AssignmentStatusPending {
		assignment.Status = model.AssignmentStatusInProgress
		assignment.StartedAt = &now
	}

	if input.IsDraft {
		assignment.UpdatedAt = now
		if err := s.db.Save(&assignment).Error; err != nil {
			return nil, false, fmt.Errorf("failed to save assignment: %w", err)
		}
		return &assignment, false, nil
	}

	complete, err := s.isComplete(&assignment, questions, payloadValues)
	if err != nil {
		return nil, false, err
	}
	if !complete {
		assignment.UpdatedAt = now
		if err := s.db.Save(&assignment).Error; err != nil {
			return nil, false, fmt.Errorf("failed to save assignment: %w", err)
		}
		log.Printf("[SaveResponses] Assignment %s submitted but incomplete; staying %s", assignment.ID, assignment.Status)
		return &assignment, false, nil
	}

	fromStatus := assignment.Status
	assignment.Status = model.AssignmentStatusCompleted
	assignment.CompletedAt = &now
	if assignment.WorkflowTicketID == "" {
		ticket, err := s.generateTicketID(tenantID)
		if err != nil {
			return nil, false, err
		}
		assignment.WorkflowTicketID = ticket
	}
	assignment.UpdatedAt = now
	if err := s.db.Save(&assignment).Error; err != nil {
		return nil, false, fmt.Errorf("failed to complete assignment: %w", err)
	}

	s.writeHistory(tenantID, assignment.ID, fromStatus, assignment.Status, actorID, "responses submitted", nil)
	logAction(s.db, tenantID, actorID, "assignment.completed", "assessment_assignment", assignment.ID, map[string]interface{}{
		"workflow_ticket_id": assignment.WorkflowTicketID,
	})

	// Approval triggering is a side effect of completion: a failure here is
	// logged, not surfaced, so the saved responses survive.
	if _, err := s.workflow.StartApproval(tenantID, &assignment, actorID); err != nil {
		log.Printf("[SaveResponses] Error starting approval workflow for assignment %s: %v", assignment.ID, err)
	}

	if s.search != nil {
		s.search.IndexAssignment(&assignment)
	}

	log.Printf("[SaveResponses] Assignment %s completed with ticket %s", assignment.ID, assignment.WorkflowTicketID)
	return &assignment, true, nil
}

func (s *AssignmentService) upsertResponse(tenantID, actorID string, assignment *model.AssessmentAssignment, question model.AssessmentQuestion, answer QuestionAnswer) error {
	var docsBlob []byte
	if len(answer.Documents) > 0 {
		bytes, err := json.Marshal(answer.Documents)
		if err != nil {
			return fmt.Errorf("failed to marshal documents: %w", err)
		}
		docsBlob = bytes
	}

	var response model.AssessmentQuestionResponse
	err := s.db.Where("assignment_id = ? AND question_id = ?", assignment.ID, question.ID).First(&response).Error
	if err != nil {
		response = model.AssessmentQuestionResponse{
			TenantID:     tenantID,
			AssignmentID: assignment.ID,
			QuestionID:   question.ID,
			OwnerID:      actorID,
		}
	}
	response.Value = answer.Value
	response.Comment = answer.Comment
	if docsBlob != nil {
		response.Documents = docsBlob
	}
	response.UpdatedAt = time.Now()
	if response.ID == "" {
		if err := s.db.Create(&response).Error; err != nil {
			return fmt.Errorf("failed to create response for question %s: %w", question.ID, err)
		}
	} else if err := s.db.Save(&response).Error; err != nil {
		return fmt.Errorf("failed to update response for question %s: %w", question.ID, err)
	}

	// Requirement-backed answers are mirrored onto the agent's requirement
	// record so onboarding sees the same value.
	if question.QuestionType == model.QuestionTypeRequirementReference && assignment.AgentID != "" && question.RequirementID != "" {
		var mirror model.SubmissionRequirementResponse
		err := s.db.Where("agent_id = ? AND requirement_id = ?", assignment.AgentID, question.RequirementID).First(&mirror).Error
		if err != nil {
			mirror = model.SubmissionRequirementResponse{
				TenantID:      tenantID,
				AgentID:       assignment.AgentID,
				RequirementID: question.RequirementID,
			}
		}
		mirror.Value = answer.Value
		mirror.SourceResponseID = response.ID
		mirror.UpdatedAt = time.Now()
		if mirror.ID == "" {
			if err := s.db.Create(&mirror).Error; err != nil {
				log.Printf("[upsertResponse] Error mirroring requirement response for agent %s: %v", assignment.AgentID, err)
			}
		} else if err := s.db.Save(&mirror).Error; err != nil {
			log.Printf("[upsertResponse] Error updating mirrored requirement response for agent %s: %v", assignment.AgentID, err)
		}
	}
	return nil
}

// isComplete applies the completion policy. An answer counts when present in
// the request payload, stored with a non-empty value, or mirrored into the
// agent's requirement responses. With at least one required question only the
// required set matters; with none, every question must be answered.
func (s *AssignmentService) isComplete(assignment *model.AssessmentAssignment, questions []model.AssessmentQuestion, payloadValues map[string]string) (bool, error) {
	var responses []model.AssessmentQuestionResponse
	if err := s.db.Where("assignment_id = ?", assignment.ID).Find(&responses).Error; err != nil {
		return false, fmt.Errorf("failed to fetch responses: %w", err)
	}
	stored := make(map[string]string, len(responses))
	for _, r := range responses {
		stored[r.QuestionID] = r.Value
	}

	answered := func(q model.AssessmentQuestion) bool {
		if v, ok := payloadValues[q.ID]; ok && strings.TrimSpace(v) != "" {
			return true
		}
		if v, ok := stored[q.ID]; ok && strings.TrimSpace(v) != "" {
			return true
		}
		if q.QuestionType == model.QuestionTypeRequirementReference && assignment.AgentID != "" && q.RequirementID != "" {
			var mirror model.SubmissionRequirementResponse
			err := s.db.Where("agent_id = ? AND requirement_id = ?", assignment.AgentID, q.RequirementID).First(&mirror).Error
			if err == nil && strings.TrimSpace(mirror.Value) != "" {
				return true
			}
		}
		return false
	}

	var required []model.AssessmentQuestion
	for _, q := range questions {
		if q.Required {
			required = append(required, q)
		}
	}

	if len(required) > 0 {
		for _, q := range required {
			if !answered(q) {
				return false, nil
			}
		}
		return true, nil
	}

	// No required questions: every question must be answered.
	for _, q := range questions {
		if !answered(q) {
			return false, nil
		}
	}
	return len(questions) > 0, nil
}

// generateTicketID mints the next human-readable ticket code for the tenant,
// e.g. ASMT-2026-017.
func (s *AssignmentService) generateTicketID(tenantID string) (string, error) {
	year := time.Now().Year()
	prefix := fmt.Sprintf("ASMT-%d-", year)
	var count int64
	err := s.db.Model(&model.AssessmentAssignment{}).
		Where("tenant_id = ? AND workflow_ticket_id LIKE ?", tenantID, prefix+"%").
		Count(&count).Error
	if err != nil {
		return "", fmt.Errorf("failed to count tickets: %w", err)
	}
	return fmt.Sprintf("%s%03d", prefix, count+1), nil
}

func (s *AssignmentService) writeHistory(tenantID, assignmentID, from, to, actorID, comment string, metadata map[string]interface{}) {
	var blob []byte
	if metadata != nil {
		bytes, err := json.Marshal(metadata)
		if err != nil {
			log.Printf("[writeHistory] Error marshaling metadata: %v", err)
		} else {
			blob = bytes
		}
	}
	row := model.AssessmentWorkflowHistory{
		TenantID:     tenantID,
		AssignmentID: assignmentID,
		FromStatus:   from,
		ToStatus:     to,
		ActorID:      actorID,
		Comment:      comment,
		Metadata:     blob,
	}
	if err := s.db.Create(&row).Error; err != nil {
		log.Printf("[writeHistory] Error writing workflow history for assignment %s: %v", assignmentID, err)
	}
}

// GetAssignment returns one assignment scoped to the tenant.
func (s *AssignmentService) GetAssignment(tenantID, assignmentID string) (*model.AssessmentAssignment, error) {
	var assignment model.AssessmentAssignment
	if err := s.db.Where("id = ? AND tenant_id = ?", assignmentID, tenantID).First(&assignment).Error; err != nil {
		return nil, fmt.Errorf("%w: assignment %s", ErrNotFound, assignmentID)
	}
	return &assignment, nil
}

// ListAssignments returns a tenant's assignments, optionally filtered by status.
func (s *AssignmentService) ListAssignments(tenantID, status string) ([]model.AssessmentAssignment, error) {
	query := s.db.Where("tenant_id = ?", tenantID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var assignments []model.AssessmentAssignment
	if err := query.Order("created_at DESC").Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch assignments: %w", err)
	}
	return assignments, nil
}
