package services

import (
	"fmt"
	"log"
	"time"

	model "github.com/vakaflow-ai/vakaflow/models"
)

// ReviewQuestion records a per-question verdict. A comment is mandatory for
// fail and in_progress verdicts. Once no question remains unreviewed the
// approval engine is triggered.
func (s *AssignmentService) ReviewQuestion(tenantID, reviewerID, assignmentID, questionID, status, comment string) (*model.AssessmentQuestionReview, error) {
	switch status {
	case model.ReviewStatusPass, model.ReviewStatusFail, model.ReviewStatusInProgress:
	default:
		return nil, fmt.Errorf("%w: invalid review status %q", ErrValidation, status)
	}
	if (status == model.ReviewStatusFail || status == model.ReviewStatusInProgress) && comment == "" {
		return nil, fmt.Errorf("%w: comment is required for %s verdicts", ErrValidation, status)
	}

	var assignment model.AssessmentAssignment
	if err := s.db.Where("id = ? AND tenant_id = ?", assignmentID, tenantID).First(&assignment).Error; err != nil {
		return nil, fmt.Errorf("%w: assignment %s", ErrNotFound, assignmentID)
	}
	var question model.AssessmentQuestion
	if err := s.db.Where("id = ? AND assessment_id = ?", questionID, assignment.AssessmentID).First(&question).Error; err != nil {
		return nil, fmt.Errorf("%w: question %s", ErrNotFound, questionID)
	}

	var review model.AssessmentQuestionReview
	err := s.db.Where("assignment_id = ? AND question_id = ?", assignmentID, questionID).First(&review).Error
	if err != nil {
		review = model.AssessmentQuestionReview{
			TenantID:     tenantID,
			AssignmentID: assignmentID,
			QuestionID:   questionID,
		}
	}
	review.ReviewerID = reviewerID
	review.Status = status
	review.Comment = comment
	review.UpdatedAt = time.Now()
	if review.ID == "" {
		if err := s.db.Create(&review).Error; err != nil {
			return nil, fmt.Errorf("failed to create question review: %w", err)
		}
	} else if err := s.db.Save(&review).Error; err != nil {
		return nil, fmt.Errorf("failed to update question review: %w", err)
	}

	if s.allQuestionsReviewed(&assignment) {
		log.Printf("[ReviewQuestion] All questions reviewed for assignment %s; triggering approval workflow", assignmentID)
		if _, err := s.workflow.StartApproval(tenantID, &assignment, assignment.AssignedTo); err != nil {
			log.Printf("[ReviewQuestion] Error starting approval workflow for assignment %s: %v", assignmentID, err)
		}
	}
	return &review, nil
}

func (s *AssignmentService) allQuestionsReviewed(assignment *model.AssessmentAssignment) bool {
	var questionCount int64
	if err := s.db.Model(&model.AssessmentQuestion{}).
		Where("assessment_id = ?", assignment.AssessmentID).Count(&questionCount).Error; err != nil {
		log.Printf("[allQuestionsReviewed] Error counting questions: %v", err)
		return false
	}
	var reviewedCount int64
	err := s.db.Model(&model.AssessmentQuestionReview{}).
		Where("assignment_id = ? AND status <> ?", assignment.ID, model.ReviewStatusPending).
		Count(&reviewedCount).Error
	if err != nil {
		log.Printf("[allQuestionsReviewed] Error counting reviews: %v", err)
		return false
	}
	return questionCount > 0 && reviewedCount >= questionCount
}

// FinalDecisionInput is the approver's decision payload.
type FinalDecisionInput struct {
	Decision  string `json:"decision" binding:"required"`
	Comment   string `json:"comment"`
	ForwardTo string `json:"forward_to"`
}

// SubmitFinalDecision applies an approver's verdict. accepted advances a
// multi-step chain or approves outright; denied rejects; need_info sends the
// assignment back for revision. Every transition writes a workflow-history
// row and an audit record. The approver's own pending action item for this
// assignment is completed; other approvers' items are untouched unless the
// decision is terminal.
func (s *AssignmentService) SubmitFinalDecision(tenantID, approverID, assignmentID string, input FinalDecisionInput) (*model.AssessmentAssignment, error) {
	var target string
	switch input.Decision {
	case model.DecisionAccepted:
		target = model.AssignmentStatusApproved
	case model.DecisionDenied:
		target = model.AssignmentStatusRejected
	case model.DecisionNeedInfo:
		target = model.AssignmentStatusNeedsRevision
	default:
		return nil, fmt.Errorf("%w: invalid decision %q", ErrValidation, input.Decision)
	}

	var assignment model.AssessmentAssignment
	if err := s.db.Where("id = ? AND tenant_id = ?", assignmentID, tenantID).First(&assignment).Error; err != nil {
		return nil, fmt.Errorf("%w: assignment %s", ErrNotFound, assignmentID)
	}
	switch assignment.Status {
	case model.AssignmentStatusApproved, model.AssignmentStatusRejected:
		return nil, fmt.Errorf("%w: assignment %s already %s", ErrConflict, assignmentID, assignment.Status)
	}

	var instance model.ApprovalInstance
	hasInstance := s.db.Where("tenant_id = ? AND assignment_id = ? AND status = ?",
		tenantID, assignment.ID, model.ApprovalStatusInProgress).First(&instance).Error == nil

	if input.ForwardTo != "" {
		return s.forwardStep(tenantID, approverID, &assignment, &instance, hasInstance, input)
	}

	now := time.Now()
	accepted := input.Decision == model.DecisionAccepted

	if hasInstance {
		terminal, err := s.workflow.AdvanceOrFinish(&instance, &assignment, accepted, approverID, input.Comment, assignment.AssignedTo)
		if err != nil {
			return nil, err
		}
		if !terminal {
			// Mid-chain accept: the assignment stays in flight; only the
			// acting approver's item closes.
			s.completeApproverItems(tenantID, approverID, assignment.ID)
			s.writeHistory(tenantID, assignment.ID, assignment.Status, assignment.Status, approverID,
				fmt.Sprintf("step approved: %s", input.Comment), map[string]interface{}{"current_step": instance.CurrentStep})
			logAction(s.db, tenantID, approverID, "assignment.step_approved", "assessment_assignment", assignment.ID, nil)
			log.Printf("[SubmitFinalDecision] Assignment %s advanced to step %d", assignment.ID, instance.CurrentStep)
			return &assignment, nil
		}
	}

	fromStatus := assignment.Status
	assignment.Status = target
	assignment.UpdatedAt = now
	if err := s.db.Save(&assignment).Error; err != nil {
		return nil, fmt.Errorf("failed to update assignment status: %w", err)
	}

	s.completeApproverItems(tenantID, approverID, assignment.ID)

	switch input.Decision {
	case model.DecisionAccepted:
		s.applyComplianceOutcome(tenantID, &assignment)
	case model.DecisionDenied, model.DecisionNeedInfo:
		s.triggerResubmission(tenantID, approverID, &assignment, input.Comment)
	}

	s.writeHistory(tenantID, assignment.ID, fromStatus, target, approverID, input.Comment, nil)
	logAction(s.db, tenantID, approverID, "assignment.decision", "assessment_assignment", assignment.ID, map[string]interface{}{
		"decision": input.Decision,
	})
	if s.search != nil {
		s.search.IndexAssignment(&assignment)
	}

	log.Printf("[SubmitFinalDecision] Assignment %s -> %s by %s", assignment.ID, target, approverID)
	return &assignment, nil
}

// forwardStep reassigns the current approval step to a named user instead of
// applying a decision.
func (s *AssignmentService) forwardStep(tenantID, approverID string, assignment *model.AssessmentAssignment, instance *model.ApprovalInstance, hasInstance bool, input FinalDecisionInput) (*model.AssessmentAssignment, error) {
	var recipient model.User
	if err := s.db.Where("id = ? AND tenant_id = ? AND is_active = ?", input.ForwardTo, tenantID, true).First(&recipient).Error; err != nil {
		return nil, fmt.Errorf("%w: forward target %s", ErrNotFound, input.ForwardTo)
	}

	if hasInstance {
		var step model.ApprovalStep
		if err := s.db.Where("instance_id = ? AND step_number = ?", instance.ID, instance.CurrentStep).First(&step).Error; err == nil {
			step.AssignedTo = recipient.ID
			step.UpdatedAt = time.Now()
			if err := s.db.Save(&step).Error; err != nil {
				return nil, fmt.Errorf("failed to forward approval step: %w", err)
			}
		}
	}

	s.workflow.CreateApproverItems(tenantID, assignment, "Forwarded approval", []model.User{recipient}, assignment.AssignedTo)
	s.completeApproverItems(tenantID, approverID, assignment.ID)
	s.writeHistory(tenantID, assignment.ID, assignment.Status, assignment.Status, approverID,
		fmt.Sprintf("forwarded to %s: %s", recipient.ID, input.Comment), nil)
	logAction(s.db, tenantID, approverID, "assignment.forwarded", "assessment_assignment", assignment.ID, map[string]interface{}{
		"forward_to": recipient.ID,
	})
	log.Printf("[forwardStep] Assignment %s forwarded to %s by %s", assignment.ID, recipient.ID, approverID)
	return assignment, nil
}

// completeApproverItems closes the acting approver's live approval items for
// the assignment. Other approvers' items are left alone.
func (s *AssignmentService) completeApproverItems(tenantID, approverID, assignmentID string) {
	now := time.Now()
	err := s.db.Model(&model.ActionItem{}).
		Where("tenant_id = ? AND assigned_to = ? AND source_type IN ? AND source_id = ? AND status IN ?",
			tenantID, approverID,
			[]string{model.SourceAssessmentApproval, model.SourceAssessmentReview},
			assignmentID,
			[]string{model.ActionItemStatusPending, model.ActionItemStatusInProgress}).
		Updates(map[string]interface{}{
			"status":       model.ActionItemStatusCompleted,
			"completed_at": now,
			"updated_at":   now,
		}).Error
	if err != nil {
		log.Printf("[completeApproverItems] Error completing items for approver %s on assignment %s: %v", approverID, assignmentID, err)
	}
}

// applyComplianceOutcome stamps the vendor/agent after a final accept.
func (s *AssignmentService) applyComplianceOutcome(tenantID string, assignment *model.AssessmentAssignment) {
	if assignment.VendorID != "" {
		err := s.db.Model(&model.Vendor{}).
			Where("id = ? AND tenant_id = ?", assignment.VendorID, tenantID).
			Updates(map[string]interface{}{"compliance_score": 100.0, "updated_at": time.Now()}).Error
		if err != nil {
			log.Printf("[applyComplianceOutcome] Error updating vendor %s: %v", assignment.VendorID, err)
		}
	}
	if assignment.AgentID != "" {
		err := s.db.Model(&model.Agent{}).
			Where("id = ? AND tenant_id = ?", assignment.AgentID, tenantID).
			Updates(map[string]interface{}{
				"status":           model.AgentStatusApproved,
				"compliance_score": 100.0,
				"updated_at":       time.Now(),
			}).Error
		if err != nil {
			log.Printf("[applyComplianceOutcome] Error updating agent %s: %v", assignment.AgentID, err)
		}
	}
}

// triggerResubmission routes a denied/need_info assignment back to the vendor
// side with the flagged question reviews attached. Target resolution order:
// the original assigner, then vendor users matching the vendor contact email,
// then any active tenant user.
func (s *AssignmentService) triggerResubmission(tenantID, approverID string, assignment *model.AssessmentAssignment, comment string) {
	var flagged []model.AssessmentQuestionReview
	err := s.db.Where("assignment_id = ? AND status IN ?",
		assignment.ID, []string{model.ReviewStatusFail, model.ReviewStatusInProgress}).
		Find(&flagged).Error
	if err != nil {
		log.Printf("[triggerResubmission] Error fetching flagged reviews: %v", err)
	}
	flaggedIDs := make([]string, 0, len(flagged))
	flaggedComments := make(map[string]string, len(flagged))
	for _, r := range flagged {
		flaggedIDs = append(flaggedIDs, r.QuestionID)
		flaggedComments[r.QuestionID] = r.Comment
	}

	targets := s.resolveResubmissionTargets(tenantID, assignment)
	if len(targets) == 0 {
		log.Printf("[triggerResubmission] No resubmission targets for assignment %s", assignment.ID)
		return
	}

	description := fmt.Sprintf("Revise and resubmit assessment %s", assignment.WorkflowTicketID)
	if comment != "" {
		description = fmt.Sprintf("%s: %s", description, comment)
	}
	if len(flaggedIDs) > 0 {
		description = fmt.Sprintf("%s (%d flagged questions)", description, len(flaggedIDs))
	}

	for _, user := range targets {
		s.createAssignmentItem(tenantID, assignment, "Resubmission required", user,
			model.SourceAssessmentResubmission, description)
	}

	s.writeHistory(tenantID, assignment.ID, assignment.Status, assignment.Status, approverID,
		"resubmission requested", map[string]interface{}{
			"flagged_question_ids": flaggedIDs,
			"flagged_comments":     flaggedComments,
		})
}

// resolveResubmissionTargets widens from the original assigner to any tenant
// user. The final fallback trades precision for reachability; it is not a
// security boundary.
func (s *AssignmentService) resolveResubmissionTargets(tenantID string, assignment *model.AssessmentAssignment) []model.User {
	if assignment.AssignedBy != "" {
		var assigner model.User
		if err := s.db.Where("id = ? AND tenant_id = ? AND is_active = ?", assignment.AssignedBy, tenantID, true).
			First(&assigner).Error; err == nil {
			return []model.User{assigner}
		}
	}
	if assignment.AssignedTo != "" {
		var assignee model.User
		if err := s.db.Where("id = ? AND tenant_id = ? AND is_active = ?", assignment.AssignedTo, tenantID, true).
			First(&assignee).Error; err == nil {
			return []model.User{assignee}
		}
	}
	if assignment.VendorID != "" {
		var vendor model.Vendor
		if err := s.db.Where("id = ? AND tenant_id = ?", assignment.VendorID, tenantID).First(&vendor).Error; err == nil &&
			vendor.ContactEmail != "" {
			var users []model.User
			if err := s.db.Where("tenant_id = ? AND email = ? AND is_active = ?", tenantID, vendor.ContactEmail, true).
				Find(&users).Error; err == nil && len(users) > 0 {
				return users
			}
		}
		var vendorUsers []model.User
		if err := s.db.Where("tenant_id = ? AND vendor_id = ? AND is_active = ?", tenantID, assignment.VendorID, true).
			Find(&vendorUsers).Error; err == nil && len(vendorUsers) > 0 {
			return vendorUsers
		}
	}
	var anyone []model.User
	if err := s.db.Where("tenant_id = ? AND is_active = ?", tenantID, true).Limit(1).Find(&anyone).Error; err == nil {
		return anyone
	}
	return nil
}
