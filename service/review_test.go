package services

import (
	"testing"

	model "github.com/vakaflow-ai/vakaflow/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// completedAssignment seeds an assignment through submission so review and
// decision paths start from a realistic state.
func completedAssignment(t *testing.T, svc *AssignmentService, tenantID string, owner, submitter model.User, vendorID string) (*model.AssessmentAssignment, model.AssessmentQuestion) {
	t.Helper()
	assessment := seedAssessment(t, svc.db, tenantID, owner.ID)
	question := seedQuestion(t, svc.db, tenantID, assessment.ID, true, 1)

	assignment, err := svc.CreateAssignment(tenantID, owner.ID, CreateAssignmentInput{
		AssessmentID: assessment.ID,
		VendorID:     vendorID,
		AssignedTo:   submitter.ID,
	})
	require.NoError(t, err)

	saved, completed, err := svc.SaveResponses(tenantID, submitter.ID, assignment.ID, SaveResponsesInput{
		Answers: []QuestionAnswer{{QuestionID: question.ID, Value: "answered"}},
	})
	require.NoError(t, err)
	require.True(t, completed)
	return saved, question
}

func TestReviewQuestion_CommentRequiredForFail(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssignmentService(db, NewWorkflowService(db), nil)
	tenantID := newTenantID()
	owner := seedUser(t, db, tenantID, model.RoleApprover, "owner@example.com")
	submitter := seedUser(t, db, tenantID, model.RoleVendorUser, "vendor@example.com")
	assignment, question := completedAssignment(t, svc, tenantID, owner, submitter, "")

	_, err := svc.ReviewQuestion(tenantID, owner.ID, assignment.ID, question.ID, model.ReviewStatusFail, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.ReviewQuestion(tenantID, owner.ID, assignment.ID, question.ID, model.ReviewStatusInProgress, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)

	review, err := svc.ReviewQuestion(tenantID, owner.ID, assignment.ID, question.ID, model.ReviewStatusFail, "evidence missing")
	require.NoError(t, err)
	assert.Equal(t, model.ReviewStatusFail, review.Status)
}

func TestReviewQuestion_UpsertsSingleRow(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssignmentService(db, NewWorkflowService(db), nil)
	tenantID := newTenantID()
	owner := seedUser(t, db, tenantID, model.RoleApprover, "owner@example.com")
	submitter := seedUser(t, db, tenantID, model.RoleVendorUser, "vendor@example.com")
	assignment, question := completedAssignment(t, svc, tenantID, owner, submitter, "")

	_, err := svc.ReviewQuestion(tenantID, owner.ID, assignment.ID, question.ID, model.ReviewStatusFail, "first pass")
	require.NoError(t, err)
	review, err := svc.ReviewQuestion(tenantID, owner.ID, assignment.ID, question.ID, model.ReviewStatusPass, "")
	require.NoError(t, err)
	assert.Equal(t, model.ReviewStatusPass, review.Status)

	var count int64
	require.NoError(t, db.Model(&model.AssessmentQuestionReview{}).
		Where("assignment_id = ? AND question_id = ?", assignment.ID, question.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSubmitFinalDecision_InvalidDecision(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssignmentService(db, NewWorkflowService(db), nil)
	tenantID := newTenantID()
	owner := seedUser(t, db, tenantID, model.RoleApprover, "owner@example.com")
	submitter := seedUser(t, db, tenantID, model.RoleVendorUser, "vendor@example.com")
	assignment, _ := completedAssignment(t, svc, tenantID, owner, submitter, "")

	_, err := svc.SubmitFinalDecision(tenantID, owner.ID, assignment.ID, FinalDecisionInput{Decision: "maybe"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}

// Scenario: a denial mid-approval rejects the assignment, closes only the
// acting approver's item and opens a resubmission item for the original
// assigner.
func TestSubmitFinalDecision_DeniedTriggersResubmission(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssignmentService(db, NewWorkflowService(db), nil)
	tenantID := newTenantID()
	owner := seedUser(t, db, tenantID, model.RoleApprover, "owner@example.com")
	submitter := seedUser(t, db, tenantID, model.RoleVendorUser, "vendor@example.com")
	assignment, question := completedAssignment(t, svc, tenantID, owner, submitter, "")

	// A second approver with their own pending item.
	other := seedUser(t, db, tenantID, model.RoleApprover, "second@example.com")
	otherItem := model.ActionItem{
		TenantID:   tenantID,
		AssignedTo: other.ID,
		Title:      "Approval required: Assessment Review",
		SourceType: model.SourceAssessmentApproval,
		SourceID:   assignment.ID,
		Status:     model.ActionItemStatusPending,
	}
	require.NoError(t, db.Create(&otherItem).Error)

	_, err := svc.ReviewQuestion(tenantID, owner.ID, assignment.ID, question.ID, model.ReviewStatusFail, "control not evidenced")
	require.NoError(t, err)

	decided, err := svc.SubmitFinalDecision(tenantID, owner.ID, assignment.ID, FinalDecisionInput{
		Decision: model.DecisionDenied,
		Comment:  "not acceptable",
	})
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentStatusRejected, decided.Status)

	var mine model.ActionItem
	require.NoError(t, db.Where("assigned_to = ? AND source_type = ? AND source_id = ?",
		owner.ID, model.SourceAssessmentApproval, assignment.ID).First(&mine).Error)
	assert.Equal(t, model.ActionItemStatusCompleted, mine.Status)

	require.NoError(t, db.First(&otherItem, "id = ?", otherItem.ID).Error)
	assert.Equal(t, model.ActionItemStatusPending, otherItem.Status)

	var resubmission model.ActionItem
	require.NoError(t, db.Where("source_type = ? AND source_id = ?",
		model.SourceAssessmentResubmission, assignment.ID).First(&resubmission).Error)
	assert.Equal(t, owner.ID, resubmission.AssignedTo)
	assert.Contains(t, resubmission.Description, "1 flagged questions")
}

func TestSubmitFinalDecision_AcceptAdvancesThenApproves(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssignmentService(db, NewWorkflowService(db), nil)
	tenantID := newTenantID()
	owner := seedUser(t, db, tenantID, model.RoleApprover, "owner@example.com")
	submitter := seedUser(t, db, tenantID, model.RoleVendorUser, "vendor@example.com")

	vendor := model.Vendor{TenantID: tenantID, Name: "Acme AI"}
	require.NoError(t, db.Create(&vendor).Error)

	assignment, _ := completedAssignment(t, svc, tenantID, owner, submitter, vendor.ID)

	// First accept advances to step two; the assignment is still in flight.
	decided, err := svc.SubmitFinalDecision(tenantID, owner.ID, assignment.ID, FinalDecisionInput{
		Decision: model.DecisionAccepted,
	})
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentStatusCompleted, decided.Status)

	var instance model.ApprovalInstance
	require.NoError(t, db.Where("assignment_id = ?", assignment.ID).First(&instance).Error)
	assert.Equal(t, 2, instance.CurrentStep)
	assert.Equal(t, model.ApprovalStatusInProgress, instance.Status)

	// Second accept is terminal and stamps the vendor.
	decided, err = svc.SubmitFinalDecision(tenantID, owner.ID, assignment.ID, FinalDecisionInput{
		Decision: model.DecisionAccepted,
	})
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentStatusApproved, decided.Status)

	require.NoError(t, db.First(&instance, "id = ?", instance.ID).Error)
	assert.Equal(t, model.ApprovalStatusApproved, instance.Status)

	require.NoError(t, db.First(&vendor, "id = ?", vendor.ID).Error)
	assert.Equal(t, 100.0, vendor.ComplianceScore)

	// A third decision on a settled assignment conflicts.
	_, err = svc.SubmitFinalDecision(tenantID, owner.ID, assignment.ID, FinalDecisionInput{
		Decision: model.DecisionAccepted,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestSubmitFinalDecision_ForwardReassignsStep(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssignmentService(db, NewWorkflowService(db), nil)
	tenantID := newTenantID()
	owner := seedUser(t, db, tenantID, model.RoleApprover, "owner@example.com")
	submitter := seedUser(t, db, tenantID, model.RoleVendorUser, "vendor@example.com")
	delegate := seedUser(t, db, tenantID, model.RoleReviewer, "delegate@example.com")
	assignment, _ := completedAssignment(t, svc, tenantID, owner, submitter, "")

	decided, err := svc.SubmitFinalDecision(tenantID, owner.ID, assignment.ID, FinalDecisionInput{
		Decision:  model.DecisionAccepted,
		ForwardTo: delegate.ID,
		Comment:   "needs a second pair of eyes",
	})
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentStatusCompleted, decided.Status)

	var instance model.ApprovalInstance
	require.NoError(t, db.Where("assignment_id = ?", assignment.ID).First(&instance).Error)
	var step model.ApprovalStep
	require.NoError(t, db.Where("instance_id = ? AND step_number = ?", instance.ID, instance.CurrentStep).
		First(&step).Error)
	assert.Equal(t, delegate.ID, step.AssignedTo)

	var item model.ActionItem
	require.NoError(t, db.Where("assigned_to = ? AND source_type = ? AND source_id = ?",
		delegate.ID, model.SourceAssessmentApproval, assignment.ID).First(&item).Error)
	assert.Equal(t, model.ActionItemStatusPending, item.Status)
}
