package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/agiledragon/gomonkey/v2"
	model "github.com/vakaflow-ai/vakaflow/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAssignment_RequiresQuestions(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssignmentService(db, NewWorkflowService(db), nil)
	tenantID := newTenantID()
	owner := seedUser(t, db, tenantID, model.RoleApprover, "owner@example.com")
	assessment := seedAssessment(t, db, tenantID, owner.ID)

	_, err := svc.CreateAssignment(tenantID, owner.ID, CreateAssignmentInput{AssessmentID: assessment.ID})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateAssignment_CreatesVendorUserItems(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssignmentService(db, NewWorkflowService(db), nil)
	tenantID := newTenantID()
	owner := seedUser(t, db, tenantID, model.RoleApprover, "owner@example.com")
	assessment := seedAssessment(t, db, tenantID, owner.ID)
	seedQuestion(t, db, tenantID, assessment.ID, true, 1)

	vendor := model.Vendor{TenantID: tenantID, Name: "Acme AI", ContactEmail: "contact@acme.test"}
	require.NoError(t, db.Create(&vendor).Error)
	seedVendorUser(t, db, tenantID, vendor.ID, "one@acme.test")
	seedVendorUser(t, db, tenantID, vendor.ID, "two@acme.test")

	var mailed int
	patches := gomonkey.ApplyFunc(sendActionItemEmail, func(item model.ActionItem, email string) error {
		mailed++
		return nil
	})
	defer patches.Reset()

	assignment, err := svc.CreateAssignment(tenantID, owner.ID, CreateAssignmentInput{
		AssessmentID: assessment.ID,
		VendorID:     vendor.ID,
	})
	require.NoError(t, err)

	var items []model.ActionItem
	require.NoError(t, db.Where("source_type = ? AND source_id = ?",
		model.SourceAssessmentAssignment, assignment.ID).Find(&items).Error)
	assert.Len(t, items, 2)
	assert.Equal(t, 2, mailed)
	for _, item := range items {
		assert.Equal(t, model.ActionItemStatusPending, item.Status)
	}
}

func TestSaveResponses_Draft_DoesNotComplete(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssignmentService(db, NewWorkflowService(db), nil)
	tenantID := newTenantID()
	owner := seedUser(t, db, tenantID, model.RoleApprover, "owner@example.com")
	submitter := seedUser(t, db, tenantID, model.RoleVendorUser, "vendor@example.com")
	assessment := seedAssessment(t, db, tenantID, owner.ID)
	q1 := seedQuestion(t, db, tenantID, assessment.ID, true, 1)

	assignment, err := svc.CreateAssignment(tenantID, owner.ID, CreateAssignmentInput{
		AssessmentID: assessment.ID,
		AssignedTo:   submitter.ID,
	})
	require.NoError(t, err)

	saved, completed, err := svc.SaveResponses(tenantID, submitter.ID, assignment.ID, SaveResponsesInput{
		IsDraft: true,
		Answers: []QuestionAnswer{{QuestionID: q1.ID, Value: "yes"}},
	})
	require.NoError(t, err)
	assert.False(t, completed)
	assert.Equal(t, model.AssignmentStatusInProgress, saved.Status)
	assert.Empty(t, saved.WorkflowTicketID)
	assert.NotNil(t, saved.StartedAt)
}

// Scenario: three questions, two required. Submitting only the required
// answers completes the assignment, mints a ticket and creates exactly one
// pending approval item per resolved approver with the submitter excluded.
func TestSaveResponses_RequiredAnswersComplete(t *testing.T) {
	db := newTestDB(t)
	workflow := NewWorkflowService(db)
	svc := NewAssignmentService(db, workflow, nil)
	tenantID := newTenantID()
	owner := seedUser(t, db, tenantID, model.RoleApprover, "owner@example.com")
	submitter := seedUser(t, db, tenantID, model.RoleVendorUser, "vendor@example.com")
	assessment := seedAssessment(t, db, tenantID, owner.ID)
	q1 := seedQuestion(t, db, tenantID, assessment.ID, true, 1)
	q2 := seedQuestion(t, db, tenantID, assessment.ID, true, 2)
	seedQuestion(t, db, tenantID, assessment.ID, false, 3)

	assignment, err := svc.CreateAssignment(tenantID, owner.ID, CreateAssignmentInput{
		AssessmentID: assessment.ID,
		AssignedTo:   submitter.ID,
	})
	require.NoError(t, err)

	saved, completed, err := svc.SaveResponses(tenantID, submitter.ID, assignment.ID, SaveResponsesInput{
		Answers: []QuestionAnswer{
			{QuestionID: q1.ID, Value: "yes"},
			{QuestionID: q2.ID, Value: "no"},
		},
	})
	require.NoError(t, err)
	assert.True(t, completed)
	assert.Equal(t, model.AssignmentStatusCompleted, saved.Status)
	assert.NotNil(t, saved.CompletedAt)

	expectedTicket := fmt.Sprintf("ASMT-%d-001", time.Now().Year())
	assert.Equal(t, expectedTicket, saved.WorkflowTicketID)

	var instance model.ApprovalInstance
	require.NoError(t, db.Where("assignment_id = ?", assignment.ID).First(&instance).Error)
	assert.Equal(t, model.ApprovalStatusInProgress, instance.Status)

	var items []model.ActionItem
	require.NoError(t, db.Where("source_type = ? AND source_id = ?",
		model.SourceAssessmentApproval, assignment.ID).Find(&items).Error)
	require.Len(t, items, 1)
	assert.Equal(t, owner.ID, items[0].AssignedTo)
	assert.NotEqual(t, submitter.ID, items[0].AssignedTo)

	var history []model.AssessmentWorkflowHistory
	require.NoError(t, db.Where("assignment_id = ?", assignment.ID).Find(&history).Error)
	assert.NotEmpty(t, history)
}

func TestSaveResponses_MissingRequiredStaysOpen(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssignmentService(db, NewWorkflowService(db), nil)
	tenantID := newTenantID()
	owner := seedUser(t, db, tenantID, model.RoleApprover, "owner@example.com")
	submitter := seedUser(t, db, tenantID, model.RoleVendorUser, "vendor@example.com")
	assessment := seedAssessment(t, db, tenantID, owner.ID)
	q1 := seedQuestion(t, db, tenantID, assessment.ID, true, 1)
	seedQuestion(t, db, tenantID, assessment.ID, true, 2)

	assignment, err := svc.CreateAssignment(tenantID, owner.ID, CreateAssignmentInput{
		AssessmentID: assessment.ID,
		AssignedTo:   submitter.ID,
	})
	require.NoError(t, err)

	saved, completed, err := svc.SaveResponses(tenantID, submitter.ID, assignment.ID, SaveResponsesInput{
		Answers: []QuestionAnswer{{QuestionID: q1.ID, Value: "yes"}},
	})
	require.NoError(t, err)
	assert.False(t, completed)
	assert.Equal(t, model.AssignmentStatusInProgress, saved.Status)
	assert.Empty(t, saved.WorkflowTicketID)

	var count int64
	require.NoError(t, db.Model(&model.ApprovalInstance{}).
		Where("assignment_id = ?", assignment.ID).Count(&count).Error)
	assert.Zero(t, count)
}

// With zero required questions every question must be answered, not just one.
func TestSaveResponses_NoRequiredNeedsAllAnswers(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssignmentService(db, NewWorkflowService(db), nil)
	tenantID := newTenantID()
	owner := seedUser(t, db, tenantID, model.RoleApprover, "owner@example.com")
	submitter := seedUser(t, db, tenantID, model.RoleVendorUser, "vendor@example.com")
	assessment := seedAssessment(t, db, tenantID, owner.ID)
	q1 := seedQuestion(t, db, tenantID, assessment.ID, false, 1)
	q2 := seedQuestion(t, db, tenantID, assessment.ID, false, 2)

	assignment, err := svc.CreateAssignment(tenantID, owner.ID, CreateAssignmentInput{
		AssessmentID: assessment.ID,
		AssignedTo:   submitter.ID,
	})
	require.NoError(t, err)

	_, completed, err := svc.SaveResponses(tenantID, submitter.ID, assignment.ID, SaveResponsesInput{
		Answers: []QuestionAnswer{{QuestionID: q1.ID, Value: "partial"}},
	})
	require.NoError(t, err)
	assert.False(t, completed)

	// Stored answers from the earlier save count on resubmission.
	saved, completed, err := svc.SaveResponses(tenantID, submitter.ID, assignment.ID, SaveResponsesInput{
		Answers: []QuestionAnswer{{QuestionID: q2.ID, Value: "rest"}},
	})
	require.NoError(t, err)
	assert.True(t, completed)
	assert.Equal(t, model.AssignmentStatusCompleted, saved.Status)
}

func TestSaveResponses_MirrorsRequirementReference(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssignmentService(db, NewWorkflowService(db), nil)
	tenantID := newTenantID()
	owner := seedUser(t, db, tenantID, model.RoleApprover, "owner@example.com")
	submitter := seedUser(t, db, tenantID, model.RoleVendorUser, "vendor@example.com")
	assessment := seedAssessment(t, db, tenantID, owner.ID)

	agent := model.Agent{TenantID: tenantID, Name: "Copilot", Status: model.AgentStatusDraft}
	require.NoError(t, db.Create(&agent).Error)

	requirementID := newTenantID()
	question := model.AssessmentQuestion{
		TenantID:      tenantID,
		AssessmentID:  assessment.ID,
		QuestionType:  model.QuestionTypeRequirementReference,
		RequirementID: requirementID,
		Text:          "Provide your SOC2 report",
		Required:      true,
	}
	require.NoError(t, db.Create(&question).Error)

	assignment, err := svc.CreateAssignment(tenantID, owner.ID, CreateAssignmentInput{
		AssessmentID: assessment.ID,
		AgentID:      agent.ID,
		AssignedTo:   submitter.ID,
	})
	require.NoError(t, err)

	_, completed, err := svc.SaveResponses(tenantID, submitter.ID, assignment.ID, SaveResponsesInput{
		Answers: []QuestionAnswer{{QuestionID: question.ID, Value: "soc2.pdf"}},
	})
	require.NoError(t, err)
	assert.True(t, completed)

	var mirror model.SubmissionRequirementResponse
	require.NoError(t, db.Where("agent_id = ? AND requirement_id = ?", agent.ID, requirementID).
		First(&mirror).Error)
	assert.Equal(t, "soc2.pdf", mirror.Value)
	assert.NotEmpty(t, mirror.SourceResponseID)
}

func TestSaveResponses_UnknownQuestionRejected(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssignmentService(db, NewWorkflowService(db), nil)
	tenantID := newTenantID()
	owner := seedUser(t, db, tenantID, model.RoleApprover, "owner@example.com")
	assessment := seedAssessment(t, db, tenantID, owner.ID)
	seedQuestion(t, db, tenantID, assessment.ID, true, 1)

	assignment, err := svc.CreateAssignment(tenantID, owner.ID, CreateAssignmentInput{
		AssessmentID: assessment.ID,
		AssignedTo:   owner.ID,
	})
	require.NoError(t, err)

	_, _, err = svc.SaveResponses(tenantID, owner.ID, assignment.ID, SaveResponsesInput{
		Answers: []QuestionAnswer{{QuestionID: newTenantID(), Value: "stray"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}
