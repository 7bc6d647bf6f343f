package services

import (
	"testing"

	model "github.com/vakaflow-ai/vakaflow/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteAssessment_SoftDeletes(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssessmentService(db)
	tenantID := newTenantID()
	owner := seedUser(t, db, tenantID, model.RoleApprover, "owner@example.com")

	assessment := model.Assessment{Name: "SOC2 questionnaire"}
	require.NoError(t, svc.CreateAssessment(tenantID, owner.ID, &assessment))
	assert.Equal(t, owner.ID, assessment.OwnerID)

	require.NoError(t, svc.DeleteAssessment(tenantID, owner.ID, assessment.ID))

	_, err := svc.GetAssessment(tenantID, assessment.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	// The row survives with is_active flipped.
	var row model.Assessment
	require.NoError(t, db.First(&row, "id = ?", assessment.ID).Error)
	assert.False(t, row.IsActive)
}

func TestAddQuestion_Validation(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssessmentService(db)
	tenantID := newTenantID()
	owner := seedUser(t, db, tenantID, model.RoleApprover, "owner@example.com")
	assessment := seedAssessment(t, db, tenantID, owner.ID)

	err := svc.AddQuestion(tenantID, assessment.ID, &model.AssessmentQuestion{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)

	err = svc.AddQuestion(tenantID, assessment.ID, &model.AssessmentQuestion{
		Text:         "Where is data stored?",
		QuestionType: model.QuestionTypeRequirementReference,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)

	question := model.AssessmentQuestion{Text: "Where is data stored?"}
	require.NoError(t, svc.AddQuestion(tenantID, assessment.ID, &question))
	assert.Equal(t, model.QuestionTypeNew, question.QuestionType)
}

func TestPopulateFromLibrary_AppendsInOrder(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssessmentService(db)
	tenantID := newTenantID()
	owner := seedUser(t, db, tenantID, model.RoleApprover, "owner@example.com")
	assessment := seedAssessment(t, db, tenantID, owner.ID)
	seedQuestion(t, db, tenantID, assessment.ID, true, 3)

	lib1 := model.LibraryQuestion{TenantID: tenantID, Text: "Encryption at rest?", Required: true}
	lib2 := model.LibraryQuestion{TenantID: tenantID, Text: "Incident response plan?"}
	require.NoError(t, db.Create(&lib1).Error)
	require.NoError(t, db.Create(&lib2).Error)

	created, err := svc.PopulateFromLibrary(tenantID, assessment.ID, []string{lib1.ID, lib2.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	questions, err := svc.ListQuestions(tenantID, assessment.ID)
	require.NoError(t, err)
	require.Len(t, questions, 3)

	// Library copies slot in after the existing max display order.
	assert.Equal(t, 3, questions[0].DisplayOrder)
	assert.Equal(t, 4, questions[1].DisplayOrder)
	assert.Equal(t, 5, questions[2].DisplayOrder)

	_, err = svc.PopulateFromLibrary(tenantID, assessment.ID, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateAssessment_FiltersFields(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssessmentService(db)
	tenantID := newTenantID()
	owner := seedUser(t, db, tenantID, model.RoleApprover, "owner@example.com")
	assessment := seedAssessment(t, db, tenantID, owner.ID)

	_, err := svc.UpdateAssessment(tenantID, owner.ID, assessment.ID, map[string]interface{}{
		"name":      "Renamed",
		"tenant_id": newTenantID(),
	})
	require.NoError(t, err)

	var row model.Assessment
	require.NoError(t, db.First(&row, "id = ?", assessment.ID).Error)
	assert.Equal(t, "Renamed", row.Name)
	assert.Equal(t, tenantID, row.TenantID)
}
