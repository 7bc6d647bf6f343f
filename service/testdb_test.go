package services

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	model "github.com/vakaflow-ai/vakaflow/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a per-test in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&model.Assessment{},
		&model.AssessmentQuestion{},
		&model.LibraryQuestion{},
		&model.AssessmentAssignment{},
		&model.AssessmentQuestionResponse{},
		&model.SubmissionRequirementResponse{},
		&model.AssessmentReview{},
		&model.AssessmentQuestionReview{},
		&model.AssessmentWorkflowHistory{},
		&model.ApprovalInstance{},
		&model.ApprovalStep{},
		&model.WorkflowConfiguration{},
		&model.ActionItem{},
		&model.OnboardingRequest{},
		&model.Ticket{},
		&model.Message{},
		&model.ProcessMapping{},
		&model.FormLayout{},
		&model.CustomField{},
		&model.User{},
		&model.Vendor{},
		&model.Agent{},
		&model.AuditLog{},
	)
	require.NoError(t, err)
	return db
}

func seedUser(t *testing.T, db *gorm.DB, tenantID, role, email string) model.User {
	t.Helper()
	user := model.User{
		TenantID: tenantID,
		Email:    email,
		Name:     email,
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedVendorUser(t *testing.T, db *gorm.DB, tenantID, vendorID, email string) model.User {
	t.Helper()
	user := model.User{
		TenantID: tenantID,
		Email:    email,
		Name:     email,
		Role:     model.RoleVendorUser,
		VendorID: vendorID,
		IsActive: true,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedAssessment(t *testing.T, db *gorm.DB, tenantID, ownerID string) model.Assessment {
	t.Helper()
	assessment := model.Assessment{
		TenantID: tenantID,
		Name:     "Vendor Security Assessment",
		OwnerID:  ownerID,
		IsActive: true,
	}
	require.NoError(t, db.Create(&assessment).Error)
	return assessment
}

func seedQuestion(t *testing.T, db *gorm.DB, tenantID, assessmentID string, required bool, order int) model.AssessmentQuestion {
	t.Helper()
	question := model.AssessmentQuestion{
		TenantID:     tenantID,
		AssessmentID: assessmentID,
		QuestionType: model.QuestionTypeNew,
		Text:         fmt.Sprintf("Question %d", order),
		DisplayOrder: order,
		Required:     required,
	}
	require.NoError(t, db.Create(&question).Error)
	return question
}

func newTenantID() string {
	return uuid.NewString()
}
