package services

import (
	"fmt"
	"log"
	"time"

	model "github.com/vakaflow-ai/vakaflow/models"
	"gorm.io/gorm"
)

// AssessmentService manages assessment templates and their questions.
type AssessmentService struct {
	db *gorm.DB
}

func NewAssessmentService(db *gorm.DB) *AssessmentService {
	return &AssessmentService{db: db}
}

// CreateAssessment stores a new questionnaire template for the tenant.
func (s *AssessmentService) CreateAssessment(tenantID, ownerID string, assessment *model.Assessment) error {
	assessment.TenantID = tenantID
	if assessment.OwnerID == "" {
		assessment.OwnerID = ownerID
	}
	assessment.IsActive = true
	if err := s.db.Create(assessment).Error; err != nil {
		return fmt.Errorf("failed to create assessment: %w", err)
	}
	logAction(s.db, tenantID, ownerID, "assessment.created", "assessment", assessment.ID, nil)
	return nil
}

// GetAssessment returns an active assessment scoped to the tenant.
func (s *AssessmentService) GetAssessment(tenantID, assessmentID string) (*model.Assessment, error) {
	var assessment model.Assessment
	err := s.db.Where("id = ? AND tenant_id = ? AND is_active = ?", assessmentID, tenantID, true).
		First(&assessment).Error
	if err != nil {
		return nil, fmt.Errorf("%w: assessment %s", ErrNotFound, assessmentID)
	}
	return &assessment, nil
}

// ListAssessments returns a tenant's active assessments.
func (s *AssessmentService) ListAssessments(tenantID string) ([]model.Assessment, error) {
	var assessments []model.Assessment
	err := s.db.Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Order("created_at DESC").Find(&assessments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch assessments: %w", err)
	}
	return assessments, nil
}

// UpdateAssessment applies caller-supplied fields to an existing assessment.
func (s *AssessmentService) UpdateAssessment(tenantID, actorID, assessmentID string, updates map[string]interface{}) (*model.Assessment, error) {
	assessment, err := s.GetAssessment(tenantID, assessmentID)
	if err != nil {
		return nil, err
	}
	allowed := map[string]bool{"name": true, "description": true, "owner_id": true, "team_ids": true, "schedule": true}
	filtered := make(map[string]interface{})
	for k, v := range updates {
		if allowed[k] {
			filtered[k] = v
		}
	}
	if len(filtered) == 0 {
		return assessment, nil
	}
	filtered["updated_at"] = time.Now()
	if err := s.db.Model(assessment).Updates(filtered).Error; err != nil {
		return nil, fmt.Errorf("failed to update assessment: %w", err)
	}
	logAction(s.db, tenantID, actorID, "assessment.updated", "assessment", assessmentID, nil)
	return assessment, nil
}

// DeleteAssessment soft-deletes by flipping is_active.
func (s *AssessmentService) DeleteAssessment(tenantID, actorID, assessmentID string) error {
	assessment, err := s.GetAssessment(tenantID, assessmentID)
	if err != nil {
		return err
	}
	err = s.db.Model(assessment).Updates(map[string]interface{}{
		"is_active":  false,
		"updated_at": time.Now(),
	}).Error
	if err != nil {
		return fmt.Errorf("failed to delete assessment: %w", err)
	}
	logAction(s.db, tenantID, actorID, "assessment.deleted", "assessment", assessmentID, nil)
	return nil
}

// AddQuestion appends a question to an assessment.
func (s *AssessmentService) AddQuestion(tenantID, assessmentID string, question *model.AssessmentQuestion) error {
	if _, err := s.GetAssessment(tenantID, assessmentID); err != nil {
		return err
	}
	if question.Text == "" {
		return fmt.Errorf("%w: question text is required", ErrValidation)
	}
	switch question.QuestionType {
	case "", model.QuestionTypeNew:
		question.QuestionType = model.QuestionTypeNew
	case model.QuestionTypeRequirementReference:
		if question.RequirementID == "" {
			return fmt.Errorf("%w: requirement_reference questions need a requirement_id", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: invalid question_type %q", ErrValidation, question.QuestionType)
	}
	question.TenantID = tenantID
	question.AssessmentID = assessmentID
	if err := s.db.Create(question).Error; err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}
	return nil
}

// ListQuestions returns an assessment's questions in display order.
func (s *AssessmentService) ListQuestions(tenantID, assessmentID string) ([]model.AssessmentQuestion, error) {
	if _, err := s.GetAssessment(tenantID, assessmentID); err != nil {
		return nil, err
	}
	var questions []model.AssessmentQuestion
	err := s.db.Where("assessment_id = ?", assessmentID).
		Order("display_order ASC, created_at ASC").Find(&questions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch questions: %w", err)
	}
	return questions, nil
}

// PopulateFromLibrary bulk-copies tenant library questions into an assessment.
// Returns the number of questions created.
func (s *AssessmentService) PopulateFromLibrary(tenantID, assessmentID string, libraryIDs []string) (int, error) {
	if _, err := s.GetAssessment(tenantID, assessmentID); err != nil {
		return 0, err
	}
	if len(libraryIDs) == 0 {
		return 0, fmt.Errorf("%w: no library question ids supplied", ErrValidation)
	}

	var entries []model.LibraryQuestion
	err := s.db.Where("tenant_id = ? AND id IN ?", tenantID, libraryIDs).Find(&entries).Error
	if err != nil {
		return 0, fmt.Errorf("failed to fetch library questions: %w", err)
	}

	var maxOrder int
	row := s.db.Model(&model.AssessmentQuestion{}).
		Where("assessment_id = ?", assessmentID).
		Select("COALESCE(MAX(display_order), 0)").Row()
	if err := row.Scan(&maxOrder); err != nil {
		log.Printf("[PopulateFromLibrary] Error reading max display order: %v", err)
	}

	created := 0
	for _, entry := range entries {
		question := model.AssessmentQuestion{
			TenantID:        tenantID,
			AssessmentID:    assessmentID,
			QuestionType:    entry.QuestionType,
			RequirementID:   entry.RequirementID,
			Text:            entry.Text,
			Section:         entry.Section,
			Required:        entry.Required,
			ValidationRules: entry.ValidationRules,
			DisplayOrder:    maxOrder + created + 1,
		}
		if err := s.db.Create(&question).Error; err != nil {
			log.Printf("[PopulateFromLibrary] Error copying library question %s: %v", entry.ID, err)
			continue
		}
		created++
	}
	log.Printf("[PopulateFromLibrary] Copied %d of %d library questions into assessment %s", created, len(entries), assessmentID)
	return created, nil
}
