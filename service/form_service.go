package services

import (
	"encoding/json"
	"fmt"
	"log"

	model "github.com/vakaflow-ai/vakaflow/models"
	"gorm.io/gorm"
)

// FormService resolves which stored form definition renders a given workflow
// stage. It is a lookup, not a computation: nothing is auto-created, and an
// unresolvable request is a not-found.
type FormService struct {
	db *gorm.DB
}

func NewFormService(db *gorm.DB) *FormService {
	return &FormService{db: db}
}

// stageLayoutTypes is the fixed workflow_stage -> layout_type table used by
// tier-two resolution.
var stageLayoutTypes = map[string]string{
	"submission":     "submission_form",
	"review":         "review_form",
	"approval":       "approval_form",
	"resubmission":   "submission_form",
	"final_approval": "approval_form",
}

// ResolvedLayout is a layout with its referenced custom fields hydrated from
// the catalog.
type ResolvedLayout struct {
	Layout       model.FormLayout    `json:"layout"`
	CustomFields []model.CustomField `json:"custom_fields"`
}

// ResolveLayout finds the form for (request_type, workflow_stage, agent_type)
// through three tiers: process-mapping stage entry, seeded layout by derived
// layout type, then the tenant default for the request type.
func (s *FormService) ResolveLayout(tenantID, requestType, stage, agentType string) (*ResolvedLayout, error) {
	if requestType == "" || stage == "" {
		return nil, fmt.Errorf("%w: request_type and workflow_stage are required", ErrValidation)
	}

	// Tier 1: process mapping.
	var mapping model.ProcessMapping
	err := s.db.Where("tenant_id = ? AND request_type = ? AND is_active = ?", tenantID, requestType, true).
		First(&mapping).Error
	if err == nil {
		if layoutID := mapping.LayoutIDForStage(stage); layoutID != "" {
			var layout model.FormLayout
			if err := s.db.Where("id = ? AND tenant_id = ?", layoutID, tenantID).First(&layout).Error; err == nil {
				return s.hydrate(&layout)
			}
			log.Printf("[ResolveLayout] Mapped layout %s for stage %s not found", layoutID, stage)
		}
	}

	// Tier 2: seeded layout by derived layout type, preferring an agent-type
	// match when one is supplied.
	if layoutType, ok := stageLayoutTypes[stage]; ok {
		if agentType != "" {
			var layout model.FormLayout
			err := s.db.Where("tenant_id = ? AND layout_type = ? AND agent_type = ?", tenantID, layoutType, agentType).
				First(&layout).Error
			if err == nil {
				return s.hydrate(&layout)
			}
		}
		var layout model.FormLayout
		err := s.db.Where("tenant_id = ? AND layout_type = ? AND (agent_type = '' OR agent_type IS NULL)", tenantID, layoutType).
			First(&layout).Error
		if err == nil {
			return s.hydrate(&layout)
		}
	}

	// Tier 3: tenant default for the request type.
	var layout model.FormLayout
	err = s.db.Where("tenant_id = ? AND request_type = ? AND is_default = ?", tenantID, requestType, true).
		First(&layout).Error
	if err == nil {
		return s.hydrate(&layout)
	}

	return nil, fmt.Errorf("%w: no form layout for request_type=%s stage=%s", ErrNotFound, requestType, stage)
}

// layoutDefinition mirrors the stored definition blob: sections of field
// references, where custom fields appear by id only.
type layoutDefinition struct {
	Sections []struct {
		Title  string `json:"title"`
		Fields []struct {
			CustomFieldID string `json:"custom_field_id"`
		} `json:"fields"`
	} `json:"sections"`
}

// hydrate loads the custom fields referenced by the layout definition.
func (s *FormService) hydrate(layout *model.FormLayout) (*ResolvedLayout, error) {
	resolved := &ResolvedLayout{Layout: *layout}
	if len(layout.Definition) == 0 {
		return resolved, nil
	}

	var def layoutDefinition
	if err := json.Unmarshal(layout.Definition, &def); err != nil {
		log.Printf("[hydrate] Layout %s has an unparseable definition: %v", layout.ID, err)
		return resolved, nil
	}

	var ids []string
	seen := make(map[string]bool)
	for _, section := range def.Sections {
		for _, field := range section.Fields {
			if field.CustomFieldID != "" && !seen[field.CustomFieldID] {
				seen[field.CustomFieldID] = true
				ids = append(ids, field.CustomFieldID)
			}
		}
	}
	if len(ids) == 0 {
		return resolved, nil
	}

	var fields []model.CustomField
	err := s.db.Where("tenant_id = ? AND id IN ?", layout.TenantID, ids).Find(&fields).Error
	if err != nil {
		log.Printf("[hydrate] Error loading custom fields for layout %s: %v", layout.ID, err)
		return resolved, nil
	}
	resolved.CustomFields = fields
	return resolved, nil
}

// CreateLayout stores a form layout for the tenant.
func (s *FormService) CreateLayout(tenantID, actorID string, layout *model.FormLayout) error {
	if layout.Name == "" {
		return fmt.Errorf("%w: layout name is required", ErrValidation)
	}
	layout.TenantID = tenantID
	if err := s.db.Create(layout).Error; err != nil {
		return fmt.Errorf("failed to create form layout: %w", err)
	}
	logAction(s.db, tenantID, actorID, "form_layout.created", "form_layout", layout.ID, nil)
	return nil
}

// ListLayouts returns a tenant's layouts, optionally filtered by request type.
func (s *FormService) ListLayouts(tenantID, requestType string) ([]model.FormLayout, error) {
	query := s.db.Where("tenant_id = ?", tenantID)
	if requestType != "" {
		query = query.Where("request_type = ?", requestType)
	}
	var layouts []model.FormLayout
	if err := query.Order("created_at DESC").Find(&layouts).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch form layouts: %w", err)
	}
	return layouts, nil
}
