package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProcessMapping binds a request type's workflow stages to form layouts. The
// StageMappings blob is a JSON object of stage name -> layout UUID.
type ProcessMapping struct {
	ID            string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID      string         `gorm:"type:uuid;not null;index" json:"tenant_id"`
	RequestType   string         `gorm:"not null;index" json:"request_type"`
	StageMappings datatypes.JSON `json:"stage_mappings"`
	IsActive      bool           `gorm:"default:true" json:"is_active"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (m *ProcessMapping) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// LayoutIDForStage returns the mapped layout id for a stage, if any.
func (m *ProcessMapping) LayoutIDForStage(stage string) string {
	if len(m.StageMappings) == 0 {
		return ""
	}
	var mappings map[string]string
	if err := json.Unmarshal(m.StageMappings, &mappings); err != nil {
		return ""
	}
	return mappings[stage]
}

// FormLayout is a stored form definition: sections plus field references.
// Custom fields are referenced by id and hydrated from the catalog at read
// time, never duplicated into the layout row.
type FormLayout struct {
	ID          string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID    string         `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Name        string         `gorm:"not null" json:"name"`
	RequestType string         `gorm:"index" json:"request_type"`
	LayoutType  string         `gorm:"index" json:"layout_type"`
	AgentType   string         `json:"agent_type"`
	IsDefault   bool           `gorm:"default:false" json:"is_default"`
	Definition  datatypes.JSON `json:"definition"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (l *FormLayout) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// CustomField is a catalog entry referenced from form layout definitions.
type CustomField struct {
	ID        string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID  string         `gorm:"type:uuid;not null;index" json:"tenant_id"`
	FieldKey  string         `gorm:"not null" json:"field_key"`
	Label     string         `json:"label"`
	FieldType string         `json:"field_type"`
	Options   datatypes.JSON `json:"options"`
	CreatedAt time.Time      `json:"created_at"`
}

func (f *CustomField) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}
