package services

import (
	"encoding/json"
	"log"

	model "github.com/vakaflow-ai/vakaflow/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// logAction writes an audit row. Audit is a best-effort sink: failures are
// logged and never surfaced to the caller.
func logAction(db *gorm.DB, tenantID, actorID, action, entityType, entityID string, metadata map[string]interface{}) {
	var blob datatypes.JSON
	if metadata != nil {
		bytes, err := json.Marshal(metadata)
		if err != nil {
			log.Printf("[logAction] Error marshaling metadata for %s: %v", action, err)
		} else {
			blob = datatypes.JSON(bytes)
		}
	}
	entry := model.AuditLog{
		TenantID:   tenantID,
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   blob,
	}
	if err := db.Create(&entry).Error; err != nil {
		log.Printf("[logAction] Error writing audit log for %s on %s %s: %v", action, entityType, entityID, err)
	}
}
