package controller

import (
	"net/http"

	"github.com/vakaflow-ai/vakaflow/middleware"
	"github.com/vakaflow-ai/vakaflow/models"
	service "github.com/vakaflow-ai/vakaflow/service"

	"github.com/gin-gonic/gin"
)

// FormController serves form layout resolution and management.
type FormController struct {
	service *service.FormService
}

func NewFormController(service *service.FormService) *FormController {
	return &FormController{service}
}

// ResolveLayout maps (request_type, workflow_stage, agent_type) onto a stored
// form definition with its custom fields hydrated.
func (c *FormController) ResolveLayout(ctx *gin.Context) {
	requestType := ctx.Query("request_type")
	stage := ctx.Query("workflow_stage")
	agentType := ctx.Query("agent_type")
	tenantID := ctx.GetString(middleware.ContextTenantID)
	resolved, err := c.service.ResolveLayout(tenantID, requestType, stage, agentType)
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, resolved)
}

func (c *FormController) CreateLayout(ctx *gin.Context) {
	var layout models.FormLayout
	if err := ctx.ShouldBindJSON(&layout); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tenantID := ctx.GetString(middleware.ContextTenantID)
	userID := ctx.GetString(middleware.ContextUserID)
	if err := c.service.CreateLayout(tenantID, userID, &layout); err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusCreated, layout)
}

func (c *FormController) ListLayouts(ctx *gin.Context) {
	tenantID := ctx.GetString(middleware.ContextTenantID)
	layouts, err := c.service.ListLayouts(tenantID, ctx.Query("request_type"))
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"layouts": layouts, "total": len(layouts)})
}
