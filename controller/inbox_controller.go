package controller

import (
	"net/http"
	"strconv"

	"github.com/vakaflow-ai/vakaflow/middleware"
	service "github.com/vakaflow-ai/vakaflow/service"

	"github.com/gin-gonic/gin"
)

// InboxController serves the aggregated task list and action item updates.
type InboxController struct {
	service *service.ActionItemService
}

func NewInboxController(service *service.ActionItemService) *InboxController {
	return &InboxController{service}
}

// GetInbox returns the caller's aggregated, deduplicated, paginated inbox.
func (c *InboxController) GetInbox(ctx *gin.Context) {
	offset, _ := strconv.Atoi(ctx.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "50"))
	opts := service.InboxOptions{
		Status:     ctx.Query("status"),
		ActionType: ctx.Query("action_type"),
		Offset:     offset,
		Limit:      limit,
	}
	tenantID := ctx.GetString(middleware.ContextTenantID)
	userID := ctx.GetString(middleware.ContextUserID)
	result, err := c.service.GetUserInbox(tenantID, userID, opts)
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// CompleteItem marks an action item as completed.
func (c *InboxController) CompleteItem(ctx *gin.Context) {
	itemID := ctx.Param("id")
	if itemID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Action item ID required"})
		return
	}
	tenantID := ctx.GetString(middleware.ContextTenantID)
	if err := c.service.CompleteActionItem(tenantID, itemID); err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Action item marked as completed"})
}

// AssignItem reassigns an action item and sends a notification.
func (c *InboxController) AssignItem(ctx *gin.Context) {
	var request struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user provided", "details": err.Error()})
		return
	}
	tenantID := ctx.GetString(middleware.ContextTenantID)
	if err := c.service.AssignActionItem(tenantID, ctx.Param("id"), request.UserID); err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Action item assigned successfully"})
}
