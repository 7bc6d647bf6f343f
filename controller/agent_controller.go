package controller

import (
	"net/http"

	"github.com/vakaflow-ai/vakaflow/middleware"
	"github.com/vakaflow-ai/vakaflow/models"
	service "github.com/vakaflow-ai/vakaflow/service"

	"github.com/gin-gonic/gin"
)

// AgentController manages agent registration and onboarding workflow requests.
type AgentController struct {
	service *service.OnboardingService
}

func NewAgentController(service *service.OnboardingService) *AgentController {
	return &AgentController{service}
}

func (c *AgentController) RegisterAgent(ctx *gin.Context) {
	var agent models.Agent
	if err := ctx.ShouldBindJSON(&agent); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tenantID := ctx.GetString(middleware.ContextTenantID)
	userID := ctx.GetString(middleware.ContextUserID)
	if err := c.service.RegisterAgent(tenantID, userID, &agent); err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusCreated, agent)
}

func (c *AgentController) ListAgents(ctx *gin.Context) {
	tenantID := ctx.GetString(middleware.ContextTenantID)
	agents, err := c.service.ListAgents(tenantID, ctx.Query("status"))
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"agents": agents, "total": len(agents)})
}

// SubmitAgent starts (or idempotently returns) the agent's onboarding request.
func (c *AgentController) SubmitAgent(ctx *gin.Context) {
	tenantID := ctx.GetString(middleware.ContextTenantID)
	userID := ctx.GetString(middleware.ContextUserID)
	request, err := c.service.SubmitAgent(tenantID, userID, ctx.Param("id"))
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Agent submitted for onboarding", "request": request})
}

// DecideOnboarding applies an approve/reject verdict to an onboarding request.
func (c *AgentController) DecideOnboarding(ctx *gin.Context) {
	var request struct {
		Decision string `json:"decision" binding:"required"`
		Comment  string `json:"comment"`
	}
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tenantID := ctx.GetString(middleware.ContextTenantID)
	userID := ctx.GetString(middleware.ContextUserID)
	result, err := c.service.DecideOnboarding(tenantID, userID, ctx.Param("id"), request.Decision, request.Comment)
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Decision applied successfully", "request": result})
}
