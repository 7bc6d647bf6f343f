package controller

import (
	"log"
	"net/http"

	"github.com/vakaflow-ai/vakaflow/middleware"
	service "github.com/vakaflow-ai/vakaflow/service"

	"github.com/gin-gonic/gin"
)

// AssignmentController manages HTTP requests for assessment assignments and
// their workflow transitions.
type AssignmentController struct {
	service   *service.AssignmentService
	documents *service.DocumentService
}

func NewAssignmentController(svc *service.AssignmentService, documents *service.DocumentService) *AssignmentController {
	return &AssignmentController{service: svc, documents: documents}
}

func (c *AssignmentController) CreateAssignment(ctx *gin.Context) {
	var input service.CreateAssignmentInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	input.AssessmentID = ctx.Param("id")
	tenantID := ctx.GetString(middleware.ContextTenantID)
	userID := ctx.GetString(middleware.ContextUserID)
	assignment, err := c.service.CreateAssignment(tenantID, userID, input)
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusCreated, assignment)
}

func (c *AssignmentController) ListAssignments(ctx *gin.Context) {
	tenantID := ctx.GetString(middleware.ContextTenantID)
	assignments, err := c.service.ListAssignments(tenantID, ctx.Query("status"))
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"assignments": assignments, "total": len(assignments)})
}

func (c *AssignmentController) GetAssignment(ctx *gin.Context) {
	tenantID := ctx.GetString(middleware.ContextTenantID)
	assignment, err := c.service.GetAssignment(tenantID, ctx.Param("id"))
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, assignment)
}

// SaveResponses upserts the submitted answers. A non-draft save runs
// completion detection and may trigger the approval workflow.
func (c *AssignmentController) SaveResponses(ctx *gin.Context) {
	var input service.SaveResponsesInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tenantID := ctx.GetString(middleware.ContextTenantID)
	userID := ctx.GetString(middleware.ContextUserID)
	assignment, completed, err := c.service.SaveResponses(tenantID, userID, ctx.Param("id"), input)
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"message":    "Responses saved successfully",
		"assignment": assignment,
		"completed":  completed,
	})
}

func (c *AssignmentController) ReviewQuestion(ctx *gin.Context) {
	var request struct {
		Status  string `json:"status" binding:"required"`
		Comment string `json:"comment"`
	}
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tenantID := ctx.GetString(middleware.ContextTenantID)
	userID := ctx.GetString(middleware.ContextUserID)
	review, err := c.service.ReviewQuestion(tenantID, userID, ctx.Param("id"), ctx.Param("qid"), request.Status, request.Comment)
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, review)
}

// SubmitDecision applies an approver's final verdict on the assignment.
func (c *AssignmentController) SubmitDecision(ctx *gin.Context) {
	var input service.FinalDecisionInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tenantID := ctx.GetString(middleware.ContextTenantID)
	userID := ctx.GetString(middleware.ContextUserID)
	assignment, err := c.service.SubmitFinalDecision(tenantID, userID, ctx.Param("id"), input)
	if err != nil {
		log.Printf("[SubmitDecision] Error applying decision: %v", err)
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Decision applied successfully", "assignment": assignment})
}

// UploadEvidence attaches a file to a question response.
func (c *AssignmentController) UploadEvidence(ctx *gin.Context) {
	if c.documents == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "Evidence storage is not configured"})
		return
	}
	questionID := ctx.PostForm("question_id")
	if questionID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "question_id is required"})
		return
	}
	file, header, err := ctx.Request.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Failed to get file from request"})
		return
	}
	defer file.Close()

	tenantID := ctx.GetString(middleware.ContextTenantID)
	userID := ctx.GetString(middleware.ContextUserID)
	fileURL, err := c.documents.UploadEvidence(tenantID, userID, ctx.Param("id"), questionID, file, header)
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Evidence uploaded successfully", "fileURL": fileURL})
}
