package controller

import (
	"net/http"

	"github.com/vakaflow-ai/vakaflow/middleware"
	"github.com/vakaflow-ai/vakaflow/models"
	service "github.com/vakaflow-ai/vakaflow/service"

	"github.com/gin-gonic/gin"
)

// AssessmentController manages HTTP requests for assessment templates.
type AssessmentController struct {
	service *service.AssessmentService
}

func NewAssessmentController(service *service.AssessmentService) *AssessmentController {
	return &AssessmentController{service}
}

func (c *AssessmentController) CreateAssessment(ctx *gin.Context) {
	var assessment models.Assessment
	if err := ctx.ShouldBindJSON(&assessment); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if assessment.Name == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Assessment name is required"})
		return
	}
	tenantID := ctx.GetString(middleware.ContextTenantID)
	userID := ctx.GetString(middleware.ContextUserID)
	if err := c.service.CreateAssessment(tenantID, userID, &assessment); err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusCreated, assessment)
}

func (c *AssessmentController) ListAssessments(ctx *gin.Context) {
	tenantID := ctx.GetString(middleware.ContextTenantID)
	assessments, err := c.service.ListAssessments(tenantID)
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"assessments": assessments, "total": len(assessments)})
}

func (c *AssessmentController) GetAssessment(ctx *gin.Context) {
	tenantID := ctx.GetString(middleware.ContextTenantID)
	assessment, err := c.service.GetAssessment(tenantID, ctx.Param("id"))
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, assessment)
}

func (c *AssessmentController) UpdateAssessment(ctx *gin.Context) {
	var updates map[string]interface{}
	if err := ctx.ShouldBindJSON(&updates); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tenantID := ctx.GetString(middleware.ContextTenantID)
	userID := ctx.GetString(middleware.ContextUserID)
	assessment, err := c.service.UpdateAssessment(tenantID, userID, ctx.Param("id"), updates)
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, assessment)
}

func (c *AssessmentController) DeleteAssessment(ctx *gin.Context) {
	tenantID := ctx.GetString(middleware.ContextTenantID)
	userID := ctx.GetString(middleware.ContextUserID)
	if err := c.service.DeleteAssessment(tenantID, userID, ctx.Param("id")); err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (c *AssessmentController) AddQuestion(ctx *gin.Context) {
	var question models.AssessmentQuestion
	if err := ctx.ShouldBindJSON(&question); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tenantID := ctx.GetString(middleware.ContextTenantID)
	if err := c.service.AddQuestion(tenantID, ctx.Param("id"), &question); err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusCreated, question)
}

func (c *AssessmentController) ListQuestions(ctx *gin.Context) {
	tenantID := ctx.GetString(middleware.ContextTenantID)
	questions, err := c.service.ListQuestions(tenantID, ctx.Param("id"))
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"questions": questions, "total": len(questions)})
}

// PopulateQuestions bulk-copies library questions into the assessment.
func (c *AssessmentController) PopulateQuestions(ctx *gin.Context) {
	var request struct {
		LibraryQuestionIDs []string `json:"library_question_ids" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tenantID := ctx.GetString(middleware.ContextTenantID)
	created, err := c.service.PopulateFromLibrary(tenantID, ctx.Param("id"), request.LibraryQuestionIDs)
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"message": "Questions populated successfully", "created": created})
}
