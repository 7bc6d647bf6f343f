package main

import (
	"log"
	"net/http"

	controller "github.com/vakaflow-ai/vakaflow/controller"
	"github.com/vakaflow-ai/vakaflow/initializers"
	middleware "github.com/vakaflow-ai/vakaflow/middleware"
	service "github.com/vakaflow-ai/vakaflow/service"

	"github.com/gin-gonic/gin"
)

func init() {
	if err := initializers.LoadEnv(); err != nil {
		log.Printf("[WARN] No env file loaded: %s", err)
	}
	if err := initializers.ConnectDB(); err != nil {
		log.Fatalf("[CRITICAL] Failed to initialize database connection: %s", err)
	}
	if err := initializers.Migrate(); err != nil {
		log.Fatalf("[CRITICAL] Failed to run database migrations: %s", err)
	}
}

func main() {
	db := initializers.DB

	searchService := service.NewSearchService()
	workflowService := service.NewWorkflowService(db)
	assessmentService := service.NewAssessmentService(db)
	assignmentService := service.NewAssignmentService(db, workflowService, searchService)
	actionItemService := service.NewActionItemService(db)
	formService := service.NewFormService(db)
	onboardingService := service.NewOnboardingService(db, workflowService)

	// Evidence storage is optional; the upload endpoint reports unavailable
	// when S3 is not configured.
	documentService, err := service.NewDocumentService(db)
	if err != nil {
		log.Printf("[WARN] Evidence storage disabled: %s", err)
	}

	assessmentController := controller.NewAssessmentController(assessmentService)
	assignmentController := controller.NewAssignmentController(assignmentService, documentService)
	inboxController := controller.NewInboxController(actionItemService)
	agentController := controller.NewAgentController(onboardingService)
	formController := controller.NewFormController(formService)
	searchController := controller.NewSearchController(searchService)

	router := gin.Default()
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.GlobalRateLimiter.Limit())

	// Healthcheck endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	api := router.Group("/", middleware.TenantContext())

	api.POST("/assessments",
		middleware.StrictRateLimiter.Limit(),
		assessmentController.CreateAssessment)
	api.GET("/assessments", assessmentController.ListAssessments)
	api.GET("/assessments/:id", assessmentController.GetAssessment)
	api.PUT("/assessments/:id", assessmentController.UpdateAssessment)
	api.DELETE("/assessments/:id", assessmentController.DeleteAssessment)
	api.POST("/assessments/:id/questions", assessmentController.AddQuestion)
	api.GET("/assessments/:id/questions", assessmentController.ListQuestions)
	api.POST("/assessments/:id/questions/populate", assessmentController.PopulateQuestions)
	api.POST("/assessments/:id/assignments",
		middleware.StrictRateLimiter.Limit(),
		assignmentController.CreateAssignment)

	api.GET("/assignments", assignmentController.ListAssignments)
	api.GET("/assignments/:id", assignmentController.GetAssignment)
	api.POST("/assignments/:id/responses",
		middleware.StrictRateLimiter.Limit(),
		assignmentController.SaveResponses)
	api.POST("/assignments/:id/evidence",
		middleware.StrictRateLimiter.Limit(),
		assignmentController.UploadEvidence)
	api.POST("/assignments/:id/questions/:qid/review", assignmentController.ReviewQuestion)
	api.POST("/assignments/:id/decision",
		middleware.StrictRateLimiter.Limit(),
		assignmentController.SubmitDecision)

	api.GET("/inbox", inboxController.GetInbox)
	api.PUT("/action-items/:id/complete", inboxController.CompleteItem)
	api.POST("/action-items/:id/assign", inboxController.AssignItem)

	api.POST("/agents", agentController.RegisterAgent)
	api.GET("/agents", agentController.ListAgents)
	api.POST("/agents/:id/submit",
		middleware.StrictRateLimiter.Limit(),
		agentController.SubmitAgent)
	api.POST("/onboarding/:id/decision", agentController.DecideOnboarding)

	api.GET("/form-layouts/resolve", formController.ResolveLayout)
	api.POST("/form-layouts", formController.CreateLayout)
	api.GET("/form-layouts", formController.ListLayouts)

	api.GET("/search", searchController.SearchAssignments)

	router.Run(":8080")
}
