package controller

import (
	"net/http"

	"github.com/vakaflow-ai/vakaflow/middleware"
	service "github.com/vakaflow-ai/vakaflow/service"

	"github.com/gin-gonic/gin"
)

// SearchController serves full-text assignment search.
type SearchController struct {
	service *service.SearchService
}

func NewSearchController(service *service.SearchService) *SearchController {
	return &SearchController{service}
}

func (c *SearchController) SearchAssignments(ctx *gin.Context) {
	query := ctx.Query("q")
	if query == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter 'q' is required"})
		return
	}
	tenantID := ctx.GetString(middleware.ContextTenantID)
	results, err := c.service.SearchAssignments(tenantID, query)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Search completed successfully", "results": results})
}
