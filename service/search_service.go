package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	model "github.com/vakaflow-ai/vakaflow/models"

	"github.com/elastic/go-elasticsearch/v8"
)

// SearchService indexes assignments into Elasticsearch and serves the search
// endpoint. The client is optional: with no ELASTICSEARCH_URL configured all
// indexing is skipped and searches fail with an explicit error.
type SearchService struct {
	esClient *elasticsearch.Client
}

func NewSearchService() *SearchService {
	esURL := os.Getenv("ELASTICSEARCH_URL")
	var esClient *elasticsearch.Client
	if esURL != "" {
		esConfig := elasticsearch.Config{
			Addresses: []string{esURL},
		}
		var err error
		esClient, err = elasticsearch.NewClient(esConfig)
		if err != nil {
			log.Printf("Warning: Failed to create Elasticsearch client: %v", err)
		}
	}
	return &SearchService{esClient: esClient}
}

// IndexAssignment writes the assignment into the assignments index.
// Best-effort: indexing failures are logged, never returned.
func (s *SearchService) IndexAssignment(assignment *model.AssessmentAssignment) {
	if s.esClient == nil {
		log.Println("Elasticsearch client not initialized. Skipping indexing.")
		return
	}

	doc := map[string]interface{}{
		"assignment_id":      assignment.ID,
		"tenant_id":          assignment.TenantID,
		"assessment_id":      assignment.AssessmentID,
		"vendor_id":          assignment.VendorID,
		"agent_id":           assignment.AgentID,
		"status":             assignment.Status,
		"workflow_ticket_id": assignment.WorkflowTicketID,
		"timestamp":          time.Now().UTC(),
	}

	body, err := json.Marshal(doc)
	if err != nil {
		log.Printf("[IndexAssignment] Error marshaling assignment %s: %v", assignment.ID, err)
		return
	}

	res, err := s.esClient.Index(
		"assignments",
		bytes.NewReader(body),
		s.esClient.Index.WithDocumentID(assignment.ID),
		s.esClient.Index.WithContext(context.Background()),
	)
	if err != nil {
		log.Printf("[IndexAssignment] Elasticsearch indexing error: %v", err)
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Printf("[IndexAssignment] Elasticsearch indexing failed: %s", res.String())
		return
	}
	log.Printf("[IndexAssignment] Assignment %s indexed", assignment.ID)
}

// SearchAssignments runs a multi-field query against the assignments index.
func (s *SearchService) SearchAssignments(tenantID, query string) ([]map[string]interface{}, error) {
	if s.esClient == nil {
		return nil, fmt.Errorf("elasticsearch client is not initialized")
	}

	searchQuery := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": map[string]interface{}{
					"multi_match": map[string]interface{}{
						"query":  query,
						"fields": []string{"workflow_ticket_id", "status", "assessment_id"},
					},
				},
				"filter": map[string]interface{}{
					"term": map[string]interface{}{"tenant_id": tenantID},
				},
			},
		},
	}
	body, err := json.Marshal(searchQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := s.esClient.Search(
		s.esClient.Search.WithContext(context.Background()),
		s.esClient.Search.WithIndex("assignments"),
		s.esClient.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch search failed: %s", res.String())
	}

	var result map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	hitsMap, ok := result["hits"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid hits structure in search response")
	}
	hitsArray, ok := hitsMap["hits"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid hits array in search response")
	}

	var assignments []map[string]interface{}
	for _, hit := range hitsArray {
		hitMap, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}
		source, ok := hitMap["_source"].(map[string]interface{})
		if !ok {
			continue
		}
		assignments = append(assignments, source)
	}
	return assignments, nil
}
