package services

import (
	"fmt"
	"log"
	"sort"
	"time"

	model "github.com/vakaflow-ai/vakaflow/models"
	"gorm.io/gorm"
)

// ActionItemService aggregates a user's inbox out of five heterogeneous
// sources and manages individual action items.
type ActionItemService struct {
	db *gorm.DB
}

func NewActionItemService(db *gorm.DB) *ActionItemService {
	return &ActionItemService{db: db}
}

// InboxItem is one row of the aggregated task list, normalized across sources.
type InboxItem struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	ActionType       string     `json:"action_type"`
	SourceType       string     `json:"source_type"`
	SourceID         string     `json:"source_id"`
	WorkflowTicketID string     `json:"workflow_ticket_id"`
	Status           string     `json:"status"`
	Priority         string     `json:"priority"`
	AssignedAt       time.Time  `json:"assigned_at"`
	DueDate          *time.Time `json:"due_date"`
	Overdue          bool       `json:"overdue"`
}

// InboxOptions are the caller's filter and pagination knobs.
type InboxOptions struct {
	Status     string
	ActionType string
	Offset     int
	Limit      int
}

// InboxResult is the aggregated, paginated inbox. The counts are computed
// over the full unfiltered set so a status filter never skews them.
type InboxResult struct {
	Items          []InboxItem `json:"items"`
	TotalCount     int         `json:"total_count"`
	PendingCount   int         `json:"pending_count"`
	CompletedCount int         `json:"completed_count"`
	OverdueCount   int         `json:"overdue_count"`
}

var priorityRank = map[string]int{"critical": 4, "high": 3, "medium": 2, "low": 1}

// GetUserInbox unions pending work from approval steps, assessment action
// items, onboarding requests, tickets and unread messages. Each source is
// queried independently; a failing source contributes zero items instead of
// failing the whole inbox.
func (s *ActionItemService) GetUserInbox(tenantID, userID string, opts InboxOptions) (*InboxResult, error) {
	var user model.User
	if err := s.db.Where("id = ? AND tenant_id = ?", userID, tenantID).First(&user).Error; err != nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}

	var all []InboxItem

	if items, err := s.approvalStepItems(tenantID, &user); err != nil {
		log.Printf("[GetUserInbox] approval step source failed: %v", err)
	} else {
		all = append(all, items...)
	}
	if items, err := s.assessmentItems(tenantID, &user); err != nil {
		log.Printf("[GetUserInbox] assessment item source failed: %v", err)
	} else {
		all = append(all, items...)
	}
	if items, err := s.onboardingItems(tenantID, &user); err != nil {
		log.Printf("[GetUserInbox] onboarding source failed: %v", err)
	} else {
		all = append(all, items...)
	}
	if items, err := s.ticketItems(tenantID, &user); err != nil {
		log.Printf("[GetUserInbox] ticket source failed: %v", err)
	} else {
		all = append(all, items...)
	}
	if items, err := s.messageItems(tenantID, &user); err != nil {
		log.Printf("[GetUserInbox] message source failed: %v", err)
	} else {
		all = append(all, items...)
	}

	all = dedupeItems(all)

	now := time.Now()
	for i := range all {
		if all[i].Status == model.ActionItemStatusPending && all[i].DueDate != nil && all[i].DueDate.Before(now) {
			all[i].Overdue = true
		}
	}

	// Counts come from the full set, before the caller's filters apply.
	result := &InboxResult{}
	for _, item := range all {
		switch item.Status {
		case model.ActionItemStatusPending, model.ActionItemStatusInProgress:
			result.PendingCount++
		case model.ActionItemStatusCompleted:
			result.CompletedCount++
		}
		if item.Overdue {
			result.OverdueCount++
		}
	}

	filtered := all[:0:0]
	for _, item := range all {
		if opts.Status != "" && item.Status != opts.Status {
			continue
		}
		if opts.ActionType != "" && item.ActionType != opts.ActionType {
			continue
		}
		filtered = append(filtered, item)
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].AssignedAt.After(filtered[j].AssignedAt)
	})

	result.TotalCount = len(filtered)
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := opts.Offset
	if offset > len(filtered) {
		offset = len(filtered)
	}
	end := offset + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	result.Items = filtered[offset:end]
	return result, nil
}

// approvalStepItems surfaces live approval steps the user may act on: admins
// see all, others see steps assigned directly or to their role.
func (s *ActionItemService) approvalStepItems(tenantID string, user *model.User) ([]InboxItem, error) {
	query := s.db.Where("tenant_id = ? AND status IN ?", tenantID,
		[]string{model.StepStatusPending, model.StepStatusInProgress})
	if !model.IsAdminRole(user.Role) {
		query = query.Where("assigned_to = ? OR assigned_role = ?", user.ID, user.Role)
	}
	var steps []model.ApprovalStep
	if err := query.Find(&steps).Error; err != nil {
		return nil, err
	}

	items := make([]InboxItem, 0, len(steps))
	for _, step := range steps {
		var instance model.ApprovalInstance
		if err := s.db.Where("id = ?", step.InstanceID).First(&instance).Error; err != nil {
			log.Printf("[approvalStepItems] Missing instance %s for step %s: %v", step.InstanceID, step.ID, err)
			continue
		}
		if instance.Status != model.ApprovalStatusInProgress || instance.CurrentStep != step.StepNumber {
			continue
		}
		var assignment model.AssessmentAssignment
		ticket := ""
		var due *time.Time
		if err := s.db.Where("id = ?", instance.AssignmentID).First(&assignment).Error; err == nil {
			ticket = assignment.WorkflowTicketID
			due = assignment.DueDate
		}
		items = append(items, InboxItem{
			ID:               step.ID,
			Title:            step.Name,
			Description:      fmt.Sprintf("Approval step %d awaiting decision", step.StepNumber),
			ActionType:       "approval",
			SourceType:       model.SourceAssessmentApproval,
			SourceID:         instance.AssignmentID,
			WorkflowTicketID: ticket,
			Status:           model.ActionItemStatusPending,
			Priority:         "high",
			AssignedAt:       step.CreatedAt,
			DueDate:          due,
		})
	}
	return items, nil
}

// assessmentItems returns the user's assessment action items with a
// role-dependent query shape: vendor users see only assignment/resubmission
// work addressed to them, approver-class roles see only approval/review work
// on assignments still in flight, admins see both across the tenant.
func (s *ActionItemService) assessmentItems(tenantID string, user *model.User) ([]InboxItem, error) {
	vendorTypes := []string{model.SourceAssessmentAssignment, model.SourceAssessmentResubmission}
	approverTypes := []string{model.SourceAssessmentApproval, model.SourceAssessmentReview}

	var rows []model.ActionItem
	switch {
	case model.IsAdminRole(user.Role):
		err := s.db.Where("tenant_id = ? AND source_type IN ?", tenantID, append(vendorTypes, approverTypes...)).
			Find(&rows).Error
		if err != nil {
			return nil, err
		}
	case model.IsApproverRole(user.Role):
		err := s.db.Where("tenant_id = ? AND assigned_to = ? AND source_type IN ?", tenantID, user.ID, approverTypes).
			Find(&rows).Error
		if err != nil {
			return nil, err
		}
	default:
		err := s.db.Where("tenant_id = ? AND assigned_to = ? AND source_type IN ?", tenantID, user.ID, vendorTypes).
			Find(&rows).Error
		if err != nil {
			return nil, err
		}
	}

	items := make([]InboxItem, 0, len(rows))
	for _, row := range rows {
		// Approval/review items on already-decided assignments are stale.
		if row.SourceType == model.SourceAssessmentApproval || row.SourceType == model.SourceAssessmentReview {
			var assignment model.AssessmentAssignment
			if err := s.db.Where("id = ?", row.SourceID).First(&assignment).Error; err == nil {
				if row.Status != model.ActionItemStatusCompleted &&
					(assignment.Status == model.AssignmentStatusApproved || assignment.Status == model.AssignmentStatusRejected) {
					continue
				}
			}
		}
		items = append(items, actionItemToInbox(row))
	}
	return items, nil
}

func actionItemToInbox(row model.ActionItem) InboxItem {
	actionType := "task"
	switch row.SourceType {
	case model.SourceAssessmentApproval:
		actionType = "approval"
	case model.SourceAssessmentReview:
		actionType = "review"
	case model.SourceAssessmentAssignment:
		actionType = "assessment"
	case model.SourceAssessmentResubmission:
		actionType = "resubmission"
	}
	return InboxItem{
		ID:               row.ID,
		Title:            row.Title,
		Description:      row.Description,
		ActionType:       actionType,
		SourceType:       row.SourceType,
		SourceID:         row.SourceID,
		WorkflowTicketID: row.WorkflowTicketID,
		Status:           row.Status,
		Priority:         row.Priority,
		AssignedAt:       row.AssignedAt,
		DueDate:          row.DueDate,
	}
}

// onboardingItems surfaces live onboarding requests, classified as approval
// work when the current workflow step is an approval step.
func (s *ActionItemService) onboardingItems(tenantID string, user *model.User) ([]InboxItem, error) {
	query := s.db.Where("tenant_id = ? AND status IN ?", tenantID,
		[]string{model.OnboardingStatusPending, model.OnboardingStatusInProgress})
	if !model.IsAdminRole(user.Role) {
		query = query.Where("assigned_to = ?", user.ID)
	}
	var requests []model.OnboardingRequest
	if err := query.Find(&requests).Error; err != nil {
		return nil, err
	}

	items := make([]InboxItem, 0, len(requests))
	for _, req := range requests {
		actionType := "onboarding_review"
		if step := req.CurrentStepConfig(); step != nil && step.StepType == "approval" {
			actionType = "approval"
		}
		title := "Agent onboarding"
		var agent model.Agent
		if err := s.db.Where("id = ?", req.AgentID).First(&agent).Error; err == nil {
			title = fmt.Sprintf("Agent onboarding: %s", agent.Name)
		}
		items = append(items, InboxItem{
			ID:          req.ID,
			Title:       title,
			Description: fmt.Sprintf("Onboarding request at step %d", req.CurrentStep),
			ActionType:  actionType,
			SourceType:  model.SourceOnboardingRequest,
			SourceID:    req.ID,
			Status:      model.ActionItemStatusPending,
			Priority:    "medium",
			AssignedAt:  req.CreatedAt,
		})
	}
	return items, nil
}

func (s *ActionItemService) ticketItems(tenantID string, user *model.User) ([]InboxItem, error) {
	query := s.db.Where("tenant_id = ? AND status IN ?", tenantID,
		[]string{model.TicketStatusOpen, model.TicketStatusInProgress})
	if !model.IsAdminRole(user.Role) {
		query = query.Where("assigned_to = ?", user.ID)
	}
	var tickets []model.Ticket
	if err := query.Find(&tickets).Error; err != nil {
		return nil, err
	}

	items := make([]InboxItem, 0, len(tickets))
	for _, t := range tickets {
		items = append(items, InboxItem{
			ID:               t.ID,
			Title:            t.Subject,
			Description:      fmt.Sprintf("Ticket %s", t.Code),
			ActionType:       "ticket",
			SourceType:       model.SourceTicket,
			SourceID:         t.ID,
			WorkflowTicketID: t.Code,
			Status:           model.ActionItemStatusPending,
			Priority:         t.Priority,
			AssignedAt:       t.CreatedAt,
			DueDate:          t.DueDate,
		})
	}
	return items, nil
}

func (s *ActionItemService) messageItems(tenantID string, user *model.User) ([]InboxItem, error) {
	var messages []model.Message
	err := s.db.Where("tenant_id = ? AND read = ? AND (recipient_id = ? OR is_public = ?)",
		tenantID, false, user.ID, true).Find(&messages).Error
	if err != nil {
		return nil, err
	}

	items := make([]InboxItem, 0, len(messages))
	for _, m := range messages {
		items = append(items, InboxItem{
			ID:          m.ID,
			Title:       fmt.Sprintf("Message on %s", m.ResourceType),
			Description: m.Body,
			ActionType:  "message",
			SourceType:  model.SourceMessage,
			SourceID:    m.ID,
			Status:      model.ActionItemStatusPending,
			Priority:    "low",
			AssignedAt:  m.CreatedAt,
		})
	}
	return items, nil
}

// dedupeItems collapses duplicates, keying on workflow ticket id first and
// falling back to (source_type, source_id). The richer duplicate wins: one
// with a ticket id, then the higher priority, then the newer assignment.
func dedupeItems(items []InboxItem) []InboxItem {
	keyOf := func(item InboxItem) string {
		if item.WorkflowTicketID != "" {
			return "ticket:" + item.WorkflowTicketID
		}
		return "source:" + item.SourceType + ":" + item.SourceID
	}

	seen := make(map[string]int, len(items))
	out := make([]InboxItem, 0, len(items))
	for _, item := range items {
		key := keyOf(item)
		idx, ok := seen[key]
		if !ok {
			seen[key] = len(out)
			out = append(out, item)
			continue
		}
		if richer(item, out[idx]) {
			out[idx] = item
		}
	}
	return out
}

func richer(a, b InboxItem) bool {
	if (a.WorkflowTicketID != "") != (b.WorkflowTicketID != "") {
		return a.WorkflowTicketID != ""
	}
	if priorityRank[a.Priority] != priorityRank[b.Priority] {
		return priorityRank[a.Priority] > priorityRank[b.Priority]
	}
	return a.AssignedAt.After(b.AssignedAt)
}

// CompleteActionItem marks one of the user's items completed.
func (s *ActionItemService) CompleteActionItem(tenantID, itemID string) error {
	var item model.ActionItem
	if err := s.db.Where("id = ? AND tenant_id = ?", itemID, tenantID).First(&item).Error; err != nil {
		return fmt.Errorf("%w: action item %s", ErrNotFound, itemID)
	}
	now := time.Now()
	err := s.db.Model(&item).Updates(map[string]interface{}{
		"status":       model.ActionItemStatusCompleted,
		"completed_at": now,
		"updated_at":   now,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to complete action item %s: %w", itemID, err)
	}
	log.Printf("[CompleteActionItem] Action item %s completed", itemID)
	return nil
}

// AssignActionItem reassigns an item to a user and sends a best-effort
// notification mail.
func (s *ActionItemService) AssignActionItem(tenantID, itemID, userID string) error {
	var item model.ActionItem
	if err := s.db.Where("id = ? AND tenant_id = ?", itemID, tenantID).First(&item).Error; err != nil {
		return fmt.Errorf("%w: action item %s", ErrNotFound, itemID)
	}
	var user model.User
	if err := s.db.Where("id = ? AND tenant_id = ?", userID, tenantID).First(&user).Error; err != nil {
		return fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}

	item.AssignedTo = user.ID
	item.AssignedAt = time.Now()
	item.UpdatedAt = time.Now()
	if err := s.db.Save(&item).Error; err != nil {
		return fmt.Errorf("failed to reassign action item %s: %w", itemID, err)
	}
	log.Printf("[AssignActionItem] Action item %s assigned to %s", itemID, userID)

	if user.Email != "" {
		if err := sendActionItemEmail(item, user.Email); err != nil {
			log.Printf("[AssignActionItem] Notification mail to %s failed: %v", user.Email, err)
		}
	}
	return nil
}
