package models

// Assignment lifecycle status constants.
const (
	AssignmentStatusPending       = "pending"
	AssignmentStatusInProgress    = "in_progress"
	AssignmentStatusCompleted     = "completed"
	AssignmentStatusApproved      = "approved"
	AssignmentStatusRejected      = "rejected"
	AssignmentStatusNeedsRevision = "needs_revision"
	AssignmentStatusCancelled     = "cancelled"
	AssignmentStatusOverdue       = "overdue"
)

// Approval instance status constants.
const (
	ApprovalStatusInProgress = "in_progress"
	ApprovalStatusApproved   = "approved"
	ApprovalStatusRejected   = "rejected"
)

// Approval step status constants.
const (
	StepStatusPending    = "pending"
	StepStatusInProgress = "in_progress"
	StepStatusCompleted  = "completed"
)

// Action item status constants.
const (
	ActionItemStatusPending    = "pending"
	ActionItemStatusInProgress = "in_progress"
	ActionItemStatusCompleted  = "completed"
)

// Action item source types. The inbox aggregator filters on these.
const (
	SourceAssessmentAssignment   = "assessment_assignment"
	SourceAssessmentResubmission = "assessment_resubmission"
	SourceAssessmentApproval     = "assessment_approval"
	SourceAssessmentReview       = "assessment_review"
	SourceOnboardingRequest      = "onboarding_request"
	SourceTicket                 = "ticket"
	SourceMessage                = "message"
)

// Question review status constants.
const (
	ReviewStatusPending    = "pending"
	ReviewStatusPass       = "pass"
	ReviewStatusFail       = "fail"
	ReviewStatusInProgress = "in_progress"
	ReviewStatusResolved   = "resolved"
)

// Final decision values accepted from approvers.
const (
	DecisionAccepted = "accepted"
	DecisionDenied   = "denied"
	DecisionNeedInfo = "need_info"
)

// Question types.
const (
	QuestionTypeNew                  = "new_question"
	QuestionTypeRequirementReference = "requirement_reference"
)

// User roles.
const (
	RoleVendorUser    = "vendor_user"
	RoleReviewer      = "reviewer"
	RoleApprover      = "approver"
	RoleAdmin         = "admin"
	RoleTenantAdmin   = "tenant_admin"
	RolePlatformAdmin = "platform_admin"
)

// Agent lifecycle status constants.
const (
	AgentStatusDraft     = "draft"
	AgentStatusSubmitted = "submitted"
	AgentStatusApproved  = "approved"
	AgentStatusRejected  = "rejected"
)

// Onboarding request status constants.
const (
	OnboardingStatusPending    = "pending"
	OnboardingStatusInProgress = "in_progress"
	OnboardingStatusCompleted  = "completed"
	OnboardingStatusRejected   = "rejected"
)

// Ticket status constants.
const (
	TicketStatusOpen       = "open"
	TicketStatusInProgress = "in_progress"
	TicketStatusClosed     = "closed"
)

// IsApproverRole reports whether a role may act on approval steps.
func IsApproverRole(role string) bool {
	switch role {
	case RoleApprover, RoleReviewer, RoleAdmin, RoleTenantAdmin, RolePlatformAdmin:
		return true
	}
	return false
}

// IsAdminRole reports whether a role sees tenant-wide inbox items.
func IsAdminRole(role string) bool {
	switch role {
	case RoleAdmin, RoleTenantAdmin, RolePlatformAdmin:
		return true
	}
	return false
}
