package services

import (
	"testing"

	model "github.com/vakaflow-ai/vakaflow/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAgent_RequiresName(t *testing.T) {
	db := newTestDB(t)
	svc := NewOnboardingService(db, NewWorkflowService(db))
	tenantID := newTenantID()

	err := svc.RegisterAgent(tenantID, newTenantID(), &model.Agent{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)

	agent := model.Agent{Name: "Copilot"}
	require.NoError(t, svc.RegisterAgent(tenantID, newTenantID(), &agent))
	assert.Equal(t, model.AgentStatusDraft, agent.Status)
	assert.Equal(t, tenantID, agent.TenantID)
}

func TestSubmitAgent_Idempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewOnboardingService(db, NewWorkflowService(db))
	tenantID := newTenantID()
	approver := seedUser(t, db, tenantID, model.RoleApprover, "approver@example.com")
	requester := seedUser(t, db, tenantID, model.RoleVendorUser, "vendor@example.com")

	agent := model.Agent{Name: "Copilot"}
	require.NoError(t, svc.RegisterAgent(tenantID, requester.ID, &agent))

	first, err := svc.SubmitAgent(tenantID, requester.ID, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OnboardingStatusPending, first.Status)
	assert.Equal(t, approver.ID, first.AssignedTo)

	second, err := svc.SubmitAgent(tenantID, requester.ID, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var requestCount int64
	require.NoError(t, db.Model(&model.OnboardingRequest{}).
		Where("agent_id = ?", agent.ID).Count(&requestCount).Error)
	assert.EqualValues(t, 1, requestCount)

	var itemCount int64
	require.NoError(t, db.Model(&model.ActionItem{}).
		Where("source_type = ? AND source_id = ?", model.SourceOnboardingRequest, first.ID).
		Count(&itemCount).Error)
	assert.EqualValues(t, 1, itemCount)

	require.NoError(t, db.First(&agent, "id = ?", agent.ID).Error)
	assert.Equal(t, model.AgentStatusSubmitted, agent.Status)
}

func TestSubmitAgent_ApprovedAgentConflicts(t *testing.T) {
	db := newTestDB(t)
	svc := NewOnboardingService(db, NewWorkflowService(db))
	tenantID := newTenantID()

	agent := model.Agent{TenantID: tenantID, Name: "Copilot", Status: model.AgentStatusApproved}
	require.NoError(t, db.Create(&agent).Error)

	_, err := svc.SubmitAgent(tenantID, newTenantID(), agent.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestDecideOnboarding_ApproveWalksSteps(t *testing.T) {
	db := newTestDB(t)
	svc := NewOnboardingService(db, NewWorkflowService(db))
	tenantID := newTenantID()
	approver := seedUser(t, db, tenantID, model.RoleApprover, "approver@example.com")
	requester := seedUser(t, db, tenantID, model.RoleVendorUser, "vendor@example.com")

	agent := model.Agent{Name: "Copilot"}
	require.NoError(t, svc.RegisterAgent(tenantID, requester.ID, &agent))
	request, err := svc.SubmitAgent(tenantID, requester.ID, agent.ID)
	require.NoError(t, err)

	// Two default steps: the first approve advances, the second completes.
	advanced, err := svc.DecideOnboarding(tenantID, approver.ID, request.ID, "approve", "")
	require.NoError(t, err)
	assert.Equal(t, model.OnboardingStatusInProgress, advanced.Status)
	assert.Equal(t, 2, advanced.CurrentStep)

	done, err := svc.DecideOnboarding(tenantID, approver.ID, request.ID, "approve", "welcome aboard")
	require.NoError(t, err)
	assert.Equal(t, model.OnboardingStatusCompleted, done.Status)

	require.NoError(t, db.First(&agent, "id = ?", agent.ID).Error)
	assert.Equal(t, model.AgentStatusApproved, agent.Status)
	assert.Equal(t, 100.0, agent.ComplianceScore)

	_, err = svc.DecideOnboarding(tenantID, approver.ID, request.ID, "approve", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestDecideOnboarding_RejectIsTerminal(t *testing.T) {
	db := newTestDB(t)
	svc := NewOnboardingService(db, NewWorkflowService(db))
	tenantID := newTenantID()
	approver := seedUser(t, db, tenantID, model.RoleApprover, "approver@example.com")
	requester := seedUser(t, db, tenantID, model.RoleVendorUser, "vendor@example.com")

	agent := model.Agent{Name: "Copilot"}
	require.NoError(t, svc.RegisterAgent(tenantID, requester.ID, &agent))
	request, err := svc.SubmitAgent(tenantID, requester.ID, agent.ID)
	require.NoError(t, err)

	rejected, err := svc.DecideOnboarding(tenantID, approver.ID, request.ID, "reject", "insufficient controls")
	require.NoError(t, err)
	assert.Equal(t, model.OnboardingStatusRejected, rejected.Status)

	require.NoError(t, db.First(&agent, "id = ?", agent.ID).Error)
	assert.Equal(t, model.AgentStatusRejected, agent.Status)
}

func TestDecideOnboarding_InvalidDecision(t *testing.T) {
	db := newTestDB(t)
	svc := NewOnboardingService(db, NewWorkflowService(db))
	tenantID := newTenantID()

	_, err := svc.DecideOnboarding(tenantID, newTenantID(), newTenantID(), "defer", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}
