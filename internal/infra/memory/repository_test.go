package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/broker-crm-bfa-go/internal/domain"
	"github.com/boddenberg/broker-crm-bfa-go/internal/infra/memory"
	"github.com/boddenberg/broker-crm-bfa-go/internal/port"
)

var (
	_ port.RecordRepository = (*memory.Repository)(nil)
	_ port.TeamDirectory    = (*memory.Repository)(nil)
	_ port.HealthChecker    = (*memory.Repository)(nil)
)

func TestLoadRecords_ReturnsCopies(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	repo.Seed("agent-1", domain.RecordSet{Activities: []domain.Activity{{ID: "a1", Date: "2024-01-01"}}})

	set, err := repo.LoadRecords(ctx, "agent-1")
	require.NoError(t, err)
	set.Activities[0].Notes = "changed"

	again, err := repo.LoadRecords(ctx, "agent-1")
	require.NoError(t, err)
	assert.Empty(t, again.Activities[0].Notes)
}

func TestDelete_UnknownIsNotFound(t *testing.T) {
	repo := memory.New()

	err := repo.DeleteClosing(context.Background(), "agent-1", "nope")
	var nf *domain.ErrNotFound
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "closing", nf.Resource)
}

func TestUpdates(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	require.NoError(t, repo.InsertProperty(ctx, "a", &domain.Property{ID: "p1", Status: domain.PropertyAvailable}))
	require.NoError(t, repo.UpdatePropertyStatus(ctx, "a", "p1", domain.PropertySold))
	require.NoError(t, repo.InsertVisit(ctx, "a", &domain.Visit{ID: "v1", Status: domain.VisitPending}))
	require.NoError(t, repo.UpdateVisit(ctx, "a", &domain.Visit{ID: "v1", Status: domain.VisitCompleted}))
	require.NoError(t, repo.InsertSearch(ctx, "a", &domain.BuyerSearch{ID: "s1", Status: domain.SearchActive}))
	require.NoError(t, repo.UpdateSearchStatus(ctx, "a", "s1", domain.SearchDropped))

	set, err := repo.LoadRecords(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, domain.PropertySold, set.Properties[0].Status)
	assert.Equal(t, domain.VisitCompleted, set.Visits[0].Status)
	assert.Equal(t, domain.SearchDropped, set.Searches[0].Status)
}

func TestUpsertGoals_ReplacesSameYear(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	require.NoError(t, repo.UpsertGoals(ctx, "a", &domain.FinancialGoals{Year: 2024, AnnualBilling: 1}))
	require.NoError(t, repo.UpsertGoals(ctx, "a", &domain.FinancialGoals{Year: 2024, AnnualBilling: 2}))
	require.NoError(t, repo.UpsertGoals(ctx, "a", &domain.FinancialGoals{Year: 2025, AnnualBilling: 3}))

	set, err := repo.LoadRecords(ctx, "a")
	require.NoError(t, err)
	require.Len(t, set.Goals, 2)
	assert.Equal(t, 2.0, set.Goals[0].AnnualBilling)
}

func TestTeam(t *testing.T) {
	repo := memory.New()
	repo.SetTeam("m", []domain.TeamMember{{AgentID: "a", Name: "Ana"}})

	members, err := repo.ListTeamMembers(context.Background(), "m")
	require.NoError(t, err)
	assert.Len(t, members, 1)

	none, err := repo.ListTeamMembers(context.Background(), "other")
	require.NoError(t, err)
	assert.Empty(t, none)
}
