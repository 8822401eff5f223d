package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/broker-crm-bfa-go/internal/domain"
	"github.com/boddenberg/broker-crm-bfa-go/internal/service"
)

func TestTeam_SummaryTotalsAndMemberErrors(t *testing.T) {
	repo := newMockRepo()
	repo.sets["a"] = &domain.RecordSet{Closings: []domain.Closing{
		{ID: "c1", Date: "2024-02-01", Currency: domain.CurrencyUSD, SalePrice: 100000, CommissionPercent: 3, Sides: 1},
	}}
	repo.sets["b"] = &domain.RecordSet{Closings: []domain.Closing{
		{ID: "c2", Date: "2024-04-01", Currency: domain.CurrencyUSD, SalePrice: 200000, CommissionPercent: 4, Sides: 2},
	}}
	repo.loadErr["c"] = errors.New("backend down")

	ws, metrics := newWorkspaces(repo)
	dir := &mockDirectory{members: []domain.TeamMember{
		{AgentID: "a", Name: "Agente A"},
		{AgentID: "b", Name: "Agente B"},
		{AgentID: "c", Name: "Agente C"},
	}}
	svc := service.NewTeamService(dir, ws, 2, metrics, zap.NewNop())

	sum, err := svc.Summary(context.Background(), "mother-1")
	require.NoError(t, err)
	require.Len(t, sum.Members, 3)

	assert.Equal(t, "a", sum.Members[0].AgentID)
	require.NotNil(t, sum.Members[0].Home)
	assert.Equal(t, 3000.0, sum.Members[0].Home.Billing)

	assert.Nil(t, sum.Members[2].Home)
	assert.Contains(t, sum.Members[2].Error, "backend down")

	assert.Equal(t, 11000.0, sum.TotalBilling)
	assert.Equal(t, 3, sum.TotalSides)
}

func TestTeam_DirectoryError(t *testing.T) {
	ws, metrics := newWorkspaces(newMockRepo())
	svc := service.NewTeamService(&mockDirectory{err: &domain.ErrExternalService{Service: "supabase"}}, ws, 2, metrics, zap.NewNop())

	_, err := svc.Summary(context.Background(), "mother-1")
	var ext *domain.ErrExternalService
	assert.ErrorAs(t, err, &ext)
}

func TestTeam_NotAMotherAccount(t *testing.T) {
	ws, metrics := newWorkspaces(newMockRepo())
	svc := service.NewTeamService(&mockDirectory{}, ws, 2, metrics, zap.NewNop())

	sum, err := svc.Summary(context.Background(), "agent-1")

	var forbidden *domain.ErrForbidden
	require.ErrorAs(t, err, &forbidden)
	assert.Nil(t, sum)
}
