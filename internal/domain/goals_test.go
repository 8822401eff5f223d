package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/broker-crm-bfa-go/internal/domain"
)

func TestGoalsByYear_GetOrDefault(t *testing.T) {
	stored := &domain.FinancialGoals{Year: 2024, AnnualBilling: 70000}
	goals := domain.GoalsByYear{2024: stored, 2023: nil}

	assert.Same(t, stored, goals.GetOrDefault(2024, domain.DefaultGoals))

	d := goals.GetOrDefault(2023, domain.DefaultGoals)
	assert.Equal(t, 2023, d.Year)
	assert.Equal(t, domain.FallbackExchangeRate, d.ExchangeRate)
	assert.Zero(t, domain.DefaultGoals.Year, "defaults must not be stamped")
}

func TestFinancialGoals_Validate(t *testing.T) {
	g := domain.DefaultGoals
	require.NoError(t, g.Validate())

	g.CommercialWeeks = 60
	var verr *domain.ErrValidation
	require.ErrorAs(t, g.Validate(), &verr)
	assert.Equal(t, "commercialWeeks", verr.Field)

	g = domain.DefaultGoals
	g.CaptationStartDate, g.CaptationEndDate = "2024-06-01", "2024-05-01"
	require.ErrorAs(t, g.Validate(), &verr)
	assert.Equal(t, "captationEndDate", verr.Field)
}

func TestVisitActivity_Projection(t *testing.T) {
	item := domain.VisitActivity{
		Visit:       domain.Visit{ID: "v1", Date: "2024-06-11", BuyerClientID: "b1", Feedback: "liked it", NextSteps: "send offer"},
		ContactName: "Ana",
	}
	entry := domain.ToFeedEntry(item)

	assert.Equal(t, "visit-v1", entry.ID)
	assert.Equal(t, domain.ActivityVisit, entry.Type)
	assert.Equal(t, "liked it | send offer", entry.Notes)
	assert.True(t, entry.SystemGenerated)
	assert.Equal(t, domain.SourceVisit, entry.Source)
}
