package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/broker-crm-bfa-go/internal/domain"
	"github.com/boddenberg/broker-crm-bfa-go/internal/infra/cache"
	"github.com/boddenberg/broker-crm-bfa-go/internal/service"
)

func newRates(fetcher *mockFetcher, repo *mockRepo) (*service.ExchangeRateService, *cache.InMemory[domain.ExchangeRateQuote]) {
	ws, metrics := newWorkspaces(repo)
	c := cache.New[domain.ExchangeRateQuote](time.Minute)
	return service.NewExchangeRateService(fetcher, c, ws, metrics, zap.NewNop()), c
}

func blueQuote() *domain.ExchangeRateQuote {
	return &domain.ExchangeRateQuote{Source: "blue", Buy: 1180, Sell: 1200, Rate: 1200, FetchedAt: "2024-06-12T15:00:00Z"}
}

func TestRates_CurrentIsCached(t *testing.T) {
	fetcher := &mockFetcher{quote: blueQuote()}
	svc, c := newRates(fetcher, newMockRepo())
	defer c.Close()
	ctx := context.Background()

	q, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1200.0, q.Rate)

	_, err = svc.Current(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, fetcher.calls.Load())
}

func TestRates_RefreshServesLastQuoteOnFailure(t *testing.T) {
	fetcher := &mockFetcher{quote: blueQuote()}
	svc, c := newRates(fetcher, newMockRepo())
	defer c.Close()
	ctx := context.Background()

	_, err := svc.Refresh(ctx)
	require.NoError(t, err)

	fetcher.err = errors.New("rate API down")
	q, err := svc.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1200.0, q.Rate)
}

func TestRates_RefreshFailsWithoutHistory(t *testing.T) {
	fetcher := &mockFetcher{err: &domain.ErrCircuitOpen{Service: "exchange-rate"}}
	svc, c := newRates(fetcher, newMockRepo())
	defer c.Close()

	_, err := svc.Current(context.Background())
	var open *domain.ErrCircuitOpen
	assert.ErrorAs(t, err, &open)
}

func TestRates_SyncGoalsWritesAndSavesRate(t *testing.T) {
	repo := newMockRepo()
	repo.sets["agent-1"] = &domain.RecordSet{
		Goals: []domain.FinancialGoals{{Year: 2024, AnnualBilling: 50000, CommercialWeeks: 48, ExchangeRate: 1000}},
	}
	svc, c := newRates(&mockFetcher{quote: blueQuote()}, repo)
	defer c.Close()

	st, err := svc.SyncGoals(context.Background(), "agent-1", 2024)
	require.NoError(t, err)
	assert.Equal(t, 1200.0, st.Goals.ExchangeRate)
	assert.Equal(t, 50000.0, st.Goals.AnnualBilling)
	assert.False(t, st.Unsaved)

	require.Len(t, repo.goals, 1)
	assert.Equal(t, 1200.0, repo.goals[0].ExchangeRate)
}
