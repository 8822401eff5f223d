package analytics

import "github.com/boddenberg/broker-crm-bfa-go/internal/domain"

// ToUSD converts amount to USD. ARS amounts are divided by rate (ARS per
// USD); a non-positive rate yields 0 rather than Inf.
func ToUSD(amount float64, currency domain.Currency, rate float64) float64 {
	if currency != domain.CurrencyARS {
		return amount
	}
	if rate <= 0 {
		return 0
	}
	return amount / rate
}

// historicalRate is the rate a closing of year must be converted with:
// that year's goal rate, then the rate captured on the closing, then the
// fallback. It never uses the currently selected year's rate.
func historicalRate(goals domain.GoalsByYear, year int, c *domain.Closing) float64 {
	if g, ok := goals.Lookup(year); ok && g.ExchangeRate > 0 {
		return g.ExchangeRate
	}
	if c.ExchangeRateSnapshot > 0 {
		return c.ExchangeRateSnapshot
	}
	return domain.FallbackExchangeRate
}

// CurrentRate is the configured rate of the selected year, used for live
// estimates.
func CurrentRate(snap *domain.Snapshot) float64 {
	if rate := snap.GoalsFor(snap.SelectedYear).ExchangeRate; rate > 0 {
		return rate
	}
	return domain.FallbackExchangeRate
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
