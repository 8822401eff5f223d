package analytics

import "github.com/boddenberg/broker-crm-bfa-go/internal/domain"

// computePipeline values open inventory and active searches at the current
// rate.
func computePipeline(snap *domain.Snapshot, profile PipelineProfile, rate float64) float64 {
	var total float64
	for i := range snap.Properties {
		p := &snap.Properties[i]
		if !p.Status.IsActive() {
			continue
		}
		total += ToUSD(p.Price, p.Currency, rate) * PipelineCommissionRate * profile.InventoryProbability
	}
	for i := range snap.Searches {
		s := &snap.Searches[i]
		if s.Status != domain.SearchActive {
			continue
		}
		total += ToUSD(s.Budget.Max, s.Budget.Currency, rate) * PipelineCommissionRate * profile.SearchProbability
	}
	return total
}
