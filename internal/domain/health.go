package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual service.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// AnalyticsCacheStats is returned by GET /v1/metrics/analytics.
type AnalyticsCacheStats struct {
	Stages           []StageCacheStats `json:"stages"`
	HitRate          float64           `json:"hitRate"`
	LoadedWorkspaces int               `json:"loadedWorkspaces"`
	Period           string            `json:"period"`
}

// StageCacheStats is the hit/miss count of one memoized computation.
type StageCacheStats struct {
	Stage  string  `json:"stage"`
	Hits   float64 `json:"hits"`
	Misses float64 `json:"misses"`
}

// ============================================================
// Generic API Response wrappers
// ============================================================

// ListResponse wraps list results.
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

// SuccessResponse wraps a successful single-entity response.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}
