package domain

// ============================================================
// Health API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string             `json:"status"` // healthy, degraded, unhealthy
	Backend  string             `json:"backend"`
	Services []DependencyHealth `json:"services"`
}

// DependencyHealth represents the health of one dependency of the service.
type DependencyHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	Error       string `json:"error,omitempty"`
	LastChecked string `json:"lastChecked"`
}
