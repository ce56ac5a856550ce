package domain

// ============================================================
// Health & Stats API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// AdminStats is returned by GET /v1/admin/stats.
type AdminStats struct {
	UsersProvisioned      int64   `json:"usersProvisioned"`
	ProvisioningFailures  int64   `json:"provisioningFailures"`
	CompensatedUsers      int64   `json:"compensatedUsers"`
	PaymentsMarkedOverdue int64   `json:"paymentsMarkedOverdue"`
	ErrorNotifications    int64   `json:"errorNotifications"`
	CacheHitRate          float64 `json:"cacheHitRate"`
	Period                string  `json:"period"`
}

// SuccessResponse wraps a successful single-entity response.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}
