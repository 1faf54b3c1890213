package domain

// Health status values cached by the health monitor and stamped onto
// Server/Agent.HealthStatus (spec.md §4.4 health monitor). A probe
// failure never changes IsEnabled; it only updates these fields.
const (
	HealthUnknown   = "unknown"
	HealthHealthy   = "healthy"
	HealthUnhealthy = "unhealthy"
)
