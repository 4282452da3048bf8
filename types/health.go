package types

import "time"

// HealthState represents the health state of a client or store connection.
type HealthState string

const (
	HealthStateHealthy   HealthState = "healthy"
	HealthStateDegraded  HealthState = "degraded"
	HealthStateUnhealthy HealthState = "unhealthy"
)

// String returns the string representation of the HealthState.
func (s HealthState) String() string {
	return string(s)
}

// HealthStatus reports the health of a component at a point in time.
type HealthStatus struct {
	State     HealthState `json:"state"`
	Message   string      `json:"message,omitempty"`
	CheckedAt time.Time   `json:"checked_at"`
}

// NewHealthStatus creates a HealthStatus with the given state and message.
// CheckedAt is set to the current time.
func NewHealthStatus(state HealthState, message string) HealthStatus {
	return HealthStatus{
		State:     state,
		Message:   message,
		CheckedAt: time.Now(),
	}
}

// Healthy creates a healthy HealthStatus.
func Healthy(message string) HealthStatus {
	return NewHealthStatus(HealthStateHealthy, message)
}

// Degraded creates a degraded HealthStatus.
func Degraded(message string) HealthStatus {
	return NewHealthStatus(HealthStateDegraded, message)
}

// Unhealthy creates an unhealthy HealthStatus.
func Unhealthy(message string) HealthStatus {
	return NewHealthStatus(HealthStateUnhealthy, message)
}

// IsHealthy returns true if the health state is healthy.
func (h HealthStatus) IsHealthy() bool {
	return h.State == HealthStateHealthy
}

// IsDegraded returns true if the health state is degraded.
func (h HealthStatus) IsDegraded() bool {
	return h.State == HealthStateDegraded
}

// IsUnhealthy returns true if the health state is unhealthy.
func (h HealthStatus) IsUnhealthy() bool {
	return h.State == HealthStateUnhealthy
}
