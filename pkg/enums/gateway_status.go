package enums

import "fmt"

// GatewayStatus is the normalized status carried by payment gateway events.
// The external webhook receiver maps raw gateway payloads onto these values
// before they reach this system.
type GatewayStatus string

const (
	GatewayStatusPending    GatewayStatus = "pending"
	GatewayStatusProcessing GatewayStatus = "processing"
	GatewayStatusSuccess    GatewayStatus = "success"
	GatewayStatusFailed     GatewayStatus = "failed"
	GatewayStatusRefunded   GatewayStatus = "refunded"
)

var validGatewayStatuses = []GatewayStatus{
	GatewayStatusPending,
	GatewayStatusProcessing,
	GatewayStatusSuccess,
	GatewayStatusFailed,
	GatewayStatusRefunded,
}

// String implements fmt.Stringer.
func (g GatewayStatus) String() string {
	return string(g)
}

// IsValid reports whether the value is a known GatewayStatus.
func (g GatewayStatus) IsValid() bool {
	for _, candidate := range validGatewayStatuses {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseGatewayStatus converts raw input into a GatewayStatus.
func ParseGatewayStatus(value string) (GatewayStatus, error) {
	for _, candidate := range validGatewayStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid gateway status %q", value)
}
