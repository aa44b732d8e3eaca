package config

import (
	"os"
	"strings"
)

// SubscriptionGateEnabled controls whether lapsed subscriptions block write
// endpoints. Disable for local development and seed scripts.
//
// Set via env:
// - SUBSCRIPTION_GATE_ENABLED=true
func SubscriptionGateEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("SUBSCRIPTION_GATE_ENABLED")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// EstimateSyncDisabled turns off the background estimate sync dispatcher.
// Sync records still accumulate in the outbox and are applied once re-enabled.
//
// Set via env:
// - ESTIMATE_SYNC_DISABLED=true
func EstimateSyncDisabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("ESTIMATE_SYNC_DISABLED")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
