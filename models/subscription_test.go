package models

import (
	"testing"
	"time"
)

func TestSubscriptionIsWritable(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	future := now.AddDate(0, 1, 0)
	past := now.AddDate(0, -1, 0)
	recentPast := now.AddDate(0, 0, -3) // inside the 7 day grace

	cases := []struct {
		name string
		sub  Subscription
		want bool
	}{
		{"trial running", Subscription{Status: SubscriptionStatusTrial, TrialEndsAt: future}, true},
		{"trial expired", Subscription{Status: SubscriptionStatusTrial, TrialEndsAt: past}, false},
		{"active within period", Subscription{Status: SubscriptionStatusActive, CurrentPeriodEnd: &future}, true},
		{"active no period end", Subscription{Status: SubscriptionStatusActive}, true},
		{"active lapsed", Subscription{Status: SubscriptionStatusActive, CurrentPeriodEnd: &past}, false},
		{"past due in grace", Subscription{Status: SubscriptionStatusPastDue, CurrentPeriodEnd: &recentPast}, true},
		{"past due beyond grace", Subscription{Status: SubscriptionStatusPastDue, CurrentPeriodEnd: &past}, false},
		{"past due no period end", Subscription{Status: SubscriptionStatusPastDue}, false},
		{"cancelled", Subscription{Status: SubscriptionStatusCancelled, CurrentPeriodEnd: &future}, false},
	}

	for _, tc := range cases {
		if got := tc.sub.IsWritable(now); got != tc.want {
			t.Fatalf("%s: IsWritable = %v, want %v", tc.name, got, tc.want)
		}
	}
}
