package enums

// SubscriptionStatus mirrors the billing provider's subscription state. Values outside
// the known set are stored verbatim.
type SubscriptionStatus string

const (
	SubscriptionStatusInactive          SubscriptionStatus = "inactive"
	SubscriptionStatusTrialing          SubscriptionStatus = "trialing"
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusPastDue           SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled          SubscriptionStatus = "canceled"
	SubscriptionStatusIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubscriptionStatusUnpaid            SubscriptionStatus = "unpaid"
	SubscriptionStatusPaused            SubscriptionStatus = "paused"

	// SubscriptionStatusNone is reported for users that never subscribed. It is never stored.
	SubscriptionStatusNone SubscriptionStatus = "none"
)

var knownSubscriptionStatuses = []SubscriptionStatus{
	SubscriptionStatusInactive,
	SubscriptionStatusTrialing,
	SubscriptionStatusActive,
	SubscriptionStatusPastDue,
	SubscriptionStatusCanceled,
	SubscriptionStatusIncomplete,
	SubscriptionStatusIncompleteExpired,
	SubscriptionStatusUnpaid,
	SubscriptionStatusPaused,
}

// String implements fmt.Stringer.
func (s SubscriptionStatus) String() string {
	return string(s)
}

// IsKnown reports whether the value is one the provider documents.
func (s SubscriptionStatus) IsKnown() bool {
	for _, candidate := range knownSubscriptionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsEntitled reports whether the status grants access to paid features.
func (s SubscriptionStatus) IsEntitled() bool {
	return s == SubscriptionStatusActive
}
