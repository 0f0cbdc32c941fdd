package stripewebhook

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ldraney/pal-e-billing/internal/subscribers"
	"github.com/ldraney/pal-e-billing/pkg/enums"
	"github.com/stripe/stripe-go/v84"
)

// Action is the store mutation chosen for an event.
type Action string

const (
	ActionUpsert       Action = "upsert"
	ActionUpdateStatus Action = "update_status"
	ActionSkip         Action = "skip"
	ActionIgnore       Action = "ignore"
)

const (
	ReasonMissingClientReference = "missing client_reference_id"
	ReasonMissingCustomer        = "missing customer"
	ReasonMissingSubscription    = "missing subscription id"
	ReasonMissingStatus          = "missing status"
	ReasonMalformedPayload       = "malformed payload"
	ReasonUnhandledType          = "unhandled event type"
)

// Decision describes what an event means for the subscriber store.
type Decision struct {
	Action    Action
	EventType stripe.EventType

	// Upsert is populated for ActionUpsert.
	Upsert subscribers.UpsertInput

	// Populated for ActionUpdateStatus. CustomerID is optional and only logged.
	SubscriptionID string
	CustomerID     string
	Status         enums.SubscriptionStatus

	Reason   string
	Warnings []string
}

// Reconcile classifies event and extracts the fields the store needs. It performs no I/O.
func Reconcile(event *stripe.Event) (Decision, error) {
	if event == nil {
		return Decision{}, fmt.Errorf("event is required")
	}
	decision := Decision{EventType: event.Type}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if !decodeObject(event, &session) {
			return skip(decision, ReasonMalformedPayload), nil
		}
		return reconcileCheckout(decision, &session), nil

	case stripe.EventTypeCustomerSubscriptionUpdated, stripe.EventTypeCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if !decodeObject(event, &sub) {
			return skip(decision, ReasonMalformedPayload), nil
		}
		return reconcileSubscription(decision, &sub), nil

	default:
		decision.Action = ActionIgnore
		decision.Reason = ReasonUnhandledType
		return decision, nil
	}
}

func reconcileCheckout(d Decision, session *stripe.CheckoutSession) Decision {
	userID := strings.TrimSpace(session.ClientReferenceID)
	if userID == "" {
		return skip(d, ReasonMissingClientReference)
	}
	customerID := ""
	if session.Customer != nil {
		customerID = strings.TrimSpace(session.Customer.ID)
	}
	if customerID == "" {
		return skip(d, ReasonMissingCustomer)
	}

	tier := enums.TierBase
	if raw, ok := session.Metadata["tier"]; ok {
		parsed, err := enums.ParseTier(raw)
		if err != nil {
			d.Warnings = append(d.Warnings, fmt.Sprintf("unknown tier %q in session metadata, defaulting to %q", raw, enums.TierBase))
		} else {
			tier = parsed
		}
	}

	var subscriptionID *string
	if session.Subscription != nil && session.Subscription.ID != "" {
		id := session.Subscription.ID
		subscriptionID = &id
	}
	var email *string
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		e := session.CustomerDetails.Email
		email = &e
	}

	d.Action = ActionUpsert
	d.Upsert = subscribers.UpsertInput{
		UserID:                userID,
		BillingCustomerID:     customerID,
		BillingSubscriptionID: subscriptionID,
		Status:                enums.SubscriptionStatusActive,
		Tier:                  tier,
		Email:                 email,
	}
	return d
}

func reconcileSubscription(d Decision, sub *stripe.Subscription) Decision {
	if strings.TrimSpace(sub.ID) == "" {
		return skip(d, ReasonMissingSubscription)
	}

	status := enums.SubscriptionStatus(sub.Status)
	if d.EventType == stripe.EventTypeCustomerSubscriptionDeleted {
		status = enums.SubscriptionStatusCanceled
	}
	if status == "" {
		return skip(d, ReasonMissingStatus)
	}
	if !status.IsKnown() {
		d.Warnings = append(d.Warnings, fmt.Sprintf("unrecognized subscription status %q stored verbatim", status))
	}

	d.Action = ActionUpdateStatus
	d.SubscriptionID = sub.ID
	d.Status = status
	if sub.Customer != nil {
		d.CustomerID = sub.Customer.ID
	}
	return d
}

func decodeObject(event *stripe.Event, dst any) bool {
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return false
	}
	return json.Unmarshal(event.Data.Raw, dst) == nil
}

func skip(d Decision, reason string) Decision {
	d.Action = ActionSkip
	d.Reason = reason
	return d
}
