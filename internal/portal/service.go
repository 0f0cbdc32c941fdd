package portal

import (
	"context"
	"strings"

	"github.com/ldraney/pal-e-billing/internal/subscribers"
	pkgerrors "github.com/ldraney/pal-e-billing/pkg/errors"
)

// SessionCreator opens hosted billing-portal sessions. Implemented by pkg/stripe.Client.
type SessionCreator interface {
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

// Service resolves a user to a billing-portal URL.
type Service struct {
	repo      subscribers.Repository
	sessions  SessionCreator
	returnURL string
}

func NewService(repo subscribers.Repository, sessions SessionCreator, returnURL string) (*Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscriber repo required")
	}
	if sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "portal session creator required")
	}
	return &Service{
		repo:      repo,
		sessions:  sessions,
		returnURL: strings.TrimSpace(returnURL),
	}, nil
}

// SessionURL creates a portal session for the user's stored customer.
func (s *Service) SessionURL(ctx context.Context, userID string) (string, error) {
	sub, err := s.repo.Get(ctx, userID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscriber")
	}
	if sub == nil {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "subscriber not found")
	}

	url, err := s.sessions.CreatePortalSession(ctx, sub.BillingCustomerID, s.returnURL)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create billing portal session")
	}
	if url == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "billing portal session has no url")
	}
	return url, nil
}
