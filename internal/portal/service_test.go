package portal

import (
	"context"
	"errors"
	"testing"

	"github.com/ldraney/pal-e-billing/internal/subscribers"
	"github.com/ldraney/pal-e-billing/pkg/db/models"
	pkgerrors "github.com/ldraney/pal-e-billing/pkg/errors"
)

func TestSessionURL(t *testing.T) {
	repo := &stubRepo{subs: map[string]*models.Subscriber{
		"42": {UserID: "42", BillingCustomerID: "cus_A"},
	}}
	sessions := &stubSessions{url: "https://billing.stripe.com/p/session/test"}
	svc, err := NewService(repo, sessions, " https://t.me ")
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	url, err := svc.SessionURL(context.Background(), "42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != sessions.url {
		t.Fatalf("unexpected url %q", url)
	}
	if sessions.customerID != "cus_A" || sessions.returnURL != "https://t.me" {
		t.Fatalf("unexpected session params %q %q", sessions.customerID, sessions.returnURL)
	}
}

func TestSessionURLErrors(t *testing.T) {
	repo := &stubRepo{subs: map[string]*models.Subscriber{
		"1": {UserID: "1", BillingCustomerID: "cus_1"},
	}}

	cases := []struct {
		name     string
		repo     *stubRepo
		sessions *stubSessions
		userID   string
		code     pkgerrors.Code
	}{
		{name: "unknown user", repo: repo, sessions: &stubSessions{url: "x"}, userID: "2", code: pkgerrors.CodeNotFound},
		{name: "store failure", repo: &stubRepo{err: errors.New("db down")}, sessions: &stubSessions{url: "x"}, userID: "1", code: pkgerrors.CodeDependency},
		{name: "stripe failure", repo: repo, sessions: &stubSessions{err: errors.New("api error")}, userID: "1", code: pkgerrors.CodeDependency},
		{name: "empty url", repo: repo, sessions: &stubSessions{}, userID: "1", code: pkgerrors.CodeDependency},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, err := NewService(tc.repo, tc.sessions, "")
			if err != nil {
				t.Fatalf("setup service: %v", err)
			}
			_, err = svc.SessionURL(context.Background(), tc.userID)
			if !pkgerrors.IsCode(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
		})
	}
}

type stubRepo struct {
	subscribers.Repository
	subs map[string]*models.Subscriber
	err  error
}

func (r *stubRepo) Get(_ context.Context, userID string) (*models.Subscriber, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.subs[userID], nil
}

type stubSessions struct {
	url        string
	err        error
	customerID string
	returnURL  string
}

func (s *stubSessions) CreatePortalSession(_ context.Context, customerID, returnURL string) (string, error) {
	s.customerID = customerID
	s.returnURL = returnURL
	return s.url, s.err
}
