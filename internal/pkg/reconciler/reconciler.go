// Package reconciler turns signed provider webhooks into local state changes.
//
// Every delivery moves RECEIVED -> VERIFIED -> INTERPRETED -> APPLIED, or ends in
// REJECTED (method, headers, signature) or FAILED (payload or apply error). Nothing is
// written before VERIFIED, and a FAILED apply leaves no partial rows.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/ManuelReschke/CourseFox/internal/pkg/apperror"
	"github.com/ManuelReschke/CourseFox/internal/pkg/billing"
	"github.com/ManuelReschke/CourseFox/internal/pkg/cache"
	"github.com/ManuelReschke/CourseFox/internal/pkg/identity"
	"github.com/ManuelReschke/CourseFox/internal/pkg/logger"
	"github.com/ManuelReschke/CourseFox/internal/pkg/webhook"
)

const (
	ProviderIdentity = "identity"
	ProviderPayment  = "payment"
)

var ErrMethodNotAllowed = errors.New("method not allowed")

// Request is an inbound delivery exactly as received.
type Request struct {
	Method  string
	Headers webhook.Headers
	Body    []byte
}

type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeDuplicate Outcome = "duplicate"
)

type Result struct {
	Outcome   Outcome `json:"outcome"`
	EventType string  `json:"event_type,omitempty"`
	Message   string  `json:"message"`
}

// Accounts applies identity events to the user table.
type Accounts interface {
	Created(ctx context.Context, p identity.Profile) (*models.User, error)
	Updated(ctx context.Context, p identity.Profile, role string) (*models.User, error)
	Deleted(ctx context.Context, externalID string) (bool, error)
}

// Fulfiller applies succeeded payments.
type Fulfiller interface {
	FulfillPayment(ctx context.Context, ev billing.PaymentSucceeded) (*billing.Fulfillment, error)
}

// PurchaseObserver is told about newly created purchases after commit.
type PurchaseObserver interface {
	Invalidate(ctx context.Context)
}

type Verifier interface {
	Verify(h webhook.Headers, body []byte) error
}

type Options struct {
	IdentityVerifier Verifier
	PaymentVerifier  Verifier
	Accounts         Accounts
	Fulfiller        Fulfiller
	Guard            cache.DeliveryGuard
	Observer         PurchaseObserver
	Log              *logger.Logger
}

type Reconciler struct {
	identityVerifier Verifier
	paymentVerifier  Verifier
	accounts         Accounts
	fulfiller        Fulfiller
	guard            cache.DeliveryGuard
	observer         PurchaseObserver
	log              *logger.Logger
}

func New(opts Options) *Reconciler {
	guard := opts.Guard
	if guard == nil {
		guard = cache.NoopGuard{}
	}
	return &Reconciler{
		identityVerifier: opts.IdentityVerifier,
		paymentVerifier:  opts.PaymentVerifier,
		accounts:         opts.Accounts,
		fulfiller:        opts.Fulfiller,
		guard:            guard,
		observer:         opts.Observer,
		log:              opts.Log,
	}
}

// HandleIdentity processes a user.* delivery from the identity provider.
func (r *Reconciler) HandleIdentity(ctx context.Context, req Request) (*Result, error) {
	log := r.log.With("provider", ProviderIdentity, "webhook_id", req.Headers.ID)

	dup, err := r.admit(ctx, log, ProviderIdentity, r.identityVerifier, req)
	if err != nil || dup != nil {
		return dup, err
	}

	ev, err := identity.ParseEvent(req.Body)
	if err != nil {
		log.Warn("webhook failed", "stage", "interpret", "error", err)
		return nil, err
	}
	log = log.With("event_type", ev.EventType())
	log.Info("webhook interpreted")

	var msg string
	switch e := ev.(type) {
	case identity.SubjectCreated:
		user, err := r.accounts.Created(ctx, e.Profile)
		if err != nil {
			return nil, r.failed(log, err)
		}
		msg = "user " + user.ID + " created"
	case identity.SubjectUpdated:
		user, err := r.accounts.Updated(ctx, e.Profile, e.Role)
		if err != nil {
			return nil, r.failed(log, err)
		}
		msg = "user " + user.ID + " updated"
	case identity.SubjectDeleted:
		deleted, err := r.accounts.Deleted(ctx, e.ExternalID)
		if err != nil {
			return nil, r.failed(log, err)
		}
		msg = "user deleted"
		if !deleted {
			msg = "user already absent"
		}
	case identity.Unhandled:
		log.Info("webhook ignored", "reason", e.Reason)
		return &Result{Outcome: OutcomeIgnored, EventType: e.Type, Message: e.Reason}, nil
	default:
		return nil, fmt.Errorf("unexpected identity event %T", ev)
	}

	return r.applied(ctx, log, ProviderIdentity, req.Headers.ID, ev.EventType(), msg), nil
}

// HandlePayment processes a payment.* delivery from the payment provider.
func (r *Reconciler) HandlePayment(ctx context.Context, req Request) (*Result, error) {
	log := r.log.With("provider", ProviderPayment, "webhook_id", req.Headers.ID)

	dup, err := r.admit(ctx, log, ProviderPayment, r.paymentVerifier, req)
	if err != nil || dup != nil {
		return dup, err
	}

	ev, err := billing.ParseEvent(req.Body)
	if err != nil {
		log.Warn("webhook failed", "stage", "interpret", "error", err)
		return nil, err
	}
	log = log.With("event_type", ev.EventType())
	log.Info("webhook interpreted")

	switch e := ev.(type) {
	case billing.PaymentSucceeded:
		res, err := r.fulfiller.FulfillPayment(ctx, e)
		if err != nil {
			return nil, r.failed(log.With("payment_id", e.PaymentID), err)
		}
		msg := "purchase " + res.Purchase.ID + " recorded"
		if !res.Created {
			msg = "purchase " + res.Purchase.ID + " already recorded"
		} else if r.observer != nil {
			r.observer.Invalidate(ctx)
		}
		return r.applied(ctx, log.With("payment_id", e.PaymentID, "granted_courses", res.GrantedCourses),
			ProviderPayment, req.Headers.ID, e.EventType(), msg), nil
	case billing.Ignored:
		log.Info("webhook ignored", "reason", e.Reason)
		return &Result{Outcome: OutcomeIgnored, EventType: e.Type, Message: e.Reason}, nil
	default:
		return nil, fmt.Errorf("unexpected payment event %T", ev)
	}
}

// admit runs the method, header and signature gate. It returns a Result only for
// deliveries that were already applied.
func (r *Reconciler) admit(ctx context.Context, log *logger.Logger, provider string, v Verifier, req Request) (*Result, error) {
	log.Info("webhook received", "method", req.Method, "bytes", len(req.Body))

	if req.Method != http.MethodPost {
		log.Warn("webhook rejected", "reason", "method", "method", req.Method)
		return nil, ErrMethodNotAllowed
	}
	if err := v.Verify(req.Headers, req.Body); err != nil {
		log.Warn("webhook rejected", "reason", "signature", "error", err)
		return nil, err
	}
	log.Info("webhook verified")

	seen, err := r.guard.Seen(ctx, provider, req.Headers.ID)
	if err != nil {
		log.Warn("delivery guard unavailable", "error", err)
		return nil, nil
	}
	if seen {
		log.Info("webhook duplicate", "reason", "already applied")
		return &Result{Outcome: OutcomeDuplicate, Message: "already processed"}, nil
	}
	return nil, nil
}

func (r *Reconciler) applied(ctx context.Context, log *logger.Logger, provider, webhookID, eventType, msg string) *Result {
	if err := r.guard.MarkProcessed(ctx, provider, webhookID); err != nil {
		log.Warn("delivery guard not updated", "error", err)
	}
	log.Info("webhook applied", "result", msg)
	return &Result{Outcome: OutcomeApplied, EventType: eventType, Message: msg}
}

func (r *Reconciler) failed(log *logger.Logger, err error) error {
	if StatusCode(err) >= http.StatusInternalServerError {
		log.Error("webhook failed", "stage", "apply", "error", err)
	} else {
		log.Warn("webhook failed", "stage", "apply", "error", err)
	}
	return err
}

// StatusCode maps a handler error to the response status the provider sees.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed
	case errors.Is(err, apperror.ErrAuthentication),
		errors.Is(err, apperror.ErrValidation),
		errors.Is(err, apperror.ErrNotFound):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message is the response text for err. Internal failures are not described.
func Message(err error) string {
	if errors.Is(err, ErrMethodNotAllowed) {
		return "Method not allowed"
	}
	return apperror.PublicMessage(err)
}
