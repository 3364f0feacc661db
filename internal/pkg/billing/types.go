package billing

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ManuelReschke/CourseFox/internal/pkg/apperror"
)

const (
	EventPaymentSucceeded = "payment.succeeded"
	PayloadTypePayment    = "Payment"
)

var validate = validator.New()

// Event is either PaymentSucceeded or Ignored.
type Event interface {
	EventType() string
	billingEvent()
}

// PaymentSucceeded is a completed one-time payment carrying the ids this application
// embedded when it created the payment link.
type PaymentSucceeded struct {
	PaymentID   string `validate:"required"`
	UserID      string `validate:"required"`
	ProductID   string `validate:"required"`
	TotalAmount int    `validate:"min=0"`
	Currency    string
}

// Ignored is a verified event that needs no local change.
type Ignored struct {
	Type   string
	Reason string
}

func (PaymentSucceeded) EventType() string { return EventPaymentSucceeded }
func (i Ignored) EventType() string        { return i.Type }

func (PaymentSucceeded) billingEvent() {}
func (Ignored) billingEvent()          {}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type paymentMetadata struct {
	UserID    string `json:"userId"`
	ProductID string `json:"productId"`
}

type paymentData struct {
	PayloadType    string          `json:"payload_type"`
	PaymentID      string          `json:"payment_id"`
	SubscriptionID *string         `json:"subscription_id"`
	TotalAmount    int             `json:"total_amount"`
	Currency       string          `json:"currency"`
	Metadata       paymentMetadata `json:"metadata"`
}

var fieldNames = map[string]string{
	"PaymentID":   "data.payment_id",
	"UserID":      "data.metadata.userId",
	"ProductID":   "data.metadata.productId",
	"TotalAmount": "data.total_amount",
}

// ParseEvent decodes a verified payment webhook body. Only succeeded one-time payments
// become PaymentSucceeded; subscriptions and other event types are Ignored.
func ParseEvent(body []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, apperror.ValidationFailed("body", "malformed JSON")
	}
	if env.Type == "" {
		return nil, apperror.ValidationFailed("type", "missing event type")
	}
	if env.Type != EventPaymentSucceeded {
		return Ignored{Type: env.Type, Reason: "event type not handled"}, nil
	}

	var data paymentData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, apperror.ValidationFailed("data", "malformed payment data")
	}
	if data.PayloadType != PayloadTypePayment {
		return Ignored{Type: env.Type, Reason: "payload type " + data.PayloadType}, nil
	}
	if data.SubscriptionID != nil && strings.TrimSpace(*data.SubscriptionID) != "" {
		return Ignored{Type: env.Type, Reason: "subscription payment"}, nil
	}

	ev := PaymentSucceeded{
		PaymentID:   strings.TrimSpace(data.PaymentID),
		UserID:      strings.TrimSpace(data.Metadata.UserID),
		ProductID:   strings.TrimSpace(data.Metadata.ProductID),
		TotalAmount: data.TotalAmount,
		Currency:    data.Currency,
	}
	if err := validate.Struct(ev); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			field := fieldNames[verrs[0].Field()]
			return nil, apperror.ValidationFailed(field, "missing or invalid "+field)
		}
		return nil, apperror.ValidationFailed("data", err.Error())
	}
	return ev, nil
}
