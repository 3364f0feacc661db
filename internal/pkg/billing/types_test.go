package billing

import (
	"errors"
	"testing"

	"github.com/ManuelReschke/CourseFox/internal/pkg/apperror"
)

func TestParseEventPaymentSucceeded(t *testing.T) {
	raw := []byte(`{
		"type": "payment.succeeded",
		"data": {
			"payload_type": "Payment",
			"payment_id": "pay_123",
			"subscription_id": null,
			"total_amount": 4900,
			"currency": "USD",
			"metadata": {"userId": "u1", "productId": "p1"}
		}
	}`)

	ev, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	ps, ok := ev.(PaymentSucceeded)
	if !ok {
		t.Fatalf("expected PaymentSucceeded, got %T", ev)
	}
	want := PaymentSucceeded{PaymentID: "pay_123", UserID: "u1", ProductID: "p1", TotalAmount: 4900, Currency: "USD"}
	if ps != want {
		t.Fatalf("got %+v, want %+v", ps, want)
	}
}

func TestParseEventIgnored(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"other type", `{"type":"payment.failed","data":{"payload_type":"Payment"}}`},
		{"subscription", `{"type":"payment.succeeded","data":{"payload_type":"Payment","subscription_id":"sub_1","payment_id":"p","metadata":{"userId":"u","productId":"p"}}}`},
		{"not a payment payload", `{"type":"payment.succeeded","data":{"payload_type":"Refund"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseEvent([]byte(tt.raw))
			if err != nil {
				t.Fatalf("ParseEvent: %v", err)
			}
			if _, ok := ev.(Ignored); !ok {
				t.Fatalf("expected Ignored, got %T", ev)
			}
		})
	}
}

func TestParseEventValidation(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		field string
	}{
		{"malformed", `not json`, "body"},
		{"no type", `{"data":{}}`, "type"},
		{"missing userId", `{"type":"payment.succeeded","data":{"payload_type":"Payment","payment_id":"pay_1","total_amount":1,"metadata":{"productId":"p1"}}}`, "data.metadata.userId"},
		{"missing productId", `{"type":"payment.succeeded","data":{"payload_type":"Payment","payment_id":"pay_1","total_amount":1,"metadata":{"userId":"u1"}}}`, "data.metadata.productId"},
		{"missing metadata", `{"type":"payment.succeeded","data":{"payload_type":"Payment","payment_id":"pay_1","total_amount":1}}`, "data.metadata.userId"},
		{"missing payment id", `{"type":"payment.succeeded","data":{"payload_type":"Payment","total_amount":1,"metadata":{"userId":"u1","productId":"p1"}}}`, "data.payment_id"},
		{"negative amount", `{"type":"payment.succeeded","data":{"payload_type":"Payment","payment_id":"pay_1","total_amount":-5,"metadata":{"userId":"u1","productId":"p1"}}}`, "data.total_amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEvent([]byte(tt.raw))
			if !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			var appErr *apperror.AppError
			if !errors.As(err, &appErr) || appErr.Field != tt.field {
				t.Fatalf("expected field %q, got %+v", tt.field, appErr)
			}
		})
	}
}
