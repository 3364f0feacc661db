package billing

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePaymentLink(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments", r.URL.Path)
		assert.Equal(t, "Bearer sk_pay", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got)
		_, _ = w.Write([]byte(`{"payment_id":"pay_1","payment_link":"https://pay.example.com/pay_1"}`))
	}))
	defer srv.Close()

	c := NewPaymentClient("sk_pay", srv.URL)
	link, err := c.CreatePaymentLink(context.Background(), PaymentLinkRequest{
		PaymentProductID: "pdt_1",
		CustomerName:     "Ada",
		CustomerEmail:    "a@example.com",
		ReturnURL:        "https://courses.example.com/done",
		Metadata:         map[string]string{"userId": "u1", "productId": "p1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/pay_1", link)
	assert.Equal(t, true, got["payment_link"])
	assert.Equal(t, map[string]interface{}{"userId": "u1", "productId": "p1"}, got["metadata"])
	assert.NotContains(t, got, "discount_code")
}

func TestCreatePaymentLinkErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"payment_id":"pay_1"}`))
	}))
	defer srv.Close()

	c := NewPaymentClient("sk_pay", srv.URL)
	_, err := c.CreatePaymentLink(context.Background(), PaymentLinkRequest{PaymentProductID: "pdt_1"})
	assert.ErrorContains(t, err, "no payment link")

	_, err = c.CreatePaymentLink(context.Background(), PaymentLinkRequest{})
	assert.Error(t, err)
}

func TestGetPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/payments/pay_1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"payment_id":"pay_1","total_amount":4900,"tax":400,"currency":"USD","refunds":[{"amount":100}]}`))
	}))
	defer srv.Close()

	c := NewPaymentClient("sk_pay", srv.URL)
	p, err := c.GetPayment(context.Background(), "pay_1")
	require.NoError(t, err)
	assert.Equal(t, 4900, p.TotalAmount)
	require.NotNil(t, p.Tax)
	assert.Equal(t, 400, *p.Tax)
	assert.Len(t, p.Refunds, 1)

	_, err = c.GetPayment(context.Background(), "pay_2")
	assert.ErrorContains(t, err, "status=404")
}
