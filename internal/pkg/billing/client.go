package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultPaymentAPIBaseURL = "https://test.dodopayments.com"

// PaymentClient talks to the payment provider's REST API.
type PaymentClient struct {
	SecretKey  string
	APIBaseURL string
	HTTPClient *http.Client
}

type PaymentLinkRequest struct {
	PaymentProductID string
	CustomerName     string
	CustomerEmail    string
	ReturnURL        string
	DiscountCode     string
	Metadata         map[string]string
}

type Refund struct {
	Amount int `json:"amount"`
}

// Payment is the subset of the provider's payment object this application reads.
type Payment struct {
	PaymentID        string   `json:"payment_id"`
	TotalAmount      int      `json:"total_amount"`
	SettlementAmount *int     `json:"settlement_amount"`
	Tax              *int     `json:"tax"`
	Currency         string   `json:"currency"`
	PaymentLink      *string  `json:"payment_link"`
	Refunds          []Refund `json:"refunds"`
}

func NewPaymentClient(secretKey, apiBaseURL string) *PaymentClient {
	base := strings.TrimSpace(apiBaseURL)
	if base == "" {
		base = DefaultPaymentAPIBaseURL
	}
	return &PaymentClient{
		SecretKey:  strings.TrimSpace(secretKey),
		APIBaseURL: strings.TrimRight(base, "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// CreatePaymentLink creates a one-time payment and returns its hosted checkout URL.
func (c *PaymentClient) CreatePaymentLink(ctx context.Context, in PaymentLinkRequest) (string, error) {
	if strings.TrimSpace(in.PaymentProductID) == "" {
		return "", errors.New("product has no payment provider product id")
	}

	type billingAddress struct {
		City    string `json:"city"`
		Country string `json:"country"`
		State   string `json:"state"`
		Street  string `json:"street"`
		Zipcode string `json:"zipcode"`
	}
	type cartItem struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	payload := map[string]interface{}{
		"billing":      billingAddress{Country: "US"},
		"customer":     map[string]string{"name": in.CustomerName, "email": in.CustomerEmail},
		"product_cart": []cartItem{{ProductID: in.PaymentProductID, Quantity: 1}},
		"payment_link": true,
		"return_url":   in.ReturnURL,
		"metadata":     in.Metadata,
	}
	if in.DiscountCode != "" {
		payload["discount_code"] = in.DiscountCode
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	body, err := c.do(ctx, http.MethodPost, "/payments", raw)
	if err != nil {
		return "", err
	}
	var out struct {
		PaymentID   string  `json:"payment_id"`
		PaymentLink *string `json:"payment_link"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if out.PaymentLink == nil || *out.PaymentLink == "" {
		return "", errors.New("payment provider returned no payment link")
	}
	return *out.PaymentLink, nil
}

func (c *PaymentClient) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	id := strings.TrimSpace(paymentID)
	if id == "" {
		return nil, errors.New("payment id is required")
	}
	body, err := c.do(ctx, http.MethodGet, "/payments/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	var out Payment
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *PaymentClient) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	if c.SecretKey == "" {
		return nil, errors.New("PAYMENT_SECRET_KEY is not configured")
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.APIBaseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("payment provider %s %s failed: status=%d body=%s", method, path, resp.StatusCode, string(body))
	}
	return body, nil
}
