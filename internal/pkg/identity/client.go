package identity

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

const DefaultAPIBaseURL = "https://api.clerk.com/v1"

// Client talks to the identity provider's backend API.
type Client struct {
	SecretKey  string
	APIBaseURL string
	HTTPClient *http.Client
}

func NewClient(secretKey, apiBaseURL string) *Client {
	base := strings.TrimSpace(apiBaseURL)
	if base == "" {
		base = DefaultAPIBaseURL
	}
	return &Client{
		SecretKey:  strings.TrimSpace(secretKey),
		APIBaseURL: strings.TrimRight(base, "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// UpdateUserMetadata merges meta into the user's public metadata.
func (c *Client) UpdateUserMetadata(ctx context.Context, externalID string, meta PublicMetadata) error {
	id := strings.TrimSpace(externalID)
	if id == "" {
		return errors.New("external user id is required")
	}
	payload, err := json.Marshal(map[string]interface{}{
		"public_metadata": meta,
	})
	if err != nil {
		return err
	}

	_, err = c.do(ctx, http.MethodPatch, "/users/"+url.PathEscape(id)+"/metadata", payload)
	return err
}

// GetUser fetches the provider's view of a user.
func (c *Client) GetUser(ctx context.Context, externalID string) (*UserData, error) {
	id := strings.TrimSpace(externalID)
	if id == "" {
		return nil, errors.New("external user id is required")
	}

	body, err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	var out UserData
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	if c.SecretKey == "" {
		return nil, errors.New("IDENTITY_SECRET_KEY is not configured")
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
		return nil, fmt.Errorf("identity provider %s %s failed: status=%d body=%s", method, path, resp.StatusCode, string(body))
	}
	return body, nil
}
