// Package payments talks to Polar: checkout creation and webhook verification.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// CheckoutInput describes a hosted checkout session to create.
type CheckoutInput struct {
	ProductIDs         []string
	ExternalCustomerID string
	SuccessURL         string
	Metadata           map[string]any
}

// CheckoutSession is the created session. URL is where the user is redirected.
type CheckoutSession struct {
	ID  string
	URL string
}

type PolarOptions struct {
	AccessToken string
	BaseURL     string
	HTTPClient  *http.Client
}

// PolarClient creates checkout sessions through the Polar REST API.
type PolarClient struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

func NewPolarClient(opts PolarOptions) *PolarClient {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &PolarClient{
		token:      strings.TrimSpace(opts.AccessToken),
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: client,
	}
}

func (c *PolarClient) CreateCheckout(ctx context.Context, in CheckoutInput) (*CheckoutSession, error) {
	if len(in.ProductIDs) == 0 {
		return nil, errors.New("At least one product ID is required")
	}
	if c.token == "" {
		return nil, errors.New("Missing environment variable: POLAR_ACCESS_TOKEN")
	}
	payload := map[string]any{"products": in.ProductIDs}
	if in.ExternalCustomerID != "" {
		payload["external_customer_id"] = in.ExternalCustomerID
	}
	if in.SuccessURL != "" {
		payload["success_url"] = in.SuccessURL
	}
	if len(in.Metadata) > 0 {
		payload["metadata"] = in.Metadata
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal checkout: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/checkouts/", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invoke polar: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read polar response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text := string(raw)
		if len(text) > 400 {
			text = text[:400]
		}
		return nil, fmt.Errorf("Polar checkout creation failed (%d): %s", resp.StatusCode, text)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil || decoded == nil {
		return nil, errors.New("Invalid Polar checkout response payload")
	}
	id, _ := decoded["id"].(string)
	url, _ := decoded["url"].(string)
	if id == "" || url == "" {
		return nil, errors.New("Polar checkout response is missing id or url")
	}
	return &CheckoutSession{ID: id, URL: url}, nil
}
