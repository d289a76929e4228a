// Package tokenmanager is the HTTP client for the external token-management
// system. Certain providers require an enrollment to be registered there when
// it is validated; the returned identifier links the two systems.
package tokenmanager

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	id "datapass/pkg/domain"
)

// Registration is the payload of the subscribe endpoint. Field names are
// fixed by the token manager's API, misspelling included.
type Registration struct {
	Name                    string   `json:"name"`
	TechnicalContactEmail   string   `json:"technical_contact_email"`
	FunctionnalContactEmail string   `json:"functionnal_contact_email"`
	AuthorEmail             string   `json:"author_email"`
	DataPassID              string   `json:"data_pass_id"`
	Scopes                  []string `json:"scopes"`
}

// Client registers validated enrollments with the token manager. The engine
// treats a failed call as a mandatory side-effect failure; it never retries,
// so a duplicate registration cannot be produced from here.
type Client interface {
	Subscribe(ctx context.Context, variant id.Variant, reg Registration) (string, error)
}

// HTTPClient talks to the real token manager, authenticating with a
// pre-shared API key header.
type HTTPClient struct {
	host   string
	apiKey string
	client *http.Client
}

func NewHTTPClient(host, apiKey string) *HTTPClient {
	return &HTTPClient{
		host:   host,
		apiKey: apiKey,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *HTTPClient) Subscribe(ctx context.Context, variant id.Variant, reg Registration) (string, error) {
	body, err := json.Marshal(reg)
	if err != nil {
		return "", fmt.Errorf("marshal registration: %w", err)
	}

	url := fmt.Sprintf("%s/%s/subscribe", c.host, variant.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build registration request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call token manager: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("token manager returned %d: %s", resp.StatusCode, snippet)
	}

	// Deployed backends disagree on the id type: some return a JSON number,
	// others a string. Accept both.
	var parsed struct {
		ID any `json:"id"`
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode token manager response: %w", err)
	}
	var externalID string
	switch v := parsed.ID.(type) {
	case string:
		externalID = v
	case json.Number:
		externalID = v.String()
	}
	if externalID == "" {
		return "", fmt.Errorf("token manager response missing id")
	}
	return externalID, nil
}
