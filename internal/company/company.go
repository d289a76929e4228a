// Package company resolves a national business identifier into the
// organization's legal name. Certain providers require the resolved name
// before an enrollment may enter review.
package company

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"datapass/pkg/platform/sentinel"
)

// Lookup is the capability the lifecycle engine consumes. Implementations
// return sentinel.ErrNotFound when the identifier resolves to nothing.
type Lookup interface {
	LegalName(ctx context.Context, siret string) (string, error)
}

// HTTPLookup queries a company registry endpoint.
type HTTPLookup struct {
	host   string
	client *http.Client
}

func NewHTTPLookup(host string) *HTTPLookup {
	return &HTTPLookup{
		host:   host,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (l *HTTPLookup) LegalName(ctx context.Context, siret string) (string, error) {
	endpoint := fmt.Sprintf("%s/entreprises/%s", l.host, url.PathEscape(siret))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build company lookup request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call company registry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", sentinel.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("company registry returned %d", resp.StatusCode)
	}

	var parsed struct {
		LegalName string `json:"nom_raison_sociale"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode company registry response: %w", err)
	}
	if parsed.LegalName == "" {
		return "", sentinel.ErrNotFound
	}
	return parsed.LegalName, nil
}

// StaticLookup is a fixture-backed lookup for tests and local development.
type StaticLookup map[string]string

func (l StaticLookup) LegalName(_ context.Context, siret string) (string, error) {
	name, ok := l[siret]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return name, nil
}
