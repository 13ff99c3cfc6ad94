// Package catalog searches the DataHub metadata catalog for datasets.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"dataportal/internal/portal/models"
	"dataportal/internal/portal/scope"
	"dataportal/internal/portal/sources"
)

const searchDocument = `query search($input: SearchInput!) {
  search(input: $input) {
    searchResults {
      entity {
        urn
        ... on Dataset {
          properties { name description }
          domain { properties { name } }
          tags { tags { tag { properties { name } } } }
        }
      }
    }
  }
}`

// Defaults applied to fields the catalog does not provide.
const (
	DefaultDomain        = "Unknown"
	DefaultSensitivity   = "Internal"
	DefaultOwner         = "Unassigned"
	DefaultCadence       = "Unknown"
	DefaultFreshnessSLA  = 168
	DefaultTimeout       = 30 * time.Second
	fallbackDatasetID    = "dataset"
	fallbackDatasetName  = "Dataset"
	missingCredentialMsg = "Missing DataHub creds (DATAHUB_GQL_ENDPOINT / DATAHUB_TOKEN)."
)

// Client issues dataset searches against a DataHub GraphQL endpoint.
type Client struct {
	http     sources.HTTPDoer
	defaults scope.Defaults
	timeout  time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP transport.
func WithHTTPClient(doer sources.HTTPDoer) Option {
	return func(c *Client) { c.http = doer }
}

// WithTimeout bounds each search request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func New(defaults scope.Defaults, opts ...Option) *Client {
	c := &Client{defaults: defaults, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	return c
}

type searchInput struct {
	Type  string `json:"type"`
	Query string `json:"query"`
	Start int    `json:"start"`
	Count int    `json:"count"`
}

type searchRequest struct {
	Query     string `json:"query"`
	Variables struct {
		Input searchInput `json:"input"`
	} `json:"variables"`
}

// SearchDatasets runs one catalog search. cfg[DATAHUB_QUERY] replaces query
// when set. Returned datasets are tagged with the scope's department.
func (c *Client) SearchDatasets(ctx context.Context, sc scope.Context, query string, start, count int, cfg scope.EffectiveConfig) ([]models.Dataset, error) {
	endpoint := cfg.Value(scope.KeyDataHubEndpoint, c.defaults)
	token := cfg.Value(scope.KeyDataHubToken, c.defaults)
	if endpoint == "" || token == "" {
		return nil, sources.Configuration(models.SourceCatalog, missingCredentialMsg)
	}

	var payload searchRequest
	payload.Query = searchDocument
	payload.Variables.Input = searchInput{
		Type:  "DATASET",
		Query: cfg.Lookup(scope.KeyDataHubQuery, query),
		Start: start,
		Count: count,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, sources.Malformed(models.SourceCatalog, "failed to encode search request", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, sources.Configuration(models.SourceCatalog, fmt.Sprintf("invalid DATAHUB_GQL_ENDPOINT: %v", err))
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, sources.Transport(ctx, models.SourceCatalog, "DataHub search request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, sources.Transport(ctx, models.SourceCatalog, "failed to read DataHub response", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, sources.Status(models.SourceCatalog, "DataHub search failed", resp.StatusCode, respBody)
	}

	var decoded searchResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, sources.Malformed(models.SourceCatalog, "DataHub returned malformed JSON", err)
	}
	if decoded.Data == nil && len(decoded.Errors) > 0 {
		return nil, sources.Malformed(models.SourceCatalog, "DataHub search failed: "+decoded.Errors[0].Message, nil)
	}

	department := scope.CentralID
	if sc.IsDepartment() {
		department = sc.DepartmentID
	}

	results := decoded.results()
	out := make([]models.Dataset, 0, len(results))
	for _, r := range results {
		out = append(out, toDataset(r.Entity, department))
	}
	return out, nil
}

func toDataset(e *entity, department string) models.Dataset {
	return models.Dataset{
		ID:                firstNonEmpty(e.urn(), e.name(), fallbackDatasetID),
		Name:              firstNonEmpty(e.name(), e.urn(), fallbackDatasetName),
		Domain:            firstNonEmpty(e.domainName(), DefaultDomain),
		Sensitivity:       DefaultSensitivity,
		Certified:         true,
		Owner:             DefaultOwner,
		UpdateCadence:     DefaultCadence,
		FreshnessSLAHours: DefaultFreshnessSLA,
		Description:       e.description(),
		Tables:            []string{},
		Tags:              e.tagNames(),
		Department:        department,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
