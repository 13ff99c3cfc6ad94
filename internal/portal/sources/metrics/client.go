// Package metrics reads KPI values from Power BI datasets through the
// executeQueries REST API.
package metrics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"dataportal/internal/portal/models"
	"dataportal/internal/portal/scope"
	"dataportal/internal/portal/sources"
)

const (
	DefaultAPIBaseURL = "https://api.powerbi.com/v1.0/myorg"
	DefaultTimeout    = 30 * time.Second
)

// Measure binds a snapshot key to the DAX expression that produces it.
type Measure struct {
	Key string
	DAX string
}

// Measures are evaluated one executeQueries call each, in this order.
var Measures = []Measure{
	{Key: models.MetricTotalDisbursedUSD, DAX: `EVALUATE ROW("totalDisbursedUsd", [Total Disbursed USD])`},
	{Key: models.MetricProjectsSupported, DAX: `EVALUATE ROW("projectsSupported", [Projects Supported])`},
	{Key: models.MetricCountriesParticipating, DAX: `EVALUATE ROW("countriesParticipating", [Countries Participating])`},
	{Key: models.MetricLoungeInPerson, DAX: `EVALUATE ROW("loungeInPerson", [SDG Lounge In-Person])`},
	{Key: models.MetricLoungeRemote, DAX: `EVALUATE ROW("loungeRemote", [SDG Lounge Remote])`},
	{Key: models.MetricAdvocatesSocialReach, DAX: `EVALUATE ROW("advocatesSocialReach", [SDG Advocates Social Reach])`},
}

// Client evaluates the KPI measures against one Power BI dataset.
type Client struct {
	http      sources.HTTPDoer
	defaults  scope.Defaults
	timeout   time.Duration
	apiBase   string
	authority string
	now       func() time.Time
	tokens    *tokenSource
}

type Option func(*Client)

func WithHTTPClient(doer sources.HTTPDoer) Option {
	return func(c *Client) { c.http = doer }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithAPIBaseURL points the client at a different REST root, e.g. a local
// stand-in for development.
func WithAPIBaseURL(u string) Option {
	return func(c *Client) { c.apiBase = strings.TrimRight(u, "/") }
}

// WithAuthorityURL overrides the token authority host.
func WithAuthorityURL(u string) Option {
	return func(c *Client) { c.authority = u }
}

// WithClock overrides the clock used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func New(defaults scope.Defaults, opts ...Option) *Client {
	c := &Client{
		defaults:  defaults,
		timeout:   DefaultTimeout,
		apiBase:   DefaultAPIBaseURL,
		authority: DefaultAuthorityURL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	c.tokens = newTokenSource(c.http, c.authority, c.now)
	return c
}

// FetchKPISnapshot evaluates every measure. Any failed call fails the whole
// fetch; an unreadable cell yields 0 for that key only. The period does not
// change the DAX; it is part of the call so results are cached per period.
func (c *Client) FetchKPISnapshot(ctx context.Context, _ models.Period, cfg scope.EffectiveConfig) (models.MetricSnapshot, error) {
	creds := credentials{
		tenant:       c.defaults.Get(scope.KeyPBITenantID),
		clientID:     c.defaults.Get(scope.KeyPBIClientID),
		clientSecret: c.defaults.Get(scope.KeyPBIClientSecret),
	}
	if !creds.complete() {
		return nil, sources.Configuration(models.SourceMetrics, "Missing Power BI creds (PBI_TENANT_ID / PBI_CLIENT_ID / PBI_CLIENT_SECRET).")
	}
	if c.http == nil || c.tokens == nil {
		return nil, sources.Configuration(models.SourceMetrics, "Missing dependency: HTTP client")
	}

	groupID := cfg.Value(scope.KeyPBIGroupID, c.defaults)
	datasetID := cfg.Value(scope.KeyPBIDatasetID, c.defaults)
	if groupID == "" || datasetID == "" {
		return nil, sources.Configuration(models.SourceMetrics, "Missing Power BI IDs (PBI_GROUP_ID / PBI_DATASET_ID).")
	}

	endpoint := fmt.Sprintf("%s/groups/%s/datasets/%s/executeQueries", c.apiBase, url.PathEscape(groupID), url.PathEscape(datasetID))
	snapshot := make(models.MetricSnapshot, len(Measures))
	for _, m := range Measures {
		res, err := c.executeDAX(ctx, creds, endpoint, m.DAX)
		if err != nil {
			return nil, err
		}
		snapshot[m.Key] = extractNumber(res, m.Key)
	}
	return snapshot, nil
}

type queryRequest struct {
	Queries            []daxQuery         `json:"queries"`
	SerializerSettings serializerSettings `json:"serializerSettings"`
}

type daxQuery struct {
	Query string `json:"query"`
}

type serializerSettings struct {
	IncludeNulls bool `json:"includeNulls"`
}

// executeResult is the subset of the executeQueries response that is read.
type executeResult struct {
	Results []struct {
		Tables []struct {
			Rows []map[string]any `json:"rows"`
		} `json:"tables"`
	} `json:"results"`
}

func (c *Client) executeDAX(ctx context.Context, creds credentials, endpoint, dax string) (*executeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	token, err := c.tokens.Token(ctx, creds)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(queryRequest{
		Queries:            []daxQuery{{Query: dax}},
		SerializerSettings: serializerSettings{IncludeNulls: true},
	})
	if err != nil {
		return nil, sources.Malformed(models.SourceMetrics, "failed to encode executeQueries request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, sources.Configuration(models.SourceMetrics, fmt.Sprintf("invalid executeQueries URL: %v", err))
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, sources.Transport(ctx, models.SourceMetrics, "executeQueries request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, sources.Transport(ctx, models.SourceMetrics, "failed to read executeQueries response", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, sources.Status(models.SourceMetrics, "executeQueries failed", resp.StatusCode, respBody)
	}

	var res executeResult
	if err := json.Unmarshal(respBody, &res); err != nil {
		return nil, sources.Malformed(models.SourceMetrics, "executeQueries returned malformed JSON", err)
	}
	return &res, nil
}

// extractNumber reads results[0].tables[0].rows[0][col]. Power BI names the
// column "[col]" for ROW() expressions; the bare name is accepted too.
func extractNumber(res *executeResult, col string) float64 {
	v, err := cell(res, col)
	if err != nil {
		return 0
	}
	return v
}

func cell(res *executeResult, col string) (float64, error) {
	if res == nil || len(res.Results) == 0 || len(res.Results[0].Tables) == 0 || len(res.Results[0].Tables[0].Rows) == 0 {
		return 0, sources.Extraction(models.SourceMetrics, "no rows for "+col)
	}
	row := res.Results[0].Tables[0].Rows[0]
	raw, ok := row[col]
	if !ok {
		raw, ok = row["["+col+"]"]
	}
	if !ok || raw == nil {
		return 0, sources.Extraction(models.SourceMetrics, "missing value for "+col)
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, sources.Extraction(models.SourceMetrics, "non-numeric value for "+col)
		}
		return f, nil
	default:
		return 0, sources.Extraction(models.SourceMetrics, "non-numeric value for "+col)
	}
}
