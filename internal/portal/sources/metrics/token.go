package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"dataportal/internal/portal/models"
	"dataportal/internal/portal/sources"
)

const (
	// PowerBIScope is the client-credentials scope for the Power BI REST API.
	PowerBIScope = "https://analysis.windows.net/powerbi/api/.default"

	// DefaultAuthorityURL is joined with "/{tenant}/oauth2/v2.0/token".
	DefaultAuthorityURL = "https://login.microsoftonline.com"

	// tokens are refreshed this long before they expire
	expirySkew = 2 * time.Minute
)

type credentials struct {
	tenant       string
	clientID     string
	clientSecret string
}

func (c credentials) complete() bool {
	return c.tenant != "" && c.clientID != "" && c.clientSecret != ""
}

type tokenResponse struct {
	AccessToken      string      `json:"access_token"`
	ExpiresIn        json.Number `json:"expires_in"`
	ErrorDescription string      `json:"error_description"`
}

type cachedToken struct {
	value     string
	expiresAt time.Time
}

// tokenSource exchanges client credentials for bearer tokens and keeps them
// until shortly before expiry.
type tokenSource struct {
	http      sources.HTTPDoer
	authority string
	now       func() time.Time

	mu     sync.Mutex
	tokens map[string]cachedToken
}

func newTokenSource(doer sources.HTTPDoer, authority string, now func() time.Time) *tokenSource {
	return &tokenSource{
		http:      doer,
		authority: strings.TrimRight(authority, "/"),
		now:       now,
		tokens:    make(map[string]cachedToken),
	}
}

func (t *tokenSource) tokenURL(tenant string) string {
	return fmt.Sprintf("%s/%s/oauth2/v2.0/token", t.authority, url.PathEscape(tenant))
}

// Token returns a cached token or performs the exchange.
func (t *tokenSource) Token(ctx context.Context, creds credentials) (string, error) {
	key := creds.tenant + "/" + creds.clientID

	t.mu.Lock()
	if tok, ok := t.tokens[key]; ok && t.now().Before(tok.expiresAt) {
		t.mu.Unlock()
		return tok.value, nil
	}
	t.mu.Unlock()

	tok, err := t.exchange(ctx, creds)
	if err != nil {
		return "", err
	}

	if !tok.expiresAt.IsZero() {
		t.mu.Lock()
		t.tokens[key] = tok
		t.mu.Unlock()
	}
	return tok.value, nil
}

func (t *tokenSource) exchange(ctx context.Context, creds credentials) (cachedToken, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {creds.clientID},
		"client_secret": {creds.clientSecret},
		"scope":         {PowerBIScope},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.tokenURL(creds.tenant), strings.NewReader(form.Encode()))
	if err != nil {
		return cachedToken{}, sources.Configuration(models.SourceMetrics, fmt.Sprintf("invalid token authority: %v", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.http.Do(req)
	if err != nil {
		return cachedToken{}, sources.Transport(ctx, models.SourceMetrics, "token request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return cachedToken{}, sources.Transport(ctx, models.SourceMetrics, "failed to read token response", err)
	}

	var decoded tokenResponse
	if err := json.Unmarshal(body, &decoded); err != nil || decoded.AccessToken == "" {
		reason := strings.TrimSpace(string(body))
		if decoded.ErrorDescription != "" {
			reason = decoded.ErrorDescription
		}
		return cachedToken{}, sources.Auth(models.SourceMetrics, "Token failure: "+sources.Truncate(reason, sources.MaxBodyExcerpt))
	}

	return cachedToken{
		value:     decoded.AccessToken,
		expiresAt: t.expiry(decoded),
	}, nil
}

// expiry prefers the exp claim of the token and falls back to expires_in.
// A zero result means the token is not cached.
func (t *tokenSource) expiry(resp tokenResponse) time.Time {
	var exp time.Time
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(resp.AccessToken, claims); err == nil {
		if numeric, err := claims.GetExpirationTime(); err == nil && numeric != nil {
			exp = numeric.Time
		}
	}
	if exp.IsZero() {
		if secs, err := resp.ExpiresIn.Int64(); err == nil && secs > 0 {
			exp = t.now().Add(time.Duration(secs) * time.Second)
		}
	}
	if exp.IsZero() {
		return time.Time{}
	}
	exp = exp.Add(-expirySkew)
	if !exp.After(t.now()) {
		return time.Time{}
	}
	return exp
}
