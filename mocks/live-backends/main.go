// Command live-backends stands in for the DataHub GraphQL endpoint, the
// Entra ID token endpoint and the Power BI executeQueries API so the portal
// can run in live mode locally. Warehouse charts come from the Postgres
// seeded by migrations/.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort         = "8090"
	defaultToken        = "datahub-dev-token"
	defaultClientSecret = "pbi-dev-secret"
)

var (
	datahubToken = getEnv("DATAHUB_TOKEN", defaultToken)
	clientSecret = getEnv("PBI_CLIENT_SECRET", defaultClientSecret)
	latency      = time.Duration(getEnvInt("LATENCY_MS", 50)) * time.Millisecond
)

func main() {
	port := getEnv("PORT", defaultPort)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("POST /api/graphql", handleGraphQL)
	mux.HandleFunc("POST /{tenant}/oauth2/v2.0/token", handleToken)
	mux.HandleFunc("POST /v1.0/myorg/groups/{group}/datasets/{dataset}/executeQueries", handleExecuteQueries)

	log.Printf("mock live backends listening on :%s (latency %s)", port, latency)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Fatal(err)
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "live-backends"})
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type dataset struct {
	urn, name, description, domain string
	tags                           []string
}

var catalog = []dataset{
	{"urn:li:dataset:(urn:li:dataPlatform:databricks,gold.unfip_funding,PROD)", "gold_unfip_funding", "Disbursements by fund and entity", "Funding", []string{"Gold", "Certified"}},
	{"urn:li:dataset:(urn:li:dataPlatform:databricks,gold.initiative_engagement,PROD)", "gold_initiative_engagement", "Lounge and advocate reach", "Engagement", []string{"Gold"}},
	{"urn:li:dataset:(urn:li:dataPlatform:databricks,gold.partnership_kpis,PROD)", "gold_partnership_kpis", "Partnership pipeline facts", "Partnerships", []string{"Gold", "KPI"}},
	{"urn:li:dataset:(urn:li:dataPlatform:databricks,silver.women_rise_events,PROD)", "silver_women_rise_events", "Women Rise for All event attendance", "Gender", nil},
}

// handleGraphQL answers the search query with the entities whose name or
// description contains the query text; "*" matches everything.
func handleGraphQL(w http.ResponseWriter, r *http.Request) {
	time.Sleep(latency)
	if r.Header.Get("Authorization") != "Bearer "+datahubToken {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
		return
	}

	var req graphQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": []map[string]string{{"message": "invalid request body"}}})
		return
	}
	query, count := "*", len(catalog)
	if input, ok := req.Variables["input"].(map[string]any); ok {
		if q, ok := input["query"].(string); ok && q != "" {
			query = q
		}
		if c, ok := input["count"].(float64); ok && int(c) < count {
			count = int(c)
		}
	}

	results := []map[string]any{}
	for _, d := range catalog {
		if len(results) == count {
			break
		}
		if !matches(d, query) {
			continue
		}
		results = append(results, map[string]any{"entity": entity(d)})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"search": map[string]any{"total": len(results), "searchResults": results},
		},
	})
}

func matches(d dataset, query string) bool {
	if query == "*" {
		return true
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(d.name), q) || strings.Contains(strings.ToLower(d.description), q)
}

func entity(d dataset) map[string]any {
	tags := make([]map[string]any, 0, len(d.tags))
	for _, t := range d.tags {
		tags = append(tags, map[string]any{"tag": map[string]any{"properties": map[string]string{"name": t}}})
	}
	return map[string]any{
		"urn":        d.urn,
		"properties": map[string]string{"name": d.name, "description": d.description},
		"domain":     map[string]any{"properties": map[string]string{"name": d.domain}},
		"tags":       map[string]any{"tags": tags},
	}
}

func handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}
	if r.PostForm.Get("client_secret") != clientSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error":             "invalid_client",
			"error_description": "AADSTS7000215: Invalid client secret provided.",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token_type":   "Bearer",
		"expires_in":   3599,
		"access_token": "mock-pbi-token-" + r.PathValue("tenant"),
	})
}

var measureValues = map[string]float64{
	"totalDisbursedUsd":      24_100_000,
	"projectsSupported":      735,
	"countriesParticipating": 121,
	"loungeInPerson":         4_200,
	"loungeRemote":           2_450_000,
	"advocatesSocialReach":   660_000_000,
}

var rowColumn = regexp.MustCompile(`ROW\("([^"]+)"`)

// handleExecuteQueries evaluates EVALUATE ROW("<col>", ...) against a fixed
// table of measure values.
func handleExecuteQueries(w http.ResponseWriter, r *http.Request) {
	time.Sleep(latency)
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer mock-pbi-token-") {
		writeJSON(w, http.StatusForbidden, map[string]any{"error": map[string]string{"code": "PowerBINotAuthorizedException"}})
		return
	}
	var req struct {
		Queries []struct {
			Query string `json:"query"`
		} `json:"queries"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Queries) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]string{"code": "InvalidRequest"}})
		return
	}

	m := rowColumn.FindStringSubmatch(req.Queries[0].Query)
	if m == nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]string{"code": "DaxParseError"}})
		return
	}
	row := map[string]any{"[" + m[1] + "]": nil}
	if v, ok := measureValues[m[1]]; ok {
		row["["+m[1]+"]"] = v
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": []map[string]any{{
			"tables": []map[string]any{{"rows": []map[string]any{row}}},
		}},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
