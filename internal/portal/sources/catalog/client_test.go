package catalog

//go:generate mockgen -source=../errors.go -destination=../mocks/mock_doer.go -package=mocks HTTPDoer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"dataportal/internal/portal/scope"
	"dataportal/internal/portal/sources"
	sourcesmocks "dataportal/internal/portal/sources/mocks"
)

type CatalogClientSuite struct {
	suite.Suite
	ctx context.Context
}

func TestCatalogClientSuite(t *testing.T) {
	suite.Run(t, new(CatalogClientSuite))
}

func (s *CatalogClientSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *CatalogClientSuite) server(status int, body string, inspect func(*http.Request, map[string]any)) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inspect != nil {
			raw, _ := io.ReadAll(r.Body)
			var decoded map[string]any
			_ = json.Unmarshal(raw, &decoded)
			inspect(r, decoded)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	s.T().Cleanup(srv.Close)
	return srv
}

func (s *CatalogClientSuite) TestSearchDatasets() {
	s.Run("maps entities and substitutes defaults", func() {
		body := `{"data":{"search":{"searchResults":[
			{"entity":{"urn":"urn:li:dataset:1","properties":{"name":"Disbursements","description":"Facts"},
			  "domain":{"properties":{"name":"Funding"}},
			  "tags":{"tags":[{"tag":{"properties":{"name":"Gold"}}},{"tag":null},{"tag":{"properties":{"name":""}}},null]}}},
			{"entity":{"urn":null,"properties":{"name":"Only Name"}}},
			{"entity":{"urn":"urn:li:dataset:3","properties":null,"domain":null,"tags":null}},
			{"entity":null}
		]}}}`
		srv := s.server(http.StatusOK, body, nil)
		client := New(scope.Defaults{scope.KeyDataHubEndpoint: srv.URL, scope.KeyDataHubToken: "t"})

		sc, err := scope.Parse("department", "unfip")
		s.Require().NoError(err)
		got, err := client.SearchDatasets(s.ctx, sc, "*", 0, 50, nil)
		s.Require().NoError(err)
		s.Require().Len(got, 4)

		s.Equal("urn:li:dataset:1", got[0].ID)
		s.Equal("Disbursements", got[0].Name)
		s.Equal("Funding", got[0].Domain)
		s.Equal([]string{"Gold"}, got[0].Tags)
		s.Equal("unfip", got[0].Department)

		s.Equal("Only Name", got[1].ID)
		s.Equal("Only Name", got[1].Name)
		s.Equal(DefaultDomain, got[1].Domain)

		s.Equal("urn:li:dataset:3", got[2].Name)
		s.Empty(got[2].Description)
		s.Equal([]string{}, got[2].Tags)

		s.Equal("dataset", got[3].ID)
		s.Equal("Dataset", got[3].Name)
		s.Equal(DefaultSensitivity, got[3].Sensitivity)
		s.True(got[3].Certified)
		s.Equal(DefaultOwner, got[3].Owner)
		s.Equal(DefaultCadence, got[3].UpdateCadence)
		s.Equal(DefaultFreshnessSLA, got[3].FreshnessSLAHours)
		s.Equal([]string{}, got[3].Tables)
	})

	s.Run("reads the domain in the shape the search document requests", func() {
		var sentQuery string
		body := `{"data":{"search":{"searchResults":[
			{"entity":{"urn":"u1","properties":{"name":"n"},"domain":{"properties":{"name":"Funding"}}}},
			{"entity":{"urn":"u2","properties":{"name":"m"},"domain":{"properties":null}}}
		]}}}`
		srv := s.server(http.StatusOK, body, func(_ *http.Request, decoded map[string]any) {
			sentQuery, _ = decoded["query"].(string)
		})
		client := New(scope.Defaults{scope.KeyDataHubEndpoint: srv.URL, scope.KeyDataHubToken: "t"})

		got, err := client.SearchDatasets(s.ctx, scope.Central(), "*", 0, 50, nil)
		s.Require().NoError(err)
		s.Contains(sentQuery, "domain { properties { name } }")
		s.Equal("Funding", got[0].Domain)
		s.Equal(DefaultDomain, got[1].Domain)
	})

	s.Run("keeps tags that differ only in case and drops blanks", func() {
		body := `{"data":{"search":{"searchResults":[{"entity":{"urn":"u","tags":{"tags":[
			{"tag":{"properties":{"name":"Gold"}}},
			{"tag":{"properties":{"name":"gold"}}},
			{"tag":{"properties":{"name":"  "}}},
			{"tag":{"properties":{"name":null}}},
			{"tag":{"properties":{"name":"SDG"}}}
		]}}}]}}}`
		srv := s.server(http.StatusOK, body, nil)
		client := New(scope.Defaults{scope.KeyDataHubEndpoint: srv.URL, scope.KeyDataHubToken: "t"})

		got, err := client.SearchDatasets(s.ctx, scope.Central(), "*", 0, 50, nil)
		s.Require().NoError(err)
		s.Equal([]string{"Gold", "gold", "SDG"}, got[0].Tags)
	})

	s.Run("central scope tags datasets as central", func() {
		srv := s.server(http.StatusOK, `{"data":{"search":{"searchResults":[{"entity":{"urn":"u"}}]}}}`, nil)
		client := New(scope.Defaults{scope.KeyDataHubEndpoint: srv.URL, scope.KeyDataHubToken: "t"})

		got, err := client.SearchDatasets(s.ctx, scope.Central(), "*", 0, 50, nil)
		s.Require().NoError(err)
		s.Equal(scope.CentralID, got[0].Department)
	})

	s.Run("sends the graphql search with the department query override", func() {
		var gotAuth string
		var gotInput map[string]any
		srv := s.server(http.StatusOK, `{"data":{"search":{"searchResults":[]}}}`, func(r *http.Request, body map[string]any) {
			gotAuth = r.Header.Get("Authorization")
			vars, _ := body["variables"].(map[string]any)
			gotInput, _ = vars["input"].(map[string]any)
		})
		client := New(scope.Defaults{scope.KeyDataHubEndpoint: srv.URL, scope.KeyDataHubToken: "secret"})

		got, err := client.SearchDatasets(s.ctx, scope.Central(), "*", 10, 25, scope.EffectiveConfig{scope.KeyDataHubQuery: "funding"})
		s.Require().NoError(err)
		s.Empty(got)
		s.Equal("Bearer secret", gotAuth)
		s.Equal("DATASET", gotInput["type"])
		s.Equal("funding", gotInput["query"])
		s.InDelta(10, gotInput["start"], 0)
		s.InDelta(25, gotInput["count"], 0)
	})

	s.Run("status errors carry a truncated body", func() {
		srv := s.server(http.StatusBadGateway, strings.Repeat("x", 2000), nil)
		client := New(scope.Defaults{scope.KeyDataHubEndpoint: srv.URL, scope.KeyDataHubToken: "t"})

		_, err := client.SearchDatasets(s.ctx, scope.Central(), "*", 0, 50, nil)
		s.Require().Error(err)
		s.True(sources.IsSource(err))
		s.Equal("DataHub search failed: 502 "+strings.Repeat("x", 500), err.Error())
	})

	s.Run("malformed json is a source error", func() {
		srv := s.server(http.StatusOK, `{"data":`, nil)
		client := New(scope.Defaults{scope.KeyDataHubEndpoint: srv.URL, scope.KeyDataHubToken: "t"})

		_, err := client.SearchDatasets(s.ctx, scope.Central(), "*", 0, 50, nil)
		s.True(sources.IsSource(err))
	})
}

func (s *CatalogClientSuite) TestConfigurationErrorsSkipNetwork() {
	ctrl := gomock.NewController(s.T())
	doer := sourcesmocks.NewMockHTTPDoer(ctrl)
	doer.EXPECT().Do(gomock.Any()).Times(0)

	tests := []struct {
		name     string
		defaults scope.Defaults
	}{
		{name: "missing endpoint", defaults: scope.Defaults{scope.KeyDataHubToken: "t"}},
		{name: "missing token", defaults: scope.Defaults{scope.KeyDataHubEndpoint: "http://datahub.test"}},
		{name: "missing both", defaults: scope.Defaults{}},
	}
	for _, tc := range tests {
		s.Run(tc.name, func() {
			client := New(tc.defaults, WithHTTPClient(doer))
			_, err := client.SearchDatasets(s.ctx, scope.Central(), "*", 0, 50, nil)
			s.Require().Error(err)
			s.True(sources.IsConfiguration(err))
			s.Contains(err.Error(), "DATAHUB_GQL_ENDPOINT / DATAHUB_TOKEN")
		})
	}
}

func (s *CatalogClientSuite) TestTimeout() {
	ctrl := gomock.NewController(s.T())
	doer := sourcesmocks.NewMockHTTPDoer(ctrl)
	doer.EXPECT().Do(gomock.Any()).DoAndReturn(func(req *http.Request) (*http.Response, error) {
		<-req.Context().Done()
		return nil, req.Context().Err()
	})

	client := New(
		scope.Defaults{scope.KeyDataHubEndpoint: "http://datahub.test/api/graphql", scope.KeyDataHubToken: "t"},
		WithHTTPClient(doer),
		WithTimeout(10*time.Millisecond),
	)
	_, err := client.SearchDatasets(s.ctx, scope.Central(), "*", 0, 50, nil)
	s.Require().Error(err)
	s.Equal(sources.ErrorTimeout, sources.CategoryOf(err))
}
