package handler

//go:generate mockgen -source=handler.go -destination=mocks/mock_service.go -package=mocks Service

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"dataportal/internal/portal/aggregator"
	"dataportal/internal/portal/handler/mocks"
	"dataportal/internal/portal/models"
	"dataportal/internal/portal/scope"
	"dataportal/pkg/platform/httputil"
)

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	h := New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.now = func() time.Time { return time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC) }
	s.router = chi.NewRouter()
	h.Register(s.router)
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) do(method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func (s *HandlerSuite) decode(rec *httptest.ResponseRecorder, out any) {
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(out))
}

func (s *HandlerSuite) TestQueryDefaults() {
	s.service.EXPECT().
		BuildPortalView(gomock.Any(), aggregator.Request{
			RunMode: models.RunModeMock,
			Scope:   scope.Central(),
			Period:  models.PeriodY2024,
		}).
		Return(&models.PortalView{Metrics: models.MetricSnapshot{}, Errors: []string{}})

	rec := s.do(http.MethodGet, "/api/v1/portal/view")
	s.Equal(http.StatusOK, rec.Code)

	var body ViewResponse
	s.decode(rec, &body)
	s.Equal(scope.CentralName, body.ScopeLabel)
	s.Len(body.Headlines, 4)
}

func (s *HandlerSuite) TestDepartmentSelection() {
	unfip, err := scope.Parse("department", "unfip")
	s.Require().NoError(err)

	s.service.EXPECT().
		BuildPortalView(gomock.Any(), aggregator.Request{RunMode: models.RunModeLive, Scope: unfip, Period: models.PeriodY2025}).
		Return(&models.PortalView{Errors: []string{"Power BI: Token failure: invalid_client"}})

	rec := s.do(http.MethodGet, "/api/v1/portal/kpis?mode=LIVE&scope=department&period=y2025")
	s.Equal(http.StatusOK, rec.Code)

	var body KPIResponse
	s.decode(rec, &body)
	s.Equal([]string{"Power BI: Token failure: invalid_client"}, body.Errors)
}

func (s *HandlerSuite) TestValidation() {
	tests := []struct {
		name   string
		target string
		desc   string
	}{
		{"unknown mode", "/api/v1/portal/view?mode=demo", "mode must be one of [mock live]"},
		{"unknown scope", "/api/v1/portal/catalog?scope=global", "scope must be one of [central department]"},
		{"unknown period", "/api/v1/portal/kpis?period=q3", "period must be one of [y2024 y2025 last_30d last_6m]"},
		{"unknown department", "/api/v1/portal/gallery?scope=department&department=finance", "department must be one of [unfip advocacy partnerships gender]"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			rec := s.do(http.MethodGet, tt.target)
			s.Equal(http.StatusBadRequest, rec.Code)

			var body httputil.ErrorResponse
			s.decode(rec, &body)
			s.Equal("validation_error", body.Error)
			s.Equal(tt.desc, body.ErrorDescription)
		})
	}
}

func (s *HandlerSuite) TestCentralIgnoresDepartment() {
	s.service.EXPECT().
		BuildPortalView(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, req aggregator.Request) *models.PortalView {
			s.Equal(scope.Central(), req.Scope)
			return &models.PortalView{}
		})

	rec := s.do(http.MethodGet, "/api/v1/portal/view?scope=central&department=finance")
	s.Equal(http.StatusOK, rec.Code)
}

func (s *HandlerSuite) TestRefresh() {
	s.Run("success", func() {
		s.service.EXPECT().Refresh(gomock.Any()).Return(nil)

		rec := s.do(http.MethodPost, "/api/v1/portal/refresh")
		s.Equal(http.StatusOK, rec.Code)

		var body RefreshResponse
		s.decode(rec, &body)
		s.Equal("cleared", body.Status)
		s.Equal("2025-06-01T08:00:00Z", body.ClearedAt)
	})

	s.Run("store failure is reported as unavailable", func() {
		s.service.EXPECT().Refresh(gomock.Any()).Return(errors.New("dial tcp: connection refused"))

		rec := s.do(http.MethodPost, "/api/v1/portal/refresh")
		s.Equal(http.StatusServiceUnavailable, rec.Code)

		var body httputil.ErrorResponse
		s.decode(rec, &body)
		s.Equal("service_unavailable", body.Error)
		s.Equal("cache refresh failed", body.ErrorDescription)
	})

	s.Run("GET is not routed", func() {
		rec := s.do(http.MethodGet, "/api/v1/portal/refresh")
		s.Equal(http.StatusMethodNotAllowed, rec.Code)
	})
}

func (s *HandlerSuite) TestDepartments() {
	rec := s.do(http.MethodGet, "/api/v1/portal/departments")
	s.Equal(http.StatusOK, rec.Code)

	var body DepartmentsResponse
	s.decode(rec, &body)
	s.Equal(scope.CentralID, body.Central.ID)
	s.Len(body.Departments, 4)
	s.Equal("Gender / Women Rise", body.Departments[3].Name)
}

// MockModeSuite drives the handler against a real aggregator in mock mode.
type MockModeSuite struct {
	suite.Suite
	router chi.Router
}

func TestMockModeSuite(t *testing.T) {
	suite.Run(t, new(MockModeSuite))
}

func (s *MockModeSuite) SetupTest() {
	agg := aggregator.New(nil, nil, nil)
	s.router = chi.NewRouter()
	New(agg, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

func (s *MockModeSuite) get(target string, out any) {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(out))
}

func (s *MockModeSuite) TestCentralView() {
	var body struct {
		Datasets  []models.Dataset       `json:"datasets"`
		KPIs      []models.KPIDefinition `json:"kpis"`
		Metrics   models.MetricSnapshot  `json:"metrics"`
		Errors    []string               `json:"errors"`
		Headlines []struct {
			Formatted string `json:"formatted"`
		} `json:"headlines"`
	}
	s.get("/api/v1/portal/view?mode=mock&scope=central&period=y2024", &body)

	s.Len(body.Datasets, 3)
	s.Len(body.KPIs, 2)
	s.NotNil(body.Errors)
	s.Empty(body.Errors)
	s.InDelta(23_500_000, body.Metrics[models.MetricTotalDisbursedUSD], 0)
	s.Equal("$23.5M", body.Headlines[0].Formatted)
}

func (s *MockModeSuite) TestCatalogSearch() {
	var body CatalogResponse
	s.get("/api/v1/portal/catalog?scope=department&department=unfip&q=engagement", &body)

	s.Equal(1, body.Count)
	s.Equal("gold_initiative_engagement", body.Datasets[0].ID)
	s.Equal([]string{"Engagement", "Funding"}, body.Domains)
}

func (s *MockModeSuite) TestGallery() {
	var body GalleryResponse
	s.get("/api/v1/portal/gallery?scope=department&department=unfip", &body)

	s.Equal("Department: UNFIP / Funding", body.ScopeLabel)
	s.Len(body.Items, 3)
}
