package aggregator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"dataportal/internal/portal/metrics"
	"dataportal/internal/portal/mockdata"
	"dataportal/internal/portal/models"
	"dataportal/internal/portal/scope"
	"dataportal/internal/portal/sources"
	"dataportal/pkg/testutil"
)

// stubCatalog is a test double for CatalogSource.
type stubCatalog struct {
	calls   atomic.Int32
	lastCfg atomic.Value
	fn      func(sc scope.Context) ([]models.Dataset, error)
}

func (s *stubCatalog) SearchDatasets(_ context.Context, sc scope.Context, _ string, _, _ int, cfg scope.EffectiveConfig) ([]models.Dataset, error) {
	s.calls.Add(1)
	s.lastCfg.Store(cfg)
	return s.fn(sc)
}

type stubMetrics struct {
	calls atomic.Int32
	fn    func() (models.MetricSnapshot, error)
}

func (s *stubMetrics) FetchKPISnapshot(context.Context, models.Period, scope.EffectiveConfig) (models.MetricSnapshot, error) {
	s.calls.Add(1)
	return s.fn()
}

type stubWarehouse struct {
	calls atomic.Int32
	fn    func(models.Period) (*models.ChartTables, error)
}

func (s *stubWarehouse) LoadCharts(_ context.Context, p models.Period, _ scope.EffectiveConfig) (*models.ChartTables, error) {
	s.calls.Add(1)
	return s.fn(p)
}

type AggregatorSuite struct {
	suite.Suite
	ctx       context.Context
	catalog   *stubCatalog
	kpis      *stubMetrics
	warehouse *stubWarehouse
	metrics   *metrics.Metrics
	agg       *Aggregator
}

func TestAggregatorSuite(t *testing.T) {
	suite.Run(t, new(AggregatorSuite))
}

func (s *AggregatorSuite) SetupTest() {
	s.ctx = context.Background()
	s.catalog = &stubCatalog{fn: func(sc scope.Context) ([]models.Dataset, error) {
		return []models.Dataset{testutil.NewDatasetBuilder("urn:li:dataset:live").WithName("Live").ForDepartment(sc.DepartmentID).Build()}, nil
	}}
	s.kpis = &stubMetrics{fn: func() (models.MetricSnapshot, error) {
		return models.MetricSnapshot{models.MetricTotalDisbursedUSD: 30_000_000}, nil
	}}
	s.warehouse = &stubWarehouse{fn: func(models.Period) (*models.ChartTables, error) {
		return &models.ChartTables{Trend: []models.TrendRow{{Period: "2025", DisbursedM: 11}}}, nil
	}}
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.agg = New(s.catalog, s.kpis, s.warehouse,
		WithMetrics(s.metrics),
		WithDepartmentConfig([]byte(`{"central":{"DATAHUB_QUERY":"*"},"unfip":{"DATAHUB_QUERY":"funding"}}`)),
	)
}

func (s *AggregatorSuite) liveRequest(sc scope.Context) Request {
	return Request{RunMode: models.RunModeLive, Scope: sc, Period: models.PeriodY2024}
}

func (s *AggregatorSuite) department(id string) scope.Context {
	sc, err := scope.Parse("department", id)
	s.Require().NoError(err)
	return sc
}

func (s *AggregatorSuite) TestMockMode() {
	s.Run("central scope returns the full baseline without network", func() {
		view := s.agg.BuildPortalView(s.ctx, Request{RunMode: models.RunModeMock, Scope: scope.Central(), Period: models.PeriodY2024})

		s.Len(view.Datasets, 3)
		s.Len(view.KPIs, 2)
		s.Empty(view.Errors)
		s.NotNil(view.Errors)
		s.InDelta(23_500_000, view.Metrics[models.MetricTotalDisbursedUSD], 0)
		s.Equal(mockdata.Charts(), view.Charts)
		s.Zero(s.catalog.calls.Load() + s.kpis.calls.Load() + s.warehouse.calls.Load())
	})

	s.Run("department scope keeps its own and central assets", func() {
		view := s.agg.BuildPortalView(s.ctx, Request{RunMode: models.RunModeMock, Scope: s.department("unfip"), Period: models.PeriodY2024})

		ids := make([]string, 0, len(view.Datasets))
		for _, d := range view.Datasets {
			ids = append(ids, d.ID)
			s.Contains([]string{"unfip", scope.CentralID}, d.Department)
		}
		s.Equal([]string{"gold_unfip_funding", "gold_initiative_engagement"}, ids)
		s.Len(view.KPIs, 2)
	})

	s.Run("department with no own assets sees only central", func() {
		view := s.agg.BuildPortalView(s.ctx, Request{RunMode: models.RunModeMock, Scope: s.department("gender"), Period: models.PeriodY2024})
		s.Len(view.Datasets, 1)
		s.Len(view.KPIs, 1)
		s.Equal(scope.CentralID, view.KPIs[0].Department)
	})
}

func (s *AggregatorSuite) TestLiveMode() {
	s.Run("successful sources replace the baseline", func() {
		view := s.agg.BuildPortalView(s.ctx, s.liveRequest(scope.Central()))

		s.Empty(view.Errors)
		s.Equal("urn:li:dataset:live", view.Datasets[0].ID)
		s.InDelta(30_000_000, view.Metrics[models.MetricTotalDisbursedUSD], 0)
		s.InDelta(720, view.Metrics[models.MetricProjectsSupported], 0, "unfetched keys keep their default")
		s.Equal([]models.TrendRow{{Period: "2025", DisbursedM: 11}}, view.Charts.Trend)
		s.Nil(view.Charts.Breakdown, "charts are replaced wholesale")
		s.Len(view.KPIs, 2)
	})

	s.Run("department config is resolved for the adapters", func() {
		s.agg.BuildPortalView(s.ctx, s.liveRequest(s.department("unfip")))
		cfg := s.catalog.lastCfg.Load().(scope.EffectiveConfig)
		s.Equal("funding", cfg[scope.KeyDataHubQuery])
	})

	s.Run("live mode does not post-filter datasets by department", func() {
		s.catalog.fn = func(scope.Context) ([]models.Dataset, error) {
			return []models.Dataset{
				testutil.NewDatasetBuilder("a").ForDepartment("partnerships").Build(),
				testutil.NewDatasetBuilder("b").ForDepartment("advocacy").Build(),
			}, nil
		}
		s.Require().NoError(s.agg.Refresh(s.ctx))

		view := s.agg.BuildPortalView(s.ctx, s.liveRequest(s.department("gender")))
		s.Len(view.Datasets, 2)
	})
}

func (s *AggregatorSuite) TestIsolation() {
	catalogErr := sources.Configuration(models.SourceCatalog, "Missing DataHub creds (DATAHUB_GQL_ENDPOINT / DATAHUB_TOKEN).")
	metricsErr := sources.Auth(models.SourceMetrics, "Token failure: invalid_client")
	warehouseErr := sources.Configuration(models.SourceWarehouse, "Missing WAREHOUSE_DSN.")

	s.Run("one failure leaves the other sources intact", func() {
		s.catalog.fn = func(scope.Context) ([]models.Dataset, error) { return nil, catalogErr }

		view := s.agg.BuildPortalView(s.ctx, s.liveRequest(scope.Central()))

		s.Equal([]string{"DataHub: Missing DataHub creds (DATAHUB_GQL_ENDPOINT / DATAHUB_TOKEN)."}, view.Errors)
		s.Equal(mockdata.Datasets(), view.Datasets)
		s.InDelta(30_000_000, view.Metrics[models.MetricTotalDisbursedUSD], 0)
		s.Equal(int32(1), s.kpis.calls.Load())
		s.Equal(int32(1), s.warehouse.calls.Load())
		s.InDelta(1, promtestutil.ToFloat64(s.metrics.SourceFailuresTotal.WithLabelValues("DataHub", "configuration")), 0)
	})

	s.Run("errors keep source order regardless of completion order", func() {
		s.kpis.fn = func() (models.MetricSnapshot, error) {
			time.Sleep(20 * time.Millisecond)
			return nil, metricsErr
		}
		s.warehouse.fn = func(models.Period) (*models.ChartTables, error) { return nil, warehouseErr }
		s.catalog.fn = func(scope.Context) ([]models.Dataset, error) {
			time.Sleep(40 * time.Millisecond)
			return nil, catalogErr
		}

		view := s.agg.BuildPortalView(s.ctx, s.liveRequest(s.department("advocacy")))

		s.Equal([]string{
			"DataHub: Missing DataHub creds (DATAHUB_GQL_ENDPOINT / DATAHUB_TOKEN).",
			"Power BI: Token failure: invalid_client",
			"Warehouse: Missing WAREHOUSE_DSN.",
		}, view.Errors)
		s.Equal(mockdata.MetricSnapshot(), view.Metrics)
		s.Equal(mockdata.Charts(), view.Charts)
		s.Len(view.Outcomes, 3)
	})
}

func (s *AggregatorSuite) TestCaching() {
	s.Run("repeat views within ttl reuse adapter results", func() {
		s.agg.BuildPortalView(s.ctx, s.liveRequest(scope.Central()))
		s.agg.BuildPortalView(s.ctx, s.liveRequest(scope.Central()))

		s.Equal(int32(1), s.catalog.calls.Load())
		s.Equal(int32(1), s.kpis.calls.Load())
		s.Equal(int32(1), s.warehouse.calls.Load())
	})

	s.Run("distinct scope and period do not share entries", func() {
		s.agg.BuildPortalView(s.ctx, s.liveRequest(s.department("unfip")))
		s.agg.BuildPortalView(s.ctx, Request{RunMode: models.RunModeLive, Scope: scope.Central(), Period: models.PeriodY2025})

		s.Equal(int32(2), s.catalog.calls.Load())
		s.Equal(int32(3), s.kpis.calls.Load())
	})

	s.Run("failed fetches are retried on the next view", func() {
		var fail atomic.Bool
		fail.Store(true)
		s.warehouse.fn = func(models.Period) (*models.ChartTables, error) {
			if fail.Load() {
				return nil, errors.New("connection refused")
			}
			return &models.ChartTables{}, nil
		}
		req := Request{RunMode: models.RunModeLive, Scope: s.department("gender"), Period: models.PeriodLast6m}

		first := s.agg.BuildPortalView(s.ctx, req)
		s.Len(first.Errors, 1)
		fail.Store(false)
		second := s.agg.BuildPortalView(s.ctx, req)
		s.Empty(second.Errors)
	})

	s.Run("refresh forces refetch", func() {
		before := s.catalog.calls.Load()
		s.Require().NoError(s.agg.Refresh(s.ctx))
		s.agg.BuildPortalView(s.ctx, s.liveRequest(scope.Central()))
		s.Equal(before+1, s.catalog.calls.Load())
	})
}

func (s *AggregatorSuite) TestConcurrentViewsAndRefresh() {
	result := testutil.RunConcurrentCtx(s.ctx, 16, func(ctx context.Context, idx int) error {
		if idx%4 == 0 {
			return s.agg.Refresh(ctx)
		}
		view := s.agg.BuildPortalView(ctx, s.liveRequest(scope.Central()))
		if len(view.Errors) > 0 {
			return errors.New(view.Errors[0])
		}
		return nil
	})

	s.Equal(int32(16), result.Successes)
	s.Equal(int32(16), result.Total())
}

type stubNotifier struct {
	calls atomic.Int32
	err   error
}

func (n *stubNotifier) Announce(context.Context, time.Time) error {
	n.calls.Add(1)
	return n.err
}

func (s *AggregatorSuite) TestRefreshBroadcast() {
	s.Run("successful refresh is announced", func() {
		n := &stubNotifier{}
		agg := New(s.catalog, s.kpis, s.warehouse, WithRefreshNotifier(n))
		s.Require().NoError(agg.Refresh(s.ctx))
		s.Equal(int32(1), n.calls.Load())
	})

	s.Run("broadcast failure does not fail the refresh", func() {
		n := &stubNotifier{err: errors.New("broker down")}
		agg := New(s.catalog, s.kpis, s.warehouse, WithRefreshNotifier(n))
		s.NoError(agg.Refresh(s.ctx))
	})

	s.Run("invalidate clears without announcing", func() {
		n := &stubNotifier{}
		agg := New(s.catalog, s.kpis, s.warehouse, WithRefreshNotifier(n))
		agg.BuildPortalView(s.ctx, s.liveRequest(scope.Central()))
		before := s.catalog.calls.Load()

		s.Require().NoError(agg.Invalidate(s.ctx))
		agg.BuildPortalView(s.ctx, s.liveRequest(scope.Central()))

		s.Equal(before+1, s.catalog.calls.Load())
		s.Zero(n.calls.Load())
	})
}
