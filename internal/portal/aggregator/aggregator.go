// Package aggregator builds the combined portal view from the built-in
// baseline and, in live mode, the three source adapters.
package aggregator

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"dataportal/internal/portal/cache"
	"dataportal/internal/portal/metrics"
	"dataportal/internal/portal/mockdata"
	"dataportal/internal/portal/models"
	"dataportal/internal/portal/scope"
	"dataportal/internal/portal/sources"
	"dataportal/internal/portal/tracer"
)

// CatalogSource searches the metadata catalog.
type CatalogSource interface {
	SearchDatasets(ctx context.Context, sc scope.Context, query string, start, count int, cfg scope.EffectiveConfig) ([]models.Dataset, error)
}

// MetricsSource reads the KPI snapshot.
type MetricsSource interface {
	FetchKPISnapshot(ctx context.Context, period models.Period, cfg scope.EffectiveConfig) (models.MetricSnapshot, error)
}

// WarehouseSource loads the chart tables.
type WarehouseSource interface {
	LoadCharts(ctx context.Context, period models.Period, cfg scope.EffectiveConfig) (*models.ChartTables, error)
}

// RefreshNotifier tells peer replicas about a completed refresh.
type RefreshNotifier interface {
	Announce(ctx context.Context, clearedAt time.Time) error
}

// Catalog search arguments used for the portal view.
const (
	DefaultCatalogQuery = "*"
	DefaultCatalogStart = 0
	DefaultCatalogCount = 50
)

// Request is one portal view selection.
type Request struct {
	RunMode models.RunMode
	Scope   scope.Context
	Period  models.Period
}

// Aggregator orchestrates the source adapters for a scope and period.
type Aggregator struct {
	catalog   CatalogSource
	kpis      MetricsSource
	warehouse WarehouseSource

	cache      *cache.Cache
	ttl        time.Duration
	deptConfig []byte

	notifier RefreshNotifier

	tracer  tracer.Tracer
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures the Aggregator.
type Option func(*Aggregator)

// WithCache memoizes adapter calls; without it a private in-memory cache is
// used.
func WithCache(c *cache.Cache) Option {
	return func(a *Aggregator) { a.cache = c }
}

// WithTTL sets the entry lifetime for adapter results.
func WithTTL(ttl time.Duration) Option {
	return func(a *Aggregator) { a.ttl = ttl }
}

// WithDepartmentConfig sets the raw scope-to-overrides JSON document.
func WithDepartmentConfig(raw []byte) Option {
	return func(a *Aggregator) { a.deptConfig = raw }
}

// WithRefreshNotifier announces every successful Refresh.
func WithRefreshNotifier(n RefreshNotifier) Option {
	return func(a *Aggregator) { a.notifier = n }
}

func WithTracer(t tracer.Tracer) Option {
	return func(a *Aggregator) { a.tracer = t }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

// New wires the three adapters.
func New(catalog CatalogSource, kpis MetricsSource, warehouse WarehouseSource, opts ...Option) *Aggregator {
	a := &Aggregator{
		catalog:   catalog,
		kpis:      kpis,
		warehouse: warehouse,
		ttl:       cache.DefaultTTL,
		tracer:    tracer.NewNoop(),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.cache == nil {
		a.cache = cache.New(nil, cache.WithMetrics(a.metrics), cache.WithLogger(a.logger))
	}
	return a
}

// EffectiveConfig resolves the department overrides for sc.
func (a *Aggregator) EffectiveConfig(sc scope.Context) scope.EffectiveConfig {
	return scope.Resolve(sc, a.deptConfig)
}

// BuildPortalView never fails: live sources that fail leave their baseline
// values in place and add one "<source>: <message>" entry to Errors, in
// catalog, metrics, warehouse order.
func (a *Aggregator) BuildPortalView(ctx context.Context, req Request) *models.PortalView {
	ctx, span := a.tracer.Start(ctx, tracer.SpanBuildView,
		tracer.String(tracer.AttrRunMode, string(req.RunMode)),
		tracer.String(tracer.AttrScope, string(req.Scope.Kind)),
		tracer.String(tracer.AttrDepartment, req.Scope.DepartmentID),
		tracer.String(tracer.AttrPeriod, string(req.Period)),
	)
	a.metrics.RecordViewBuild(string(req.RunMode))

	var view *models.PortalView
	if req.RunMode == models.RunModeLive {
		view = a.buildLive(ctx, req)
	} else {
		view = a.buildMock(req)
	}

	span.SetAttributes(
		tracer.Int(tracer.AttrDatasetCount, len(view.Datasets)),
		tracer.Int(tracer.AttrErrorCount, len(view.Errors)),
	)
	span.End(nil)
	return view
}

func baseline(req Request) *models.PortalView {
	return &models.PortalView{
		RunMode:    req.RunMode,
		Scope:      string(req.Scope.Kind),
		Department: req.Scope.DepartmentID,
		Period:     req.Period,
		Datasets:   mockdata.Datasets(),
		KPIs:       mockdata.KPIs(),
		Metrics:    mockdata.MetricSnapshot(),
		Charts:     mockdata.Charts(),
		Errors:     []string{},
	}
}

// buildMock serves the built-in data, filtered to the department and central
// assets when a department is selected.
func (a *Aggregator) buildMock(req Request) *models.PortalView {
	view := baseline(req)
	view.Datasets = filterByDepartment(view.Datasets, req.Scope, func(d models.Dataset) string { return d.Department })
	view.KPIs = filterByDepartment(view.KPIs, req.Scope, func(k models.KPIDefinition) string { return k.Department })
	return view
}

func filterByDepartment[T any](items []T, sc scope.Context, dept func(T) string) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if sc.Includes(dept(it)) {
			out = append(out, it)
		}
	}
	return out
}

// liveResults holds one isolated slot per source; each goroutine writes only
// its own fields.
type liveResults struct {
	datasets         []models.Dataset
	catalogOutcome   models.FetchOutcome
	snapshot         models.MetricSnapshot
	metricsOutcome   models.FetchOutcome
	charts           *models.ChartTables
	warehouseOutcome models.FetchOutcome
}

// buildLive starts from the unfiltered baseline. Datasets returned by the
// catalog are not post-filtered by department; department scoping in live
// mode comes only from the DATAHUB_QUERY override.
func (a *Aggregator) buildLive(ctx context.Context, req Request) *models.PortalView {
	view := baseline(req)
	cfg := a.EffectiveConfig(req.Scope)

	// Plain Group: a failing source must not cancel its siblings.
	var g errgroup.Group
	var res liveResults

	g.Go(func() error {
		res.datasets, res.catalogOutcome = fetch(ctx, a, models.SourceCatalog, tracer.SpanCatalogSearch,
			cache.Key("catalog", req.Scope.String(), DefaultCatalogQuery, DefaultCatalogStart, DefaultCatalogCount),
			func(ctx context.Context) ([]models.Dataset, error) {
				return a.catalog.SearchDatasets(ctx, req.Scope, DefaultCatalogQuery, DefaultCatalogStart, DefaultCatalogCount, cfg)
			})
		return nil
	})
	g.Go(func() error {
		res.snapshot, res.metricsOutcome = fetch(ctx, a, models.SourceMetrics, tracer.SpanMetricsFetch,
			cache.Key("metrics", req.Scope.String(), req.Period),
			func(ctx context.Context) (models.MetricSnapshot, error) {
				return a.kpis.FetchKPISnapshot(ctx, req.Period, cfg)
			})
		return nil
	})
	g.Go(func() error {
		res.charts, res.warehouseOutcome = fetch(ctx, a, models.SourceWarehouse, tracer.SpanWarehouseQuery,
			cache.Key("warehouse", req.Scope.String(), req.Period),
			func(ctx context.Context) (*models.ChartTables, error) {
				return a.warehouse.LoadCharts(ctx, req.Period, cfg)
			})
		return nil
	})
	_ = g.Wait()

	if !res.catalogOutcome.Failed() {
		view.Datasets = res.datasets
	}
	if !res.metricsOutcome.Failed() {
		view.Metrics.Merge(res.snapshot)
	}
	if !res.warehouseOutcome.Failed() && res.charts != nil {
		view.Charts = *res.charts
	}

	view.Outcomes = []models.FetchOutcome{res.catalogOutcome, res.metricsOutcome, res.warehouseOutcome}
	for _, o := range view.Outcomes {
		if o.Failed() {
			view.Errors = append(view.Errors, o.Message())
		}
	}
	return view
}

// fetch runs one adapter call through the cache and records its outcome.
func fetch[T any](ctx context.Context, a *Aggregator, source models.SourceName, spanName, key string, produce func(context.Context) (T, error)) (T, models.FetchOutcome) {
	ctx, span := a.tracer.Start(ctx, spanName, tracer.String(tracer.AttrSource, string(source)))
	start := a.now()

	v, err := cache.GetOrCompute(ctx, a.cache, key, a.ttl, produce)

	outcome := models.FetchOutcome{Source: source, Err: err, Duration: a.now().Sub(start)}
	category := ""
	if err != nil {
		category = string(sources.CategoryOf(err))
		if category == "" {
			category = "unknown"
		}
		span.AddEvent(tracer.EventSourceFailed, tracer.String(tracer.AttrErrorCategory, category))
		a.logger.WarnContext(ctx, "live source failed",
			"source", string(source),
			"category", category,
			"error", err,
		)
	}
	a.metrics.ObserveSourceFetch(string(source), outcome.Duration, category)
	span.End(err)
	return v, outcome
}

// Refresh drops every cached adapter result so the next view refetches,
// then announces the refresh to peers. A failed announcement is logged only.
func (a *Aggregator) Refresh(ctx context.Context) error {
	ctx, span := a.tracer.Start(ctx, tracer.SpanRefresh)
	err := a.cache.ClearAll(ctx)
	if err != nil {
		a.logger.ErrorContext(ctx, "cache refresh failed", "error", err)
		span.End(err)
		return err
	}
	a.logger.InfoContext(ctx, "cache cleared")

	if a.notifier != nil {
		if nerr := a.notifier.Announce(ctx, a.now()); nerr != nil {
			span.AddEvent(tracer.EventBroadcastFailed)
			a.logger.WarnContext(ctx, "refresh broadcast failed", "error", nerr)
		}
	}
	span.End(nil)
	return nil
}

// Invalidate clears the cache without announcing it; peers call it when
// another replica refreshed.
func (a *Aggregator) Invalidate(ctx context.Context) error {
	return a.cache.ClearAll(ctx)
}
