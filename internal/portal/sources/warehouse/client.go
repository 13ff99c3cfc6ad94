// Package warehouse runs parameterized chart queries against the SQL
// warehouse.
package warehouse

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"dataportal/internal/platform/database"
	"dataportal/internal/portal/models"
	"dataportal/internal/portal/scope"
	"dataportal/internal/portal/sources"
)

const (
	DriverName     = database.DriverName
	DefaultTimeout = 30 * time.Second
)

// YearForPeriod maps the period selector to the bound year parameter: y2025
// selects 2025 and every other selector 2024. The mapping is fixed.
func YearForPeriod(p models.Period) int {
	if p == models.PeriodY2025 {
		return 2025
	}
	return 2024
}

// Opener opens a connection pool for a DSN.
type Opener func(dsn string) (*sqlx.DB, error)

func openPgx(dsn string) (*sqlx.DB, error) {
	cfg := database.DefaultConfig()
	cfg.URL = dsn
	return database.Open(cfg)
}

// Table is a generic query result.
type Table struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// Client keeps one pool per DSN and executes chart queries with it.
type Client struct {
	defaults scope.Defaults
	timeout  time.Duration
	open     Opener

	mu    sync.Mutex
	pools map[string]*sqlx.DB
}

type Option func(*Client)

// WithOpener replaces the pool constructor; tests use it to inject sqlmock.
func WithOpener(open Opener) Option {
	return func(c *Client) { c.open = open }
}

// WithTimeout bounds each query.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func New(defaults scope.Defaults, opts ...Option) *Client {
	c := &Client{
		defaults: defaults,
		timeout:  DefaultTimeout,
		open:     openPgx,
		pools:    make(map[string]*sqlx.DB),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) pool(dsn string) (*sqlx.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if db, ok := c.pools[dsn]; ok {
		return db, nil
	}
	db, err := c.open(dsn)
	if err != nil {
		return nil, err
	}
	db = db.Unsafe()
	c.pools[dsn] = db
	return db, nil
}

// Close releases every pool.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []string
	for dsn, db := range c.pools {
		if err := db.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		delete(c.pools, dsn)
	}
	if len(errs) > 0 {
		return fmt.Errorf("close warehouse pools: %s", strings.Join(errs, "; "))
	}
	return nil
}

// RunQuery executes a template with named parameters (":year") and returns
// the rows as column maps.
func (c *Client) RunQuery(ctx context.Context, sqlTemplate string, params map[string]any, dsn string) (*Table, error) {
	db, err := c.pool(dsn)
	if err != nil {
		return nil, sources.Transport(ctx, models.SourceWarehouse, "failed to open warehouse connection", err)
	}
	table := &Table{Columns: []string{}, Rows: []map[string]any{}}
	err = c.query(ctx, db, "warehouse", sqlTemplate, params, func(rows *sqlx.Rows) error {
		cols, err := rows.Columns()
		if err != nil {
			return err
		}
		table.Columns = cols
		for rows.Next() {
			row := map[string]any{}
			if err := rows.MapScan(row); err != nil {
				return err
			}
			for k, v := range row {
				if b, ok := v.([]byte); ok {
					row[k] = string(b)
				}
			}
			table.Rows = append(table.Rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return table, nil
}

// query runs one named template under the per-query timeout and hands the
// open rows to read. Every failure is reported as a warehouse source error.
func (c *Client) query(ctx context.Context, db *sqlx.DB, label, template string, params map[string]any, read func(*sqlx.Rows) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rows, err := db.NamedQueryContext(ctx, template, params)
	if err != nil {
		return sources.Transport(ctx, models.SourceWarehouse, label+" query failed", err)
	}
	defer rows.Close()

	if err := read(rows); err != nil {
		return sources.Transport(ctx, models.SourceWarehouse, label+" row scan failed", err)
	}
	if err := rows.Err(); err != nil {
		return sources.Transport(ctx, models.SourceWarehouse, label+" query failed", err)
	}
	return nil
}

type chartQuery struct {
	key   string
	label string
}

var (
	breakdownQuery = chartQuery{key: scope.KeySQLFundingBreakdown, label: "funding breakdown"}
	trendQuery     = chartQuery{key: scope.KeySQLUNFIPTrend, label: "trend"}
	reachQuery     = chartQuery{key: scope.KeySQLInitiativeReach, label: "reach"}
)

// LoadCharts runs the three chart templates for the period. Templates and
// the DSN resolve from cfg before the process defaults.
func (c *Client) LoadCharts(ctx context.Context, period models.Period, cfg scope.EffectiveConfig) (*models.ChartTables, error) {
	dsn := cfg.Value(scope.KeyWarehouseDSN, c.defaults)
	if dsn == "" {
		return nil, sources.Configuration(models.SourceWarehouse, "Missing WAREHOUSE_DSN.")
	}

	templates := make(map[string]string, 3)
	var missing []string
	for _, q := range []chartQuery{breakdownQuery, trendQuery, reachQuery} {
		t := cfg.Value(q.key, c.defaults)
		if strings.TrimSpace(t) == "" {
			missing = append(missing, q.key)
		}
		templates[q.key] = t
	}
	if len(missing) > 0 {
		return nil, sources.Configuration(models.SourceWarehouse, fmt.Sprintf("Missing SQL templates (%s).", strings.Join(missing, ", ")))
	}

	db, err := c.pool(dsn)
	if err != nil {
		return nil, sources.Transport(ctx, models.SourceWarehouse, "failed to open warehouse connection", err)
	}
	params := map[string]any{"year": YearForPeriod(period)}

	charts := &models.ChartTables{}
	if charts.Breakdown, err = selectRows[models.FundingBreakdownRow](ctx, c, db, breakdownQuery, templates[breakdownQuery.key], params); err != nil {
		return nil, err
	}
	if charts.Trend, err = selectRows[models.TrendRow](ctx, c, db, trendQuery, templates[trendQuery.key], params); err != nil {
		return nil, err
	}
	if charts.Reach, err = selectRows[models.ReachRow](ctx, c, db, reachQuery, templates[reachQuery.key], params); err != nil {
		return nil, err
	}
	return charts, nil
}

func selectRows[T any](ctx context.Context, c *Client, db *sqlx.DB, q chartQuery, template string, params map[string]any) ([]T, error) {
	out := []T{}
	err := c.query(ctx, db, q.label, template, params, func(rows *sqlx.Rows) error {
		for rows.Next() {
			var row T
			if err := rows.StructScan(&row); err != nil {
				return err
			}
			out = append(out, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
