// Package live assembles the three source adapters from server
// configuration, so every binary resolves secrets and endpoints the same way.
package live

import (
	"dataportal/internal/platform/config"
	"dataportal/internal/portal/scope"
	"dataportal/internal/portal/sources/catalog"
	kpisource "dataportal/internal/portal/sources/metrics"
	"dataportal/internal/portal/sources/warehouse"
	"dataportal/migrations"
)

// Adapters are the live source clients for one process.
type Adapters struct {
	Catalog   *catalog.Client
	Metrics   *kpisource.Client
	Warehouse *warehouse.Client
}

// Defaults seeds the warehouse SQL templates with the reference schema
// queries; configured secrets win.
func Defaults(secrets map[string]string) scope.Defaults {
	defaults := scope.Defaults{
		scope.KeySQLFundingBreakdown: migrations.FundingBreakdownQuery,
		scope.KeySQLUNFIPTrend:       migrations.UNFIPTrendQuery,
		scope.KeySQLInitiativeReach:  migrations.InitiativeReachQuery,
	}
	for k, v := range secrets {
		defaults[k] = v
	}
	return defaults
}

// MetricsOptions applies the fetch timeout and any Power BI endpoint
// overrides.
func MetricsOptions(cfg config.Server) []kpisource.Option {
	opts := []kpisource.Option{kpisource.WithTimeout(cfg.FetchTimeout)}
	if cfg.PowerBI.APIBaseURL != "" {
		opts = append(opts, kpisource.WithAPIBaseURL(cfg.PowerBI.APIBaseURL))
	}
	if cfg.PowerBI.AuthorityURL != "" {
		opts = append(opts, kpisource.WithAuthorityURL(cfg.PowerBI.AuthorityURL))
	}
	return opts
}

func New(cfg config.Server) *Adapters {
	defaults := Defaults(cfg.Secrets)
	return &Adapters{
		Catalog:   catalog.New(defaults, catalog.WithTimeout(cfg.FetchTimeout)),
		Metrics:   kpisource.New(defaults, MetricsOptions(cfg)...),
		Warehouse: warehouse.New(defaults, warehouse.WithTimeout(cfg.FetchTimeout)),
	}
}

// Close releases the warehouse pools.
func (a *Adapters) Close() error {
	return a.Warehouse.Close()
}
