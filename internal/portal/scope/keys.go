package scope

// Configuration keys understood by the adapters. Keys may be overridden per
// department; secrets are read from Defaults only.
const (
	KeyDataHubEndpoint = "DATAHUB_GQL_ENDPOINT"
	KeyDataHubToken    = "DATAHUB_TOKEN"
	KeyDataHubQuery    = "DATAHUB_QUERY"

	KeyPBITenantID     = "PBI_TENANT_ID"
	KeyPBIClientID     = "PBI_CLIENT_ID"
	KeyPBIClientSecret = "PBI_CLIENT_SECRET"
	KeyPBIGroupID      = "PBI_GROUP_ID"
	KeyPBIDatasetID    = "PBI_DATASET_ID"

	KeyWarehouseDSN        = "WAREHOUSE_DSN"
	KeySQLFundingBreakdown = "SQL_FUNDING_BREAKDOWN"
	KeySQLUNFIPTrend       = "SQL_UNFIP_TREND"
	KeySQLInitiativeReach  = "SQL_INITIATIVE_REACH"
)

// Keys lists every known configuration key.
var Keys = []string{
	KeyDataHubEndpoint, KeyDataHubToken, KeyDataHubQuery,
	KeyPBITenantID, KeyPBIClientID, KeyPBIClientSecret, KeyPBIGroupID, KeyPBIDatasetID,
	KeyWarehouseDSN, KeySQLFundingBreakdown, KeySQLUNFIPTrend, KeySQLInitiativeReach,
}

// Defaults holds the process-wide values (secrets store, then environment)
// that apply when a scope does not override a key. Built once at startup and
// handed to the adapters; they never read the environment themselves.
type Defaults map[string]string

// Get returns the default for key or "".
func (d Defaults) Get(key string) string {
	return d[key]
}

// Value resolves key with the override taking precedence over the default.
func (c EffectiveConfig) Value(key string, defaults Defaults) string {
	return c.Lookup(key, defaults.Get(key))
}
