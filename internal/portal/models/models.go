package models

import (
	"fmt"
	"time"
)

// Dataset is a catalog entry. Values are built fresh on every fetch and are
// never mutated afterwards.
type Dataset struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Domain            string   `json:"domain"`
	Sensitivity       string   `json:"sensitivity"`
	Certified         bool     `json:"certified"`
	Owner             string   `json:"owner"`
	UpdateCadence     string   `json:"updateCadence"`
	FreshnessSLAHours int      `json:"freshnessSlaHours"`
	Description       string   `json:"description"`
	Tables            []string `json:"tables"`
	Tags              []string `json:"tags"`
	Department        string   `json:"dept"`
}

// KPIDefinition describes a governed KPI in the dictionary.
type KPIDefinition struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Domain        string   `json:"domain"`
	Description   string   `json:"description"`
	Formula       string   `json:"formula"`
	Owner         string   `json:"owner"`
	Cadence       string   `json:"cadence"`
	QualityChecks []string `json:"qualityChecks"`
	Department    string   `json:"dept"`
}

// Metric snapshot keys.
const (
	MetricTotalDisbursedUSD      = "totalDisbursedUsd"
	MetricProjectsSupported      = "projectsSupported"
	MetricCountriesParticipating = "countriesParticipating"
	MetricLoungeInPerson         = "loungeInPerson"
	MetricLoungeRemote           = "loungeRemote"
	MetricAdvocatesSocialReach   = "advocatesSocialReach"
)

// MetricKeys lists every key a MetricSnapshot carries, in display order.
var MetricKeys = []string{
	MetricTotalDisbursedUSD,
	MetricProjectsSupported,
	MetricCountriesParticipating,
	MetricLoungeInPerson,
	MetricLoungeRemote,
	MetricAdvocatesSocialReach,
}

// MetricSnapshot holds the latest known KPI values keyed by metric key.
type MetricSnapshot map[string]float64

// Clone returns an independent copy of the snapshot.
func (m MetricSnapshot) Clone() MetricSnapshot {
	out := make(MetricSnapshot, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Merge overwrites keys of m with the values in other. Keys absent from
// other keep their current value.
func (m MetricSnapshot) Merge(other MetricSnapshot) {
	for k, v := range other {
		m[k] = v
	}
}

// FundingBreakdownRow is one slice of the funding breakdown chart.
type FundingBreakdownRow struct {
	Name  string  `json:"name" db:"name"`
	Value float64 `json:"value" db:"value"`
}

// TrendRow is one point of the disbursement trend, in millions of USD.
type TrendRow struct {
	Period     string  `json:"x" db:"x"`
	DisbursedM float64 `json:"disbursed_m" db:"disbursed_m"`
}

// ReachRow is the reach snapshot for one initiative.
type ReachRow struct {
	Initiative string  `json:"initiative" db:"initiative"`
	InPerson   float64 `json:"in_person" db:"in_person"`
	Remote     float64 `json:"remote" db:"remote"`
}

// ChartTables groups the three chart tables. Tables are always replaced as a
// whole, never merged row by row.
type ChartTables struct {
	Breakdown []FundingBreakdownRow `json:"breakdown"`
	Trend     []TrendRow            `json:"trend"`
	Reach     []ReachRow            `json:"reach"`
}

// RunMode selects between the built-in data and the live backends.
type RunMode string

const (
	RunModeMock RunMode = "mock"
	RunModeLive RunMode = "live"
)

// Valid reports whether the run mode is one of the known values.
func (m RunMode) Valid() bool {
	return m == RunModeMock || m == RunModeLive
}

// Period is the reporting period selector.
type Period string

const (
	PeriodY2024    Period = "y2024"
	PeriodY2025    Period = "y2025"
	PeriodLast30d  Period = "last_30d"
	PeriodLast6m   Period = "last_6m"
	DefaultPeriod         = PeriodY2024
	DefaultRunMode        = RunModeMock
)

// Periods lists the selectable periods in display order.
var Periods = []Period{PeriodY2024, PeriodY2025, PeriodLast30d, PeriodLast6m}

// Valid reports whether the period is one of the known selectors.
func (p Period) Valid() bool {
	for _, known := range Periods {
		if p == known {
			return true
		}
	}
	return false
}

// SourceName labels a live backend in error messages and metrics.
type SourceName string

const (
	SourceCatalog   SourceName = "DataHub"
	SourceMetrics   SourceName = "Power BI"
	SourceWarehouse SourceName = "Warehouse"
)

// FetchOutcome records the result of one adapter attempt. A nil Err means
// success.
type FetchOutcome struct {
	Source   SourceName
	Err      error
	Duration time.Duration
}

// Failed reports whether the attempt failed.
func (o FetchOutcome) Failed() bool {
	return o.Err != nil
}

// Message renders the failure as "<SourceName>: <message>". It returns an
// empty string for successful outcomes.
func (o FetchOutcome) Message() string {
	if o.Err == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", o.Source, o.Err.Error())
}

// PortalView is the combined payload for one scope/period selection.
type PortalView struct {
	RunMode    RunMode         `json:"runMode"`
	Scope      string          `json:"scope"`
	Department string          `json:"department"`
	Period     Period          `json:"period"`
	Datasets   []Dataset       `json:"datasets"`
	KPIs       []KPIDefinition `json:"kpis"`
	Metrics    MetricSnapshot  `json:"metrics"`
	Charts     ChartTables     `json:"charts"`
	Errors     []string        `json:"errors"`
	Outcomes   []FetchOutcome  `json:"-"`
}
