// Package mockdata holds the built-in baseline served in mock mode and used as
// the starting point for live aggregation. Every accessor returns a fresh copy.
package mockdata

import "dataportal/internal/portal/models"

// Report anchors published in the annual report; the defaults below are
// derived from them.
const (
	UNFIPDisbursedUSD           = 23_500_000
	UNFIPGrantsUSD              = 12_700_000
	UNFIPEntitiesUSD            = 10_800_000
	UNFIPProjectsSupported      = 720
	UNFIPCountriesParticipating = 138
	SDGGoalsLoungeInPerson      = 2_000
	SDGGoalsLoungeRemote        = 500_000
	SDGAdvocatesMembers         = 17
	SDGAdvocatesSocialReach     = 23_000_000
	WomenRiseSurveyRespondents  = 2_300
	WomenRiseDialogueAttendees  = 300
)

// Datasets returns the built-in catalog entries.
func Datasets() []models.Dataset {
	return []models.Dataset{
		{
			ID:                "gold_unfip_funding",
			Name:              "UNFIP Funding & Disbursements (Gold)",
			Domain:            "Funding",
			Sensitivity:       "Internal",
			Certified:         true,
			Owner:             "UNOP / UNFIP – Finance & Analytics",
			UpdateCadence:     "Monthly",
			FreshnessSLAHours: 168,
			Description:       "Curated disbursement facts and breakdowns (grants vs. UN system entities), with implementing partner and thematic tags.",
			Tables:            []string{"fact_unfip_disbursements", "dim_implementing_partner", "dim_theme", "dim_country", "dim_date"},
			Tags:              []string{"Funding", "Donor", "Gold", "Certified"},
			Department:        "unfip",
		},
		{
			ID:                "gold_initiative_engagement",
			Name:              "Initiatives & Engagement Metrics (Gold)",
			Domain:            "Engagement",
			Sensitivity:       "Internal",
			Certified:         true,
			Owner:             "UNOP – Partnerships & Comms Analytics",
			UpdateCadence:     "Weekly",
			FreshnessSLAHours: 72,
			Description:       "Engagement KPIs for flagship initiatives (SDG Goals Lounge, Women Rise for All, convenings) with reach and participation.",
			Tables:            []string{"fact_initiative_events", "dim_initiative", "dim_location", "dim_date"},
			Tags:              []string{"Events", "Reach", "KPI", "Gold"},
			Department:        "central",
		},
		{
			ID:                "gold_partnership_kpis",
			Name:              "Partnership KPIs (Gold)",
			Domain:            "Partnerships",
			Sensitivity:       "Internal",
			Certified:         true,
			Owner:             "Office for Partnerships – Ops Analytics",
			UpdateCadence:     "Daily",
			FreshnessSLAHours: 24,
			Description:       "KPI fact table for partnership pipeline/performance: targets, achievements, engagement metrics.",
			Tables:            []string{"fact_partnership_kpis", "dim_partner", "dim_program", "dim_date"},
			Tags:              []string{"KPI", "M&E", "Donor", "Gold"},
			Department:        "partnerships",
		},
	}
}

// KPIs returns the built-in KPI dictionary.
func KPIs() []models.KPIDefinition {
	return []models.KPIDefinition{
		{
			ID:            "kpi_unfip_total_disbursed",
			Name:          "UNFIP Total Disbursed (USD)",
			Domain:        "Funding",
			Description:   "Total UNFIP disbursements in the selected period.",
			Formula:       "SUM(disbursed_amount_usd)",
			Owner:         "Finance & Analytics",
			Cadence:       "Monthly",
			QualityChecks: []string{"No negative disbursements", "FX normalization applied", "Partner IDs valid"},
			Department:    "unfip",
		},
		{
			ID:            "kpi_lounge_total_reach",
			Name:          "SDG Goals Lounge Reach",
			Domain:        "Engagement",
			Description:   "In-person participants + remote participants for SDG Goals Lounge programming.",
			Formula:       "SUM(in_person_attendees) + SUM(remote_viewers)",
			Owner:         "Partnerships & Comms Analytics",
			Cadence:       "Per event",
			QualityChecks: []string{"Event IDs unique", "No null attendance values"},
			Department:    "central",
		},
	}
}

// MetricSnapshot returns the default KPI values.
func MetricSnapshot() models.MetricSnapshot {
	return models.MetricSnapshot{
		models.MetricTotalDisbursedUSD:      UNFIPDisbursedUSD,
		models.MetricProjectsSupported:      UNFIPProjectsSupported,
		models.MetricCountriesParticipating: UNFIPCountriesParticipating,
		models.MetricLoungeInPerson:         SDGGoalsLoungeInPerson,
		models.MetricLoungeRemote:           SDGGoalsLoungeRemote,
		models.MetricAdvocatesSocialReach:   SDGAdvocatesSocialReach,
	}
}

// Charts returns the default chart tables.
func Charts() models.ChartTables {
	return models.ChartTables{
		Breakdown: []models.FundingBreakdownRow{
			{Name: "Grants", Value: UNFIPGrantsUSD},
			{Name: "UN system entities (fiduciary)", Value: UNFIPEntitiesUSD},
		},
		Trend: []models.TrendRow{
			{Period: "2020", DisbursedM: 18.4},
			{Period: "2021", DisbursedM: 20.2},
			{Period: "2022", DisbursedM: 22.1},
			{Period: "2023", DisbursedM: 21.6},
			{Period: "2024", DisbursedM: 23.5},
		},
		Reach: []models.ReachRow{
			{Initiative: "SDG Goals Lounge", InPerson: SDGGoalsLoungeInPerson, Remote: SDGGoalsLoungeRemote},
			{Initiative: "Women Rise for All", InPerson: WomenRiseDialogueAttendees, Remote: WomenRiseSurveyRespondents},
			{Initiative: "SDG Advocates", InPerson: SDGAdvocatesMembers, Remote: SDGAdvocatesSocialReach},
		},
	}
}
