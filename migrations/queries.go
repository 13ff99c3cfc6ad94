package migrations

// Reference chart queries for the seeded schema. Each binds the :year named
// parameter and returns the columns the chart rows expect.
const (
	FundingBreakdownQuery = `SELECT channel AS name, SUM(amount_usd) AS value
FROM fact_unfip_disbursements
WHERE fiscal_year = :year
GROUP BY channel
ORDER BY channel`

	UNFIPTrendQuery = `SELECT CAST(fiscal_year AS TEXT) AS x, ROUND(SUM(amount_usd) / 1000000, 1) AS disbursed_m
FROM fact_unfip_disbursements
WHERE fiscal_year <= :year
GROUP BY fiscal_year
ORDER BY fiscal_year`

	InitiativeReachQuery = `SELECT initiative, SUM(in_person_attendees) AS in_person, SUM(remote_viewers) AS remote
FROM fact_initiative_events
WHERE event_year = :year
GROUP BY initiative
ORDER BY initiative`
)
