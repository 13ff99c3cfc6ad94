// Package view derives presentation-ready data from a portal view: catalog
// search, headline cards and the dashboard gallery.
package view

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"dataportal/internal/portal/models"
	"dataportal/internal/portal/scope"
	strutil "dataportal/pkg/platform/strings"
)

// AllDomains is the domain filter value that disables domain filtering.
const AllDomains = "All domains"

// FilterDatasets keeps datasets whose domain matches domain and whose name,
// domain, description or tags contain query, case-insensitively. An empty
// query or an empty/AllDomains domain disables that filter.
func FilterDatasets(datasets []models.Dataset, query, domain string) []models.Dataset {
	q := strings.ToLower(strings.TrimSpace(query))
	anyDomain := domain == "" || domain == AllDomains

	out := make([]models.Dataset, 0, len(datasets))
	for _, d := range datasets {
		if !anyDomain && d.Domain != domain {
			continue
		}
		if q != "" && !strings.Contains(haystack(d), q) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func haystack(d models.Dataset) string {
	return strings.ToLower(d.Name + " " + d.Domain + " " + d.Description + " " + strings.Join(d.Tags, " "))
}

// Domains returns the sorted distinct non-blank domains of datasets.
func Domains(datasets []models.Dataset) []string {
	names := make([]string, 0, len(datasets))
	for _, d := range datasets {
		names = append(names, d.Domain)
	}
	out := strutil.DedupeAndTrim(names)
	slices.Sort(out)
	return out
}

// Headline is one KPI card.
type Headline struct {
	Label     string  `json:"label"`
	Value     float64 `json:"value"`
	Formatted string  `json:"formatted"`
}

// Headlines returns the four dashboard cards for a snapshot.
func Headlines(m models.MetricSnapshot) []Headline {
	lounge := m[models.MetricLoungeInPerson] + m[models.MetricLoungeRemote]
	return []Headline{
		{Label: "UNFIP Disbursed", Value: m[models.MetricTotalDisbursedUSD], Formatted: FormatUSDCompact(m[models.MetricTotalDisbursedUSD])},
		{Label: "Projects Supported", Value: m[models.MetricProjectsSupported], Formatted: FormatNumCompact(m[models.MetricProjectsSupported])},
		{Label: "SDG Goals Lounge Reach", Value: lounge, Formatted: FormatNumCompact(lounge)},
		{Label: "SDG Advocates Reach", Value: m[models.MetricAdvocatesSocialReach], Formatted: FormatNumCompact(m[models.MetricAdvocatesSocialReach])},
	}
}

// FormatUSDCompact renders n as $1.2B, $23.5M, $4.0K or $950.
func FormatUSDCompact(n float64) string {
	return "$" + FormatNumCompact(n)
}

// FormatNumCompact renders n with one decimal and a B/M/K suffix, or as a
// whole number below one thousand.
func FormatNumCompact(n float64) string {
	a := math.Abs(n)
	switch {
	case a >= 1e9:
		return fmt.Sprintf("%.1fB", n/1e9)
	case a >= 1e6:
		return fmt.Sprintf("%.1fM", n/1e6)
	case a >= 1e3:
		return fmt.Sprintf("%.1fK", n/1e3)
	default:
		return fmt.Sprintf("%.0f", n)
	}
}

// GalleryItem is a starter dashboard template.
type GalleryItem struct {
	Name     string `json:"name"`
	Audience string `json:"audience"`
	Includes string `json:"includes"`
	Scope    string `json:"scope"`
}

var gallery = []GalleryItem{
	{Name: "Executive Brief (1-page)", Audience: "Senior leadership", Includes: "Headline KPIs + drivers + risks", Scope: scope.CentralID},
	{Name: "Funding Deep Dive", Audience: "UNFIP team", Includes: "Trend + donor/partner breakdown + geography", Scope: "unfip"},
	{Name: "Engagement Monitor", Audience: "Partnerships/Comms", Includes: "Event reach + channel performance", Scope: scope.CentralID},
	{Name: "Advocacy Reach Report", Audience: "Advocacy", Includes: "Reach + campaigns + roster", Scope: "advocacy"},
}

// Gallery lists the templates visible from sc. The central scope sees every
// template.
func Gallery(sc scope.Context) []GalleryItem {
	out := make([]GalleryItem, 0, len(gallery))
	for _, g := range gallery {
		if !sc.IsDepartment() || sc.Includes(g.Scope) {
			out = append(out, g)
		}
	}
	return out
}
