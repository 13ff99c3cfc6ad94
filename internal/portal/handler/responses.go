package handler

import (
	"dataportal/internal/portal/models"
	"dataportal/internal/portal/scope"
	"dataportal/internal/portal/view"
)

// ViewResponse is the full portal payload plus the derived headline cards.
type ViewResponse struct {
	*models.PortalView
	ScopeLabel string          `json:"scopeLabel"`
	Headlines  []view.Headline `json:"headlines"`
}

type CatalogResponse struct {
	Datasets []models.Dataset `json:"datasets"`
	Domains  []string         `json:"domains"`
	Count    int              `json:"count"`
	Errors   []string         `json:"errors"`
}

type KPIResponse struct {
	KPIs   []models.KPIDefinition `json:"kpis"`
	Errors []string               `json:"errors"`
}

type GalleryResponse struct {
	ScopeLabel string             `json:"scopeLabel"`
	Items      []view.GalleryItem `json:"items"`
}

type DepartmentsResponse struct {
	Central     scope.Department   `json:"central"`
	Departments []scope.Department `json:"departments"`
}

type RefreshResponse struct {
	Status    string `json:"status"`
	ClearedAt string `json:"clearedAt"`
}
