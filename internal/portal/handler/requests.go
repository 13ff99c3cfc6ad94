package handler

import (
	"net/url"
	"strings"

	"dataportal/internal/portal/aggregator"
	"dataportal/internal/portal/models"
	"dataportal/internal/portal/scope"
	dErrors "dataportal/pkg/domain-errors"
	"dataportal/pkg/validation"
)

// ViewQuery is the selection shared by every portal read endpoint.
type ViewQuery struct {
	Mode       string `query:"mode" validate:"oneof=mock live"`
	Scope      string `query:"scope" validate:"oneof=central department"`
	Department string `query:"department" validate:"max=64"`
	Period     string `query:"period" validate:"oneof=y2024 y2025 last_30d last_6m"`
	Search     string `query:"q" validate:"max=200"`
	Domain     string `query:"domain" validate:"max=100"`

	resolved scope.Context
}

func (q *ViewQuery) BindQuery(v url.Values) {
	q.Mode = v.Get("mode")
	q.Scope = v.Get("scope")
	q.Department = v.Get("department")
	q.Period = v.Get("period")
	q.Search = v.Get("q")
	q.Domain = v.Get("domain")
}

// Normalize trims input and fills the defaults: mock mode, central scope,
// the default department and period.
func (q *ViewQuery) Normalize() {
	q.Mode = strings.ToLower(strings.TrimSpace(q.Mode))
	q.Scope = strings.ToLower(strings.TrimSpace(q.Scope))
	q.Department = strings.ToLower(strings.TrimSpace(q.Department))
	q.Period = strings.ToLower(strings.TrimSpace(q.Period))
	q.Search = strings.TrimSpace(q.Search)
	q.Domain = strings.TrimSpace(q.Domain)

	if q.Mode == "" {
		q.Mode = string(models.DefaultRunMode)
	}
	if q.Scope == "" {
		q.Scope = string(scope.KindCentral)
	}
	if q.Department == "" {
		q.Department = scope.DefaultDepartmentID
	}
	if q.Period == "" {
		q.Period = string(models.DefaultPeriod)
	}
}

func (q *ViewQuery) Validate() error {
	if err := validation.Validate(q); err != nil {
		return err
	}
	sc, err := scope.Parse(q.Scope, q.Department)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "department must be one of ["+departmentIDs()+"]")
	}
	q.resolved = sc
	return nil
}

func departmentIDs() string {
	ids := make([]string, 0, len(scope.Departments()))
	for _, d := range scope.Departments() {
		ids = append(ids, d.ID)
	}
	return strings.Join(ids, " ")
}

// ScopeContext is valid after Validate succeeded.
func (q *ViewQuery) ScopeContext() scope.Context {
	return q.resolved
}

func (q *ViewQuery) Request() aggregator.Request {
	return aggregator.Request{
		RunMode: models.RunMode(q.Mode),
		Scope:   q.resolved,
		Period:  models.Period(q.Period),
	}
}
