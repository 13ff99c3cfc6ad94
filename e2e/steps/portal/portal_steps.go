package portal

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext is the subset of the e2e context the portal steps need.
type TestContext interface {
	GET(path string, headers map[string]string) error
	GetResponseField(path string) (any, error)
	GetLastResponseBody() []byte
}

// RegisterSteps registers portal view step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &portalSteps{tc: tc}

	ctx.Step(`^I request the (mock|live) view for the central scope and period "([^"]*)"$`, steps.requestCentralView)
	ctx.Step(`^I request the (mock|live) view for department "([^"]*)" and period "([^"]*)"$`, steps.requestDepartmentView)

	ctx.Step(`^the response should list (\d+) (datasets|kpis|departments|items|headlines)$`, steps.shouldList)
	ctx.Step(`^metric "([^"]*)" should equal (\d+(?:\.\d+)?)$`, steps.metricShouldEqual)
	ctx.Step(`^the errors list should be empty$`, steps.errorsShouldBeEmpty)
	ctx.Step(`^every dataset should belong to "([^"]*)" or "([^"]*)"$`, steps.everyDatasetBelongsTo)
}

type portalSteps struct {
	tc TestContext
}

func (s *portalSteps) requestCentralView(_ context.Context, mode, period string) error {
	return s.tc.GET(fmt.Sprintf("/api/v1/portal/view?mode=%s&scope=central&period=%s", mode, period), nil)
}

func (s *portalSteps) requestDepartmentView(_ context.Context, mode, dept, period string) error {
	return s.tc.GET(fmt.Sprintf("/api/v1/portal/view?mode=%s&scope=department&department=%s&period=%s", mode, dept, period), nil)
}

func (s *portalSteps) list(field string) ([]any, error) {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return nil, err
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("field %s is not a list: %v", field, v)
	}
	return items, nil
}

func (s *portalSteps) shouldList(_ context.Context, n int, field string) error {
	items, err := s.list(field)
	if err != nil {
		return err
	}
	if len(items) != n {
		return fmt.Errorf("expected %d %s but got %d\nResponse: %s", n, field, len(items), string(s.tc.GetLastResponseBody()))
	}
	return nil
}

func (s *portalSteps) metricShouldEqual(_ context.Context, key, expected string) error {
	want, err := strconv.ParseFloat(expected, 64)
	if err != nil {
		return err
	}
	v, err := s.tc.GetResponseField("metrics." + key)
	if err != nil {
		return err
	}
	got, ok := v.(float64)
	if !ok {
		return fmt.Errorf("metric %s is not numeric: %v", key, v)
	}
	if math.Abs(got-want) > 1e-6 {
		return fmt.Errorf("metric %s: expected %v but got %v", key, want, got)
	}
	return nil
}

func (s *portalSteps) errorsShouldBeEmpty(context.Context) error {
	items, err := s.list("errors")
	if err != nil {
		return err
	}
	if len(items) != 0 {
		return fmt.Errorf("expected no errors but got %v", items)
	}
	return nil
}

func (s *portalSteps) everyDatasetBelongsTo(_ context.Context, a, b string) error {
	items, err := s.list("datasets")
	if err != nil {
		return err
	}
	for _, it := range items {
		ds, _ := it.(map[string]any)
		if dept := fmt.Sprint(ds["dept"]); dept != a && dept != b {
			return fmt.Errorf("dataset %v belongs to %s", ds["id"], dept)
		}
	}
	return nil
}
