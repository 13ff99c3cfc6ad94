//go:build e2e

package e2e

import (
	"github.com/cucumber/godog"

	"dataportal/e2e/steps/common"
	"dataportal/e2e/steps/portal"
)

// RegisterSteps registers all step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	portal.RegisterSteps(ctx, tc)
}
