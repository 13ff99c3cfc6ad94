// Package main provides a CLI for checking portal configuration and source
// connectivity without running the HTTP server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"dataportal/internal/platform/config"
	"dataportal/internal/platform/logger"
	"dataportal/internal/portal/aggregator"
	"dataportal/internal/portal/models"
	"dataportal/internal/portal/scope"
	"dataportal/internal/portal/sources/live"
	"dataportal/internal/portal/view"
)

// secretKeys are redacted in `config` output.
var secretKeys = []string{scope.KeyDataHubToken, scope.KeyPBIClientSecret, scope.KeyWarehouseDSN}

func main() {
	viewCmd := flag.NewFlagSet("view", flag.ExitOnError)
	viewMode := viewCmd.String("mode", string(models.DefaultRunMode), "Run mode: mock or live")
	viewScope := viewCmd.String("scope", string(scope.KindCentral), "Scope: central or department")
	viewDept := viewCmd.String("department", scope.DefaultDepartmentID, "Department id (department scope only)")
	viewPeriod := viewCmd.String("period", string(models.DefaultPeriod), "Period: y2024, y2025, last_30d, last_6m")
	viewTimeout := viewCmd.Duration("timeout", time.Minute, "Overall deadline")
	viewJSON := viewCmd.Bool("json", false, "Output as JSON")

	configCmd := flag.NewFlagSet("config", flag.ExitOnError)
	configScope := configCmd.String("scope", string(scope.KindCentral), "Scope: central or department")
	configDept := configCmd.String("department", scope.DefaultDepartmentID, "Department id (department scope only)")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "view":
		_ = viewCmd.Parse(os.Args[2:])
		sc := mustScope(*viewScope, *viewDept)
		runView(os.Stdout, aggregator.Request{
			RunMode: models.RunMode(*viewMode),
			Scope:   sc,
			Period:  models.Period(*viewPeriod),
		}, *viewTimeout, *viewJSON)
	case "config":
		_ = configCmd.Parse(os.Args[2:])
		showConfig(os.Stdout, mustScope(*configScope, *configDept))
	case "departments":
		showDepartments(os.Stdout)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`portalctl - inspect the data portal from the command line

Usage:
  portalctl <command> [flags]

Commands:
  view         Build one portal view and print a summary
  config       Show the effective configuration for a scope (secrets redacted)
  departments  List the selectable departments

Examples:
  # Check that live credentials work for the central scope
  portalctl view -mode live

  # Department view for 2025 as JSON
  portalctl view -mode live -scope department -department advocacy -period y2025 -json

  # Which DataHub query does the gender department use?
  portalctl config -scope department -department gender

Configuration is read from the same environment variables and
PORTAL_SECRETS_FILE as the server.`)
}

func mustScope(kind, dept string) scope.Context {
	sc, err := scope.Parse(kind, dept)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	return sc
}

func mustConfig() config.Server {
	cfg, err := config.FromEnv(scope.Keys...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func runView(w io.Writer, req aggregator.Request, timeout time.Duration, jsonOutput bool) {
	if !req.RunMode.Valid() || !req.Period.Valid() {
		fmt.Fprintf(os.Stderr, "Error: invalid mode %q or period %q\n", req.RunMode, req.Period)
		os.Exit(2)
	}
	cfg := mustConfig()
	log := logger.NewWithWriter(os.Stderr, cfg.LogLevel)

	adapters := live.New(cfg)
	defer adapters.Close() //nolint:errcheck // process exits right after

	agg := aggregator.New(adapters.Catalog, adapters.Metrics, adapters.Warehouse,
		aggregator.WithDepartmentConfig(cfg.DepartmentConfig),
		aggregator.WithLogger(log),
	)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	v := agg.BuildPortalView(ctx, req)

	if jsonOutput {
		printJSON(w, v)
	} else {
		printSummary(w, req, v)
	}
	if len(v.Errors) > 0 {
		os.Exit(3)
	}
}

func printSummary(w io.Writer, req aggregator.Request, v *models.PortalView) {
	fmt.Fprintln(w, "Portal View")
	fmt.Fprintln(w, "===========")
	fmt.Fprintf(w, "Mode:     %s\n", req.RunMode)
	fmt.Fprintf(w, "Scope:    %s\n", req.Scope.Label())
	fmt.Fprintf(w, "Period:   %s\n", req.Period)
	fmt.Fprintf(w, "Datasets: %d\n", len(v.Datasets))
	fmt.Fprintf(w, "KPIs:     %d\n", len(v.KPIs))
	fmt.Fprintln(w)
	for _, h := range view.Headlines(v.Metrics) {
		fmt.Fprintf(w, "  %-24s %s\n", h.Label, h.Formatted)
	}
	fmt.Fprintln(w)
	for _, o := range v.Outcomes {
		status := "ok"
		if o.Failed() {
			status = "FAILED"
		}
		fmt.Fprintf(w, "  %-10s %-7s %s\n", o.Source, status, o.Duration.Round(time.Millisecond))
	}
	for _, e := range v.Errors {
		fmt.Fprintf(w, "  ! %s\n", e)
	}
}

func showConfig(w io.Writer, sc scope.Context) {
	cfg := mustConfig()
	eff := scope.Resolve(sc, cfg.DepartmentConfig)
	defaults := live.Defaults(cfg.Secrets)

	fmt.Fprintf(w, "Effective configuration for %s\n\n", sc.Label())
	for _, key := range scope.Keys {
		value := eff.Value(key, defaults)
		source := "default"
		if _, ok := eff[key]; ok {
			source = "override"
		}
		switch {
		case value == "":
			value, source = "<unset>", "-"
		case slices.Contains(secretKeys, key):
			value = redact(value)
		default:
			value = strings.Join(strings.Fields(value), " ")
		}
		fmt.Fprintf(w, "  %-24s %-9s %s\n", key, source, value)
	}
}

func redact(v string) string {
	if len(v) <= 4 {
		return "****"
	}
	return v[:2] + strings.Repeat("*", 6) + v[len(v)-2:]
}

func showDepartments(w io.Writer) {
	fmt.Fprintf(w, "  %-14s %s\n", scope.CentralID, scope.CentralName)
	for _, d := range scope.Departments() {
		fmt.Fprintf(w, "  %-14s %s\n", d.ID, d.Name)
	}
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		slog.Error("encode output", "error", err)
		os.Exit(1)
	}
}
