package config

import (
	"strings"
	"testing"

	"github.com/alecthomas/kingpin/v2"
)

func TestFlagsOverrides(t *testing.T) {
	t.Parallel()

	app := kingpin.New("test", "")
	flags := BindFlags(app)
	if _, err := app.Parse([]string{
		"--config", "school.yaml",
		"--port", "9000",
		"--rate-limit-rps", "0",
		"--source", "csv",
		"--csv", "situation.csv",
		"--min-students", "7",
		"--fixed-costs", "0",
		"--include-fixed-costs", "true",
	}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	o := flags.Overrides()
	if o.ConfigFile != "school.yaml" {
		t.Fatalf("unexpected config file %q", o.ConfigFile)
	}
	if o.Port == nil || *o.Port != "9000" {
		t.Fatalf("expected port override")
	}
	if o.RateLimitRPS == nil || *o.RateLimitRPS != 0 {
		t.Fatalf("expected explicit zero rps")
	}
	if o.RateLimitBurst != nil {
		t.Fatalf("expected burst to stay unset")
	}
	if o.SourceKind == nil || *o.SourceKind != SourceCSV || o.CSVPath == nil {
		t.Fatalf("expected csv source override")
	}
	if o.MinStudentsPerClass == nil || *o.MinStudentsPerClass != 7 {
		t.Fatalf("expected min students override")
	}
	if o.FixedCosts == nil || *o.FixedCosts != 0 {
		t.Fatalf("expected explicit zero fixed costs")
	}
	if o.HourlyRate != nil || o.SheetName != nil {
		t.Fatalf("expected absent flags to stay nil")
	}
	if o.IncludeFixedCostsInTotal == nil || !*o.IncludeFixedCostsInTotal {
		t.Fatalf("expected include fixed costs override")
	}
}

func TestFlagsDefaultsLeaveOverridesEmpty(t *testing.T) {
	t.Parallel()

	app := kingpin.New("test", "")
	flags := BindFlags(app)
	if _, err := app.Parse(nil); err != nil {
		t.Fatalf("parse: %v", err)
	}

	o := flags.Overrides()
	if o.Port != nil || o.RateLimitRPS != nil || o.MinStudentsPerClass != nil || o.IncludeFixedCostsInTotal != nil {
		t.Fatalf("expected no overrides, got %+v", o)
	}
}

func TestFlagsRejectInvalidBoolean(t *testing.T) {
	t.Parallel()

	app := kingpin.New("test", "")
	BindFlags(app)
	if _, err := app.Parse([]string{"--include-fixed-costs", "maybe"}); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestFlagsHelpDescribesTermLevelAmounts(t *testing.T) {
	t.Parallel()

	app := kingpin.New("test", "")
	BindFlags(app)

	tests := []struct {
		flag    string
		want    string
		without string
	}{
		{"contributions", "term", "per package"},
		{"fixed-costs", "term", "per package"},
		{"rate-limit-burst", "below 1", "disable"},
	}
	for _, tc := range tests {
		help := app.GetFlag(tc.flag).Model().Help
		if !strings.Contains(help, tc.want) || strings.Contains(help, tc.without) {
			t.Fatalf("--%s: unexpected help %q", tc.flag, help)
		}
	}
}
