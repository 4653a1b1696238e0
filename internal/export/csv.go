// Package export renders reports as CSV downloads and as a plain-text
// dashboard.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/eugenenazirov/music-school-planner/internal/calculator"
)

// DetailHeader is the header row of the detail export.
var DetailHeader = []string{
	"course_label",
	"duration_min",
	"n_students",
	"price_per_10_lessons",
	"revenue_for_package",
	"cost_for_package",
	"balance",
}

// SummaryHeader is the header row of the package/term summary export.
var SummaryHeader = []string{
	"horizon",
	"packages",
	"lessons",
	"revenue",
	"total_hours",
	"instructor_cost",
	"theory_cost",
	"fixed_costs",
	"total_cost",
	"deviation",
	"contributions",
	"net_result",
}

// WriteDetailCSV writes one line per detail row.
func WriteDetailCSV(w io.Writer, rows []calculator.DetailRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(DetailHeader); err != nil {
		return fmt.Errorf("write detail header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.Label,
			strconv.Itoa(int(row.Duration)),
			strconv.Itoa(row.Students),
			amount(row.UnitPrice),
			amount(row.Revenue),
			amount(row.Cost),
			amount(row.Balance),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write detail row %s/%d: %w", row.Label, row.Duration, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummaryCSV writes the single package line followed by the term line.
// Contributions and the net result only exist at term level.
func WriteSummaryCSV(w io.Writer, pkg calculator.Report, term calculator.TermReport) error {
	records := [][]string{
		SummaryHeader,
		{
			"package",
			"1",
			strconv.Itoa(pkg.Lessons),
			amount(pkg.TotalRevenue),
			amount(pkg.TotalHours),
			amount(pkg.InstructorCost),
			amount(pkg.TheoryCost),
			amount(pkg.FixedCosts),
			amount(pkg.TotalCost),
			amount(pkg.Deviation),
			"",
			"",
		},
		{
			"term",
			strconv.Itoa(term.Packages),
			strconv.Itoa(term.Lessons),
			amount(term.Revenue),
			amount(term.Hours),
			amount(term.InstructorCost),
			amount(term.TheoryCost),
			amount(term.FixedCosts),
			amount(term.Cost),
			amount(term.GrossResult),
			amount(term.Contributions),
			amount(term.NetResult),
		},
	}

	cw := csv.NewWriter(w)
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

func amount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
