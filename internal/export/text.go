package export

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/eugenenazirov/music-school-planner/internal/calculator"
)

// Euro formats v as "€ 1,440.00".
func Euro(v float64) string {
	return "€ " + humanize.FormatFloat("#,###.##", v)
}

// Hours formats v as "152.50 h".
func Hours(v float64) string {
	return humanize.FormatFloat("#,###.##", v) + " h"
}

// RenderText writes the dashboard: revenue detail, class summary, package
// and term balances.
func RenderText(w io.Writer, r calculator.Report, term calculator.TermReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	p := func(format string, args ...any) {
		fmt.Fprintf(tw, format, args...)
	}

	p("REVENUE DETAIL (%d lessons)\n", r.Lessons)
	if len(r.Details) == 0 {
		p("no enrolled students\n")
	} else {
		p("Course\tMin\tStudents\tPrice\tRevenue\tCost\tBalance\n")
		for _, d := range r.Details {
			p("%s\t%d\t%d\t%s\t%s\t%s\t%s\n", d.Title, d.Duration, d.Students,
				Euro(d.UnitPrice), Euro(d.Revenue), Euro(d.Cost), Euro(d.Balance))
		}
	}

	p("\nCLASSES\n")
	for _, d := range calculator.Durations() {
		p("Theory %d min cohort\t%d students\t%d classes\n", d, r.TheoryStudents[d], r.TheoryClasses[d])
	}
	for _, key := range calculator.ActivityKeys() {
		if n, ok := r.GroupClasses[key]; ok {
			p("%s\t\t%d classes\n", key.Title(), n)
		}
	}
	p("Total theory classes\t\t%d\n", r.TotalTheoryClasses)

	p("\nHOURS\n")
	p("Individual\t%s\t%s / week\n", Hours(r.IndividualHours), Hours(r.Weekly.Individual))
	p("Theory\t%s\t%s / week\n", Hours(r.TheoryHours), Hours(r.Weekly.Theory))
	p("Other groups\t%s\t%s / week\n", Hours(r.OtherGroupHours), Hours(r.Weekly.OtherGroup))
	p("Total\t%s\t%s / week\n", Hours(r.TotalHours), Hours(r.Weekly.Total))
	p("Saturation\t%s%%\n", humanize.FormatFloat("#,###.#", r.SaturationPct))

	p("\nPACKAGE\n")
	p("Revenue\t%s\n", Euro(r.TotalRevenue))
	p("Instructor cost\t%s\n", Euro(r.InstructorCost))
	p("Theory cost\t%s\n", Euro(r.TheoryCost))
	if r.FixedCosts != 0 {
		p("Fixed costs\t%s\n", Euro(r.FixedCosts))
	}
	p("Total cost\t%s\n", Euro(r.TotalCost))
	p("Deviation\t%s\n", Euro(r.Deviation))

	p("\nTERM (%d packages)\n", term.Packages)
	p("Revenue\t%s\n", Euro(term.Revenue))
	p("Cost\t%s\n", Euro(term.Cost))
	p("Gross result\t%s\n", Euro(term.GrossResult))
	p("Contributions\t%s\n", Euro(term.Contributions))
	p("Fixed costs\t%s\n", Euro(term.FixedCosts))
	p("Net result\t%s\n", Euro(term.NetResult))
	p("%s\n", strings.Repeat("-", 40))

	return tw.Flush()
}
