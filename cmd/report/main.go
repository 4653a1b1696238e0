package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/music-school-planner/internal/application"
	"github.com/eugenenazirov/music-school-planner/internal/calculator"
	"github.com/eugenenazirov/music-school-planner/internal/config"
	"github.com/eugenenazirov/music-school-planner/internal/export"
	"github.com/eugenenazirov/music-school-planner/internal/logging"
	"github.com/eugenenazirov/music-school-planner/internal/scenario"
	"github.com/eugenenazirov/music-school-planner/internal/source"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type reportFlags struct {
	lessons     *string
	empty       *bool
	enroll      *map[string]string
	price       *map[string]string
	special     *map[string]string
	detailCSV   *string
	summaryCSV  *string
	showAdjusts *bool
}

func run(args []string, stdout io.Writer) error {
	app := kingpin.New("music-school-report", "Prints the package and term totals of the school and optionally exports them as CSV")
	cfgFlags := config.BindFlags(app)
	rf := reportFlags{
		lessons:     app.Flag("lessons", "Lessons in the package").Default("10").String(),
		empty:       app.Flag("empty", "Start from zero enrollments instead of the catalog defaults").Bool(),
		enroll:      app.Flag("enroll", "Enrollment override as course/duration=students, repeatable").StringMap(),
		price:       app.Flag("price", "Price override as course/duration=euro, repeatable").StringMap(),
		special:     app.Flag("special", "Special activity students as activity=students, repeatable").StringMap(),
		detailCSV:   app.Flag("detail-csv", "Write the revenue detail CSV to this path").String(),
		summaryCSV:  app.Flag("summary-csv", "Write the package/term summary CSV to this path").String(),
		showAdjusts: app.Flag("show-adjustments", "List input values that were clamped or replaced").Default("true").Bool(),
	}

	if _, err := app.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(cfgFlags.Overrides())
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, err := logging.New(cfg.LogEnv)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	src, err := application.NewSource(cfg.Source)
	if err != nil {
		return err
	}
	loader := &source.Loader{Source: src, Layout: cfg.Layout, Timeout: cfg.LoadTimeout}
	cat, err := application.LoadCatalog(context.Background(), loader, nil, logger)
	if err != nil {
		return err
	}

	req, err := rf.request()
	if err != nil {
		return err
	}
	in, adjustments, err := scenario.Build(cat, req, cfg.Policy)
	if err != nil {
		return err
	}

	calc := calculator.New()
	report := calc.Calculate(in)
	term := calculator.ProjectTerm(calc, in)

	if err := export.RenderText(stdout, report, term); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	if *rf.showAdjusts && len(adjustments) > 0 {
		fmt.Fprintln(stdout, "\nADJUSTED INPUT")
		for _, a := range adjustments {
			fmt.Fprintf(stdout, "  %s\n", a)
		}
	}

	if *rf.detailCSV != "" {
		if err := writeFile(*rf.detailCSV, func(w io.Writer) error {
			return export.WriteDetailCSV(w, report.Details)
		}); err != nil {
			return err
		}
		logger.Info("detail exported", zap.String("path", *rf.detailCSV), zap.Int("rows", len(report.Details)))
	}
	if *rf.summaryCSV != "" {
		if err := writeFile(*rf.summaryCSV, func(w io.Writer) error {
			return export.WriteSummaryCSV(w, report, term)
		}); err != nil {
			return err
		}
		logger.Info("summary exported", zap.String("path", *rf.summaryCSV))
	}

	return nil
}

// request turns the repeatable override flags into a scenario request.
// Keys are visited in sorted order so adjustments are listed stably.
func (rf reportFlags) request() (scenario.Request, error) {
	req := scenario.Request{
		UseDefaults: !*rf.empty,
		Lessons:     scenario.Text(*rf.lessons),
		Specials:    map[string]scenario.SpecialEntry{},
	}

	for _, key := range sortedKeys(*rf.enroll) {
		course, duration, err := splitKey(key)
		if err != nil {
			return scenario.Request{}, fmt.Errorf("--enroll: %w", err)
		}
		req.Enrollments = append(req.Enrollments, scenario.EnrollmentEntry{
			Duration: scenario.Text(duration),
			Course:   course,
			Students: scenario.Text((*rf.enroll)[key]),
		})
	}
	for _, key := range sortedKeys(*rf.price) {
		course, duration, err := splitKey(key)
		if err != nil {
			return scenario.Request{}, fmt.Errorf("--price: %w", err)
		}
		req.Prices = append(req.Prices, scenario.PriceEntry{
			Duration: scenario.Text(duration),
			Course:   course,
			Price:    scenario.Text((*rf.price)[key]),
		})
	}
	for key, students := range *rf.special {
		req.Specials[key] = scenario.SpecialEntry{Students: scenario.Text(students)}
	}

	return req, nil
}

func splitKey(key string) (course, duration string, err error) {
	course, duration, ok := strings.Cut(key, "/")
	if !ok || course == "" || duration == "" {
		return "", "", fmt.Errorf("expected course/duration, got %q", key)
	}
	return course, duration, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
