// Package scenario turns an untrusted what-if request into a calculator.Input.
// Every numeric field is clamped to the range the school form allows and each
// correction is reported back as an Adjustment.
package scenario

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/eugenenazirov/music-school-planner/internal/calculator"
	"github.com/eugenenazirov/music-school-planner/internal/catalog"
)

// Bounds is an inclusive numeric range.
type Bounds struct {
	Min float64
	Max float64
}

func (b Bounds) clamp(v float64) float64 {
	return math.Min(math.Max(v, b.Min), b.Max)
}

// Input limits of the planning form.
var (
	EnrollmentBounds    = Bounds{0, 500}
	SpecialBounds       = Bounds{0, 200}
	PriceBounds         = Bounds{0, 500}
	MinStudentsBounds   = Bounds{1, 15}
	HourlyRateBounds    = Bounds{0, 100}
	AvailableHoursBound = Bounds{1, 500}
	ContributionsBounds = Bounds{0, 20000}
	FixedCostsBounds    = Bounds{0, 10000}

	SpecialDurationBounds = Bounds{1, float64(calculator.MaxActivityDuration)}
	LessonsBounds         = Bounds{1, calculator.MaxLessons}
)

// EnrollmentEntry sets the number of students for one course and duration.
type EnrollmentEntry struct {
	Duration Value  `json:"duration"`
	Course   string `json:"course"`
	Students Value  `json:"students"`
}

// PriceEntry overrides the package price for one course and duration.
type PriceEntry struct {
	Duration Value  `json:"duration"`
	Course   string `json:"course"`
	Price    Value  `json:"price"`
}

// SpecialEntry overrides a special activity. Absent duration or price keep
// the catalog values.
type SpecialEntry struct {
	Students Value `json:"students"`
	Duration Value `json:"duration"`
	Price    Value `json:"price"`
}

// PolicyOverrides carries optional policy fields; absent ones keep defaults.
type PolicyOverrides struct {
	MinStudentsPerClass      Value `json:"minStudentsPerClass"`
	HourlyRate               Value `json:"hourlyRate"`
	AvailableHoursPerWeek    Value `json:"availableHoursPerWeek"`
	Contributions            Value `json:"contributions"`
	FixedCosts               Value `json:"fixedCosts"`
	IncludeFixedCostsInTotal *bool `json:"includeFixedCostsInTotal,omitempty"`
}

// Request is a what-if scenario as submitted by a client.
type Request struct {
	// UseDefaults starts from the enrollment counts of the loaded catalog.
	UseDefaults bool                    `json:"useDefaults"`
	Lessons     Value                   `json:"lessons"`
	Enrollments []EnrollmentEntry       `json:"enrollments"`
	Specials    map[string]SpecialEntry `json:"specials"`
	Prices      []PriceEntry            `json:"prices"`
	Policy      PolicyOverrides         `json:"policy"`
}

// Adjustment records a field the boundary had to correct.
type Adjustment struct {
	Field  string  `json:"field"`
	From   string  `json:"from"`
	To     float64 `json:"to"`
	Reason string  `json:"reason"`
}

func (a Adjustment) String() string {
	return fmt.Sprintf("%s: %s -> %g (%s)", a.Field, a.From, a.To, a.Reason)
}

type builder struct {
	adjustments []Adjustment
}

// number resolves v within b. Unparsable text becomes 0 before clamping.
func (bd *builder) number(field string, v Value, b Bounds) float64 {
	f, ok := v.Float()
	if !ok {
		f = 0
		if v.Set() && strings.TrimSpace(v.String()) != "" {
			bd.adjustments = append(bd.adjustments, Adjustment{Field: field, From: v.String(), To: b.clamp(0), Reason: "not a number"})
			return b.clamp(0)
		}
	}
	c := b.clamp(f)
	if c != f {
		bd.adjustments = append(bd.adjustments, Adjustment{Field: field, From: v.String(), To: c, Reason: "out of range"})
	}
	return c
}

// positive resolves v within b. Input that is not a positive number keeps
// fallback.
func (bd *builder) positive(field string, v Value, b Bounds, fallback float64) float64 {
	f, ok := v.Float()
	if !ok || f <= 0 {
		bd.adjustments = append(bd.adjustments, Adjustment{Field: field, From: v.String(), To: fallback, Reason: "must be positive"})
		return fallback
	}
	return bd.number(field, v, b)
}

func (bd *builder) count(field string, v Value, b Bounds) int {
	return int(bd.number(field, v, b))
}

// Build resolves req against the catalog defaults and the configured policy.
// Unknown courses, durations or activities are rejected; everything numeric
// is clamped and reported.
func Build(cat *catalog.Catalog, req Request, defaults calculator.Policy) (calculator.Input, []Adjustment, error) {
	if cat == nil {
		return calculator.Input{}, nil, ErrNoCatalog
	}
	bd := &builder{}

	in := calculator.Input{
		Enrollments: make(calculator.Enrollments),
		Activities:  make(map[calculator.ActivityKey]calculator.Activity, len(cat.Specials)),
		Prices:      cat.Prices.Clone(),
		Lessons:     calculator.LessonsPerPackage,
	}

	if req.UseDefaults {
		for k, n := range cat.Enrollments {
			in.Enrollments[k] = n
		}
	}
	for i, e := range req.Enrollments {
		key, err := parseKey(e.Duration, e.Course)
		if err != nil {
			return calculator.Input{}, nil, fmt.Errorf("%w: enrollments[%d]: %w", ErrInvalidRequest, i, err)
		}
		in.Enrollments[key] = bd.count("enrollments."+key.String(), e.Students, EnrollmentBounds)
	}

	for i, p := range req.Prices {
		key, err := parseKey(p.Duration, p.Course)
		if err != nil {
			return calculator.Input{}, nil, fmt.Errorf("%w: prices[%d]: %w", ErrInvalidRequest, i, err)
		}
		in.Prices.Exact[key] = bd.number("prices."+key.String(), p.Price, PriceBounds)
	}

	for _, key := range calculator.ActivityKeys() {
		a := cat.Special(key)
		if !req.UseDefaults {
			a.Students = 0
		}
		in.Activities[key] = a
	}
	names := make([]string, 0, len(req.Specials))
	for raw := range req.Specials {
		names = append(names, raw)
	}
	sort.Strings(names)
	for _, raw := range names {
		s := req.Specials[raw]
		key, err := calculator.ParseActivityKey(strings.TrimSpace(raw))
		if err != nil {
			return calculator.Input{}, nil, fmt.Errorf("%w: specials: %w", ErrInvalidRequest, err)
		}
		a := in.Activities[key]
		field := "specials." + string(key)
		if s.Students.Set() {
			a.Students = bd.count(field+".students", s.Students, SpecialBounds)
		}
		if s.Duration.Given() {
			a.Duration = calculator.Duration(bd.positive(field+".duration", s.Duration, SpecialDurationBounds, float64(a.Duration)))
		}
		if s.Price.Given() {
			a.Price = bd.number(field+".price", s.Price, PriceBounds)
		}
		in.Activities[key] = a
	}

	in.Policy = bd.policy(req.Policy, defaults)

	if req.Lessons.Set() {
		in.Lessons = int(bd.positive("lessons", req.Lessons, LessonsBounds, calculator.LessonsPerPackage))
	}

	if err := in.Validate(); err != nil {
		return calculator.Input{}, nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return in, bd.adjustments, nil
}

func (bd *builder) policy(o PolicyOverrides, defaults calculator.Policy) calculator.Policy {
	p := defaults
	if o.MinStudentsPerClass.Set() {
		p.MinStudentsPerClass = bd.count("policy.minStudentsPerClass", o.MinStudentsPerClass, MinStudentsBounds)
	}
	if o.HourlyRate.Set() {
		p.HourlyRate = bd.number("policy.hourlyRate", o.HourlyRate, HourlyRateBounds)
	}
	if o.AvailableHoursPerWeek.Set() {
		p.AvailableHoursPerWeek = bd.number("policy.availableHoursPerWeek", o.AvailableHoursPerWeek, AvailableHoursBound)
	}
	if o.Contributions.Set() {
		p.Contributions = bd.number("policy.contributions", o.Contributions, ContributionsBounds)
	}
	if o.FixedCosts.Set() {
		p.FixedCosts = bd.number("policy.fixedCosts", o.FixedCosts, FixedCostsBounds)
	}
	if o.IncludeFixedCostsInTotal != nil {
		p.IncludeFixedCostsInTotal = *o.IncludeFixedCostsInTotal
	}
	return p
}

func parseKey(duration Value, course string) (calculator.EnrollmentKey, error) {
	minutes, ok := duration.Float()
	if !ok || minutes != math.Trunc(minutes) {
		return calculator.EnrollmentKey{}, fmt.Errorf("%w: %q", calculator.ErrUnknownDuration, duration.String())
	}
	d, err := calculator.ParseDuration(int(minutes))
	if err != nil {
		return calculator.EnrollmentKey{}, err
	}
	k, err := calculator.ParseCourseKind(strings.TrimSpace(course))
	if err != nil {
		return calculator.EnrollmentKey{}, err
	}
	return calculator.EnrollmentKey{Duration: d, Course: k}, nil
}
