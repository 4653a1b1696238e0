package calculator

import (
	"fmt"
	"strconv"
)

// LessonsPerPackage is the canonical billing package size. Prices are quoted
// per package of this many lessons.
const LessonsPerPackage = 10

// TermPackages is the number of packages that make up a school term.
const TermPackages = 3

// DefaultMinStudents is the minimum class size used when none is configured.
const DefaultMinStudents = 6

// MaxActivityDuration bounds the meeting length of a group activity in minutes.
const MaxActivityDuration Duration = 240

// MaxLessons bounds the number of lessons in one package.
const MaxLessons = 100

// Duration is the length of an individual lesson in minutes.
type Duration int

const (
	Minutes30 Duration = 30
	Minutes45 Duration = 45
	Minutes60 Duration = 60
)

// Durations returns the supported lesson durations in ascending order.
func Durations() []Duration {
	return []Duration{Minutes30, Minutes45, Minutes60}
}

// Valid reports whether d is one of the supported durations.
func (d Duration) Valid() bool {
	return d == Minutes30 || d == Minutes45 || d == Minutes60
}

// Hours converts the duration to fractional hours.
func (d Duration) Hours() float64 {
	return float64(d) / 60.0
}

// ParseDuration maps a minute count to a Duration.
func ParseDuration(minutes int) (Duration, error) {
	d := Duration(minutes)
	if !d.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownDuration, minutes)
	}
	return d, nil
}

// CourseKind identifies one of the four instrument course offerings.
type CourseKind string

const (
	WindOnly     CourseKind = "wind_only"
	WindTheory   CourseKind = "wind_theory"
	StringOnly   CourseKind = "string_only"
	StringTheory CourseKind = "string_theory"
)

var courseAliases = map[string]CourseKind{
	"solo_fiato": WindOnly,
	"fiato_solf": WindTheory,
	"solo_arco":  StringOnly,
	"arco_solf":  StringTheory,
}

var courseTitles = map[CourseKind]string{
	WindOnly:     "Wind",
	WindTheory:   "Wind + Theory",
	StringOnly:   "Strings",
	StringTheory: "Strings + Theory",
}

// CourseKinds returns every course kind in display order.
func CourseKinds() []CourseKind {
	return []CourseKind{WindOnly, WindTheory, StringOnly, StringTheory}
}

// ParseCourseKind accepts canonical names as well as the short keys used by
// the school spreadsheet.
func ParseCourseKind(raw string) (CourseKind, error) {
	k := CourseKind(raw)
	if _, ok := courseTitles[k]; ok {
		return k, nil
	}
	if alias, ok := courseAliases[raw]; ok {
		return alias, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCourse, raw)
}

// HasTheory reports whether the course includes a group theory class.
func (k CourseKind) HasTheory() bool {
	return k == WindTheory || k == StringTheory
}

// Title is the human readable course name.
func (k CourseKind) Title() string {
	if t, ok := courseTitles[k]; ok {
		return t
	}
	return string(k)
}

// EnrollmentKey addresses one cell of the enrollment and price grids.
type EnrollmentKey struct {
	Duration Duration
	Course   CourseKind
}

func (k EnrollmentKey) String() string {
	return string(k.Course) + "/" + strconv.Itoa(int(k.Duration))
}

// Enrollments holds student counts per duration and course.
type Enrollments map[EnrollmentKey]int

// ActivityKey identifies a special group activity.
type ActivityKey string

const (
	Preparatory ActivityKey = "preparatory"
	Musicality  ActivityKey = "musicality"
	Infant      ActivityKey = "infant"
	TheoryOnly  ActivityKey = "theory_only"
)

var activityAliases = map[string]ActivityKey{
	"prop":           Preparatory,
	"svil":           Musicality,
	"fasce":          Infant,
	"solo_solfeggio": TheoryOnly,
}

var activityTitles = map[ActivityKey]string{
	Preparatory: "Preparatory class",
	Musicality:  "Musicality development",
	Infant:      "Infant music",
	TheoryOnly:  "Theory only",
}

// ActivityKeys returns every special activity in display order.
func ActivityKeys() []ActivityKey {
	return []ActivityKey{Preparatory, Musicality, Infant, TheoryOnly}
}

// ParseActivityKey accepts canonical names and spreadsheet short keys.
func ParseActivityKey(raw string) (ActivityKey, error) {
	k := ActivityKey(raw)
	if _, ok := activityTitles[k]; ok {
		return k, nil
	}
	if alias, ok := activityAliases[raw]; ok {
		return alias, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownActivity, raw)
}

// Title is the human readable activity name.
func (k ActivityKey) Title() string {
	if t, ok := activityTitles[k]; ok {
		return t
	}
	return string(k)
}

// Activity is a special group activity with its enrollment and pricing.
type Activity struct {
	Students int      `json:"students"`
	Duration Duration `json:"duration"`
	Price    float64  `json:"price"`
}

// Policy carries the school-wide parameters of a computation.
type Policy struct {
	MinStudentsPerClass   int     `json:"minStudentsPerClass"`
	HourlyRate            float64 `json:"hourlyRate"`
	AvailableHoursPerWeek float64 `json:"availableHoursPerWeek"`
	Contributions         float64 `json:"contributions"`
	FixedCosts            float64 `json:"fixedCosts"`
	// IncludeFixedCostsInTotal adds FixedCosts to every package's total cost.
	IncludeFixedCostsInTotal bool `json:"includeFixedCostsInTotal"`
}

// DefaultPolicy returns the parameters the school works with out of the box.
func DefaultPolicy() Policy {
	return Policy{
		MinStudentsPerClass:   DefaultMinStudents,
		HourlyRate:            24.0,
		AvailableHoursPerWeek: 150,
	}
}

// Input is the immutable snapshot a computation runs on.
type Input struct {
	Enrollments Enrollments
	Activities  map[ActivityKey]Activity
	Prices      Prices
	Policy      Policy
	Lessons     int
}

// DetailRow is one line of the revenue breakdown.
type DetailRow struct {
	Label     string   `json:"courseLabel"`
	Title     string   `json:"title"`
	Duration  Duration `json:"durationMin"`
	Students  int      `json:"students"`
	UnitPrice float64  `json:"unitPrice"`
	Revenue   float64  `json:"revenue"`
	Cost      float64  `json:"cost"`
	Balance   float64  `json:"balance"`
}

// WeeklyHours splits instructor hours into a ten-lesson week equivalent.
type WeeklyHours struct {
	Individual float64 `json:"individual"`
	Theory     float64 `json:"theory"`
	OtherGroup float64 `json:"otherGroup"`
	Total      float64 `json:"total"`
}

// Report is the full result of a package computation.
type Report struct {
	Lessons int `json:"lessons"`

	TotalRevenue float64 `json:"totalRevenue"`

	IndividualHours float64 `json:"individualHours"`
	TheoryHours     float64 `json:"theoryHours"`
	OtherGroupHours float64 `json:"otherGroupHours"`
	TotalHours      float64 `json:"totalHours"`
	TotalWeekHours  float64 `json:"totalWeekHours"`

	IndividualCost float64 `json:"individualCost"`
	SpecialCost    float64 `json:"specialCost"`
	InstructorCost float64 `json:"instructorCost"`
	TheoryCost     float64 `json:"theoryCost"`
	FixedCosts     float64 `json:"fixedCosts"`
	TotalCost      float64 `json:"totalCost"`
	Deviation      float64 `json:"deviation"`

	SaturationPct float64 `json:"saturationPct"`

	Details []DetailRow `json:"details"`

	TheoryClasses      map[Duration]int    `json:"theoryClasses"`
	TheoryStudents     map[Duration]int    `json:"theoryStudents"`
	TotalTheoryClasses int                 `json:"totalTheoryClasses"`
	GroupClasses       map[ActivityKey]int `json:"groupClasses"`
	Weekly             WeeklyHours         `json:"weekly"`
}

// TermReport projects a package report over a full term.
type TermReport struct {
	Packages       int     `json:"packages"`
	Lessons        int     `json:"lessons"`
	Hours          float64 `json:"hours"`
	InstructorCost float64 `json:"instructorCost"`
	TheoryCost     float64 `json:"theoryCost"`
	Revenue        float64 `json:"revenue"`
	Cost           float64 `json:"cost"`
	GrossResult    float64 `json:"grossResult"`
	Contributions  float64 `json:"contributions"`
	FixedCosts     float64 `json:"fixedCosts"`
	NetResult      float64 `json:"netResult"`
}

// Calculator describes the behaviour required from a totals engine.
type Calculator interface {
	Calculate(in Input) Report
	Term(r Report, p Policy) TermReport
}
