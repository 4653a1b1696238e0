package calculator

import (
	"fmt"
)

// theoryClassHours is the length of every group theory session, whatever
// cohort it was formed from.
const theoryClassHours = 1.0

type totalsCalculator struct{}

// New creates the totals engine.
func New() Calculator {
	return totalsCalculator{}
}

// CeilDiv returns how many groups of at most size members are needed for
// students members. It returns 0 for students <= 0 and treats size <= 0 as
// DefaultMinStudents.
func CeilDiv(students, size int) int {
	if students <= 0 {
		return 0
	}
	if size <= 0 {
		size = DefaultMinStudents
	}
	return (students + size - 1) / size
}

func (totalsCalculator) Calculate(in Input) Report {
	lessons := in.Lessons
	if lessons <= 0 {
		lessons = LessonsPerPackage
	}
	minStudents := in.Policy.MinStudentsPerClass
	if minStudents <= 0 {
		minStudents = DefaultMinStudents
	}
	rate := in.Policy.HourlyRate
	scale := float64(lessons) / LessonsPerPackage

	r := Report{
		Lessons:        lessons,
		Details:        []DetailRow{},
		TheoryClasses:  make(map[Duration]int, 3),
		TheoryStudents: make(map[Duration]int, 3),
		GroupClasses:   make(map[ActivityKey]int, 3),
	}

	for _, d := range Durations() {
		for _, course := range CourseKinds() {
			key := EnrollmentKey{Duration: d, Course: course}
			n := in.Enrollments[key]
			if n <= 0 {
				continue
			}
			price := in.Prices.Resolve(key).Value
			revenue := float64(n) * price * scale
			hours := float64(n) * d.Hours() * float64(lessons)
			cost := rate * hours

			r.TotalRevenue += revenue
			r.IndividualHours += hours
			r.Details = append(r.Details, DetailRow{
				Label:     string(course),
				Title:     course.Title(),
				Duration:  d,
				Students:  n,
				UnitPrice: price,
				Revenue:   revenue,
				Cost:      cost,
				Balance:   revenue - cost,
			})
		}
	}

	for _, key := range ActivityKeys() {
		a, ok := in.Activities[key]
		if !ok || a.Students <= 0 {
			continue
		}
		revenue := float64(a.Students) * a.Price * scale
		r.TotalRevenue += revenue

		// theory-only students are costed through the 60 minute cohort below
		var cost float64
		if key != TheoryOnly {
			classes := CeilDiv(a.Students, minStudents)
			hours := float64(classes) * a.Duration.Hours() * float64(lessons)
			r.GroupClasses[key] = classes
			r.OtherGroupHours += hours
			cost = rate * hours
		}

		r.Details = append(r.Details, DetailRow{
			Label:     string(key),
			Title:     key.Title(),
			Duration:  a.Duration,
			Students:  a.Students,
			UnitPrice: a.Price,
			Revenue:   revenue,
			Cost:      cost,
			Balance:   revenue - cost,
		})
	}

	for _, d := range Durations() {
		students := in.Enrollments[EnrollmentKey{Duration: d, Course: WindTheory}] +
			in.Enrollments[EnrollmentKey{Duration: d, Course: StringTheory}]
		if d == Minutes60 {
			if a, ok := in.Activities[TheoryOnly]; ok && a.Students > 0 {
				students += a.Students
			}
		}
		if students < 0 {
			students = 0
		}
		classes := CeilDiv(students, minStudents)
		r.TheoryStudents[d] = students
		r.TheoryClasses[d] = classes
		r.TotalTheoryClasses += classes
		r.TheoryHours += float64(classes) * theoryClassHours * float64(lessons)
	}

	r.TotalHours = r.IndividualHours + r.TheoryHours + r.OtherGroupHours
	r.TotalWeekHours = r.TotalHours / LessonsPerPackage
	r.Weekly = WeeklyHours{
		Individual: r.IndividualHours / LessonsPerPackage,
		Theory:     r.TheoryHours / LessonsPerPackage,
		OtherGroup: r.OtherGroupHours / LessonsPerPackage,
		Total:      r.TotalWeekHours,
	}

	r.IndividualCost = rate * r.IndividualHours
	r.SpecialCost = rate * r.OtherGroupHours
	r.InstructorCost = rate * (r.IndividualHours + r.OtherGroupHours)
	r.TheoryCost = rate * r.TheoryHours
	r.TotalCost = r.InstructorCost + r.TheoryCost
	if in.Policy.IncludeFixedCostsInTotal {
		r.FixedCosts = in.Policy.FixedCosts
		r.TotalCost += r.FixedCosts
	}
	r.Deviation = r.TotalRevenue - r.TotalCost

	if in.Policy.AvailableHoursPerWeek > 0 {
		r.SaturationPct = r.TotalWeekHours / in.Policy.AvailableHoursPerWeek * 100
	}

	return r
}

// Term projects r over TermPackages packages. Contributions and fixed costs
// are applied once, at the net level; fixed costs already folded into the
// package total are not subtracted a second time.
func (totalsCalculator) Term(r Report, p Policy) TermReport {
	t := TermReport{
		Packages:       TermPackages,
		Lessons:        r.Lessons * TermPackages,
		Hours:          r.TotalHours * TermPackages,
		InstructorCost: r.InstructorCost * TermPackages,
		TheoryCost:     r.TheoryCost * TermPackages,
		Revenue:        r.TotalRevenue * TermPackages,
		Cost:           r.TotalCost * TermPackages,
		Contributions:  p.Contributions,
		FixedCosts:     p.FixedCosts,
	}
	t.GrossResult = t.Revenue - t.Cost
	t.NetResult = t.GrossResult + p.Contributions
	if !p.IncludeFixedCostsInTotal {
		t.NetResult -= p.FixedCosts
	}
	return t
}

// ProjectTerm computes the term from the standard LessonsPerPackage package
// of in, whatever lesson count in carries.
func ProjectTerm(c Calculator, in Input) TermReport {
	in.Lessons = LessonsPerPackage
	return c.Term(c.Calculate(in), in.Policy)
}

// Validate reports the first negative, unknown or out-of-range value in the input.
func (in Input) Validate() error {
	for key, n := range in.Enrollments {
		if !key.Duration.Valid() {
			return fmt.Errorf("%w: %s", ErrUnknownDuration, key)
		}
		if _, err := ParseCourseKind(string(key.Course)); err != nil {
			return err
		}
		if n < 0 {
			return fmt.Errorf("%w: enrollment %s = %d", ErrNegativeValue, key, n)
		}
	}
	for key, a := range in.Activities {
		if _, err := ParseActivityKey(string(key)); err != nil {
			return err
		}
		if a.Students < 0 || a.Price < 0 || a.Duration < 0 {
			return fmt.Errorf("%w: activity %s", ErrNegativeValue, key)
		}
		if a.Duration > MaxActivityDuration {
			return fmt.Errorf("%w: activity %s lasts %d minutes", ErrOutOfRange, key, a.Duration)
		}
	}
	for key, v := range in.Prices.Exact {
		if v < 0 {
			return fmt.Errorf("%w: price %s = %.2f", ErrNegativeValue, key, v)
		}
	}
	for d, v := range in.Prices.ByDuration {
		if v < 0 {
			return fmt.Errorf("%w: price for %d minutes = %.2f", ErrNegativeValue, d, v)
		}
	}
	if in.Lessons < 0 || in.Lessons > MaxLessons {
		return fmt.Errorf("%w: %d lessons", ErrOutOfRange, in.Lessons)
	}
	p := in.Policy
	if p.MinStudentsPerClass < 0 || p.HourlyRate < 0 || p.AvailableHoursPerWeek < 0 ||
		p.Contributions < 0 || p.FixedCosts < 0 {
		return fmt.Errorf("%w: policy", ErrNegativeValue)
	}
	return nil
}
