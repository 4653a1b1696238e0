package catalog

import (
	"strings"

	"github.com/eugenenazirov/music-school-planner/internal/calculator"
)

const (
	// DefaultSpecialDuration applies when a specials row has no usable duration.
	DefaultSpecialDuration = calculator.Minutes60
	// DefaultSpecialPrice applies when a specials row has no usable price.
	DefaultSpecialPrice = 100.0
)

// floorPrices seeds the duration-only table for durations the grid omits.
var floorPrices = map[calculator.Duration]float64{
	calculator.Minutes30: 120,
	calculator.Minutes45: 180,
	calculator.Minutes60: 240,
}

// Range selects a rectangle of the grid. Indexes are zero-based and the end
// bounds are exclusive.
type Range struct {
	RowStart int `yaml:"row_start" json:"rowStart"`
	RowEnd   int `yaml:"row_end" json:"rowEnd"`
	ColStart int `yaml:"col_start" json:"colStart"`
	ColEnd   int `yaml:"col_end" json:"colEnd"`
}

// Rows returns the cells inside r. Short rows are padded with blanks so every
// returned row has exactly ColEnd-ColStart cells.
func (r Range) Rows(grid [][]string) [][]string {
	width := r.ColEnd - r.ColStart
	if width <= 0 || r.RowStart < 0 || r.ColStart < 0 {
		return nil
	}
	var out [][]string
	for i := r.RowStart; i < r.RowEnd && i < len(grid); i++ {
		row := make([]string, width)
		for j := 0; j < width; j++ {
			col := r.ColStart + j
			if col < len(grid[i]) {
				row[j] = grid[i][col]
			}
		}
		out = append(out, row)
	}
	return out
}

// Layout names the four sub-ranges of the school sheet.
type Layout struct {
	Prices         Range `yaml:"prices" json:"prices"`
	DurationPrices Range `yaml:"duration_prices" json:"durationPrices"`
	Enrollments    Range `yaml:"enrollments" json:"enrollments"`
	Specials       Range `yaml:"specials" json:"specials"`
}

// DefaultLayout matches the school's "current situation" worksheet:
// prices A2:C13, duration prices E2:F4, enrollments H2:J13, specials L1:O5.
func DefaultLayout() Layout {
	return Layout{
		Prices:         Range{RowStart: 1, RowEnd: 13, ColStart: 0, ColEnd: 3},
		DurationPrices: Range{RowStart: 1, RowEnd: 4, ColStart: 4, ColEnd: 6},
		Enrollments:    Range{RowStart: 1, RowEnd: 13, ColStart: 7, ColEnd: 10},
		Specials:       Range{RowStart: 0, RowEnd: 5, ColStart: 11, ColEnd: 15},
	}
}

// TableStats counts rows accepted and dropped while loading one table.
type TableStats struct {
	Loaded  int `json:"loaded"`
	Dropped int `json:"dropped"`
}

func (s *TableStats) record(ok bool, row []string) {
	switch {
	case ok:
		s.Loaded++
	case !blankRow(row):
		s.Dropped++
	}
}

// LoadStats summarises a catalog load.
type LoadStats struct {
	Prices         TableStats `json:"prices"`
	DurationPrices TableStats `json:"durationPrices"`
	Enrollments    TableStats `json:"enrollments"`
	Specials       TableStats `json:"specials"`
}

// Dropped is the total number of malformed rows skipped.
func (s LoadStats) Dropped() int {
	return s.Prices.Dropped + s.DurationPrices.Dropped + s.Enrollments.Dropped + s.Specials.Dropped
}

// Catalog holds the defaults the school works from.
type Catalog struct {
	Prices      calculator.Prices
	Enrollments calculator.Enrollments
	Specials    map[calculator.ActivityKey]calculator.Activity
	Stats       LoadStats
}

// Load builds a catalog from grid using layout. Malformed rows are dropped;
// the only error is a grid with no cells at all.
func Load(grid [][]string, layout Layout) (*Catalog, error) {
	if len(grid) == 0 {
		return nil, ErrEmptyGrid
	}

	cat := &Catalog{}
	cat.Prices.Exact = LoadPrices(grid, layout.Prices, &cat.Stats.Prices)
	cat.Prices.ByDuration = LoadDurationPrices(grid, layout.DurationPrices, &cat.Stats.DurationPrices)
	cat.Enrollments = LoadEnrollmentDefaults(grid, layout.Enrollments, &cat.Stats.Enrollments)
	cat.Specials = LoadSpecialDefaults(grid, layout.Specials, &cat.Stats.Specials)

	for d, v := range floorPrices {
		if _, ok := cat.Prices.ByDuration[d]; !ok {
			cat.Prices.ByDuration[d] = v
		}
	}
	for _, key := range calculator.ActivityKeys() {
		if _, ok := cat.Specials[key]; !ok {
			cat.Specials[key] = calculator.Activity{Duration: DefaultSpecialDuration, Price: DefaultSpecialPrice}
		}
	}

	return cat, nil
}

// Default returns the catalog built from the built-in school sheet.
func Default() *Catalog {
	cat, err := Load(DefaultGrid(), DefaultLayout())
	if err != nil {
		panic("catalog: built-in grid failed to load: " + err.Error())
	}
	return cat
}

// Price resolves the package price for a course at a duration.
func (c *Catalog) Price(d calculator.Duration, course calculator.CourseKind) calculator.PriceResolution {
	return c.Prices.Resolve(calculator.EnrollmentKey{Duration: d, Course: course})
}

// Special returns the defaults for an activity, falling back to zero students
// at DefaultSpecialDuration and DefaultSpecialPrice.
func (c *Catalog) Special(key calculator.ActivityKey) calculator.Activity {
	if a, ok := c.Specials[key]; ok {
		return a
	}
	return calculator.Activity{Duration: DefaultSpecialDuration, Price: DefaultSpecialPrice}
}

// LoadPrices parses (duration, course, price) rows.
func LoadPrices(grid [][]string, r Range, stats *TableStats) map[calculator.EnrollmentKey]float64 {
	out := make(map[calculator.EnrollmentKey]float64)
	for _, row := range r.Rows(grid) {
		key, okKey := parseKey(cell(row, 0), cell(row, 1))
		price, okPrice := ParseOptionalNumber(cell(row, 2))
		ok := okKey && okPrice && price >= 0
		if ok {
			out[key] = price
		}
		track(stats, ok, row)
	}
	return out
}

// LoadDurationPrices parses (duration, price) rows.
func LoadDurationPrices(grid [][]string, r Range, stats *TableStats) map[calculator.Duration]float64 {
	out := make(map[calculator.Duration]float64)
	for _, row := range r.Rows(grid) {
		minutes, okDur := ParseOptionalInt(cell(row, 0))
		price, okPrice := ParseOptionalNumber(cell(row, 1))
		d := calculator.Duration(minutes)
		ok := okDur && okPrice && d.Valid() && price >= 0
		if ok {
			out[d] = price
		}
		track(stats, ok, row)
	}
	return out
}

// LoadEnrollmentDefaults parses (duration, course, count) rows.
func LoadEnrollmentDefaults(grid [][]string, r Range, stats *TableStats) calculator.Enrollments {
	out := make(calculator.Enrollments)
	for _, row := range r.Rows(grid) {
		key, okKey := parseKey(cell(row, 0), cell(row, 1))
		n, okCount := ParseOptionalInt(cell(row, 2))
		ok := okKey && okCount && n >= 0
		if ok {
			out[key] = n
		}
		track(stats, ok, row)
	}
	return out
}

// LoadSpecialDefaults parses (activity, students, duration, price) rows. A row
// needs a known activity and a student count; duration and price fall back
// to DefaultSpecialDuration and DefaultSpecialPrice. Durations above
// calculator.MaxActivityDuration also fall back.
func LoadSpecialDefaults(grid [][]string, r Range, stats *TableStats) map[calculator.ActivityKey]calculator.Activity {
	out := make(map[calculator.ActivityKey]calculator.Activity)
	for _, row := range r.Rows(grid) {
		key, errKey := calculator.ParseActivityKey(strings.TrimSpace(cell(row, 0)))
		students, okStudents := ParseOptionalInt(cell(row, 1))
		ok := errKey == nil && okStudents && students >= 0
		if ok {
			a := calculator.Activity{
				Students: students,
				Duration: DefaultSpecialDuration,
				Price:    DefaultSpecialPrice,
			}
			if minutes, okDur := ParseOptionalInt(cell(row, 2)); okDur && minutes > 0 && calculator.Duration(minutes) <= calculator.MaxActivityDuration {
				a.Duration = calculator.Duration(minutes)
			}
			if price, okPrice := ParseOptionalNumber(cell(row, 3)); okPrice && price >= 0 {
				a.Price = price
			}
			out[key] = a
		}
		track(stats, ok, row)
	}
	return out
}

func parseKey(rawDuration, rawCourse string) (calculator.EnrollmentKey, bool) {
	minutes, ok := ParseOptionalInt(rawDuration)
	if !ok {
		return calculator.EnrollmentKey{}, false
	}
	d, err := calculator.ParseDuration(minutes)
	if err != nil {
		return calculator.EnrollmentKey{}, false
	}
	course, err := calculator.ParseCourseKind(strings.TrimSpace(rawCourse))
	if err != nil {
		return calculator.EnrollmentKey{}, false
	}
	return calculator.EnrollmentKey{Duration: d, Course: course}, true
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func track(stats *TableStats, ok bool, row []string) {
	if stats != nil {
		stats.record(ok, row)
	}
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
