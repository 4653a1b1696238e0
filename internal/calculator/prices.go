package calculator

// PriceSource tells which layer of the price lookup produced a value.
type PriceSource int

const (
	// PriceFloor means neither table had an entry and the zero floor applied.
	PriceFloor PriceSource = iota
	// PriceByDuration means the duration-only default table answered.
	PriceByDuration
	// PriceExact means an explicit price for the duration and course existed.
	PriceExact
)

func (s PriceSource) String() string {
	switch s {
	case PriceExact:
		return "exact"
	case PriceByDuration:
		return "duration"
	default:
		return "floor"
	}
}

// PriceResolution is the outcome of a price lookup.
type PriceResolution struct {
	Value  float64
	Source PriceSource
}

// Prices holds package prices (per LessonsPerPackage lessons).
//
// Lookup precedence: Exact[key], then ByDuration[key.Duration], then 0.
type Prices struct {
	Exact      map[EnrollmentKey]float64
	ByDuration map[Duration]float64
}

// Resolve returns the price for key together with the layer that supplied it.
func (p Prices) Resolve(key EnrollmentKey) PriceResolution {
	if v, ok := p.Exact[key]; ok {
		return PriceResolution{Value: v, Source: PriceExact}
	}
	if v, ok := p.ByDuration[key.Duration]; ok {
		return PriceResolution{Value: v, Source: PriceByDuration}
	}
	return PriceResolution{Source: PriceFloor}
}

// Clone returns a deep copy so callers can overlay overrides safely.
func (p Prices) Clone() Prices {
	out := Prices{
		Exact:      make(map[EnrollmentKey]float64, len(p.Exact)),
		ByDuration: make(map[Duration]float64, len(p.ByDuration)),
	}
	for k, v := range p.Exact {
		out.Exact[k] = v
	}
	for d, v := range p.ByDuration {
		out.ByDuration[d] = v
	}
	return out
}
