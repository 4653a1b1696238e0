package scenario

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/eugenenazirov/music-school-planner/internal/catalog"
)

// Value is a form field that may arrive as a JSON number or as text.
// The zero Value means the field was not sent.
type Value struct {
	raw string
	set bool
}

// Number builds a Value from a float, mostly for tests and the CLI.
func Number(v float64) Value {
	return Value{raw: strconv.FormatFloat(v, 'f', -1, 64), set: true}
}

// Text builds a Value from raw text.
func Text(s string) Value {
	return Value{raw: s, set: true}
}

// Set reports whether the field was present in the request.
func (v Value) Set() bool { return v.set }

// Given reports whether the value is present and not blank.
func (v Value) Given() bool { return v.set && strings.TrimSpace(v.raw) != "" }

// Float parses the value. ok is false for absent, blank or non-numeric input.
func (v Value) Float() (float64, bool) {
	if !v.set {
		return 0, false
	}
	return catalog.ParseOptionalNumber(v.raw)
}

func (v Value) String() string { return v.raw }

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Value{raw: s, set: true}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*v = Value{raw: n.String(), set: true}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.set {
		return []byte("null"), nil
	}
	if f, ok := v.Float(); ok {
		return json.Marshal(f)
	}
	return json.Marshal(v.raw)
}
