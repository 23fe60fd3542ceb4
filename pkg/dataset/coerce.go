package dataset

import (
	"math"
	"strconv"
	"strings"
)

type CoercionKind int

const (
	NotNumeric CoercionKind = iota
	Coerced
)

// Coercion is the outcome of reading a cell as a number.
type Coercion struct {
	Kind  CoercionKind
	Value float64
}

// Float returns the value and whether the cell was numeric.
func (c Coercion) Float() (float64, bool) {
	return c.Value, c.Kind == Coerced
}

// Coerce reads a cell as a finite float. Missing cells and text that does not
// parse are NotNumeric; infinities and NaN literals are NotNumeric as well.
func Coerce(value string) Coercion {
	if IsMissing(value) {
		return Coercion{Kind: NotNumeric}
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return Coercion{Kind: NotNumeric}
	}
	return Coercion{Kind: Coerced, Value: f}
}

// CoerceColumn coerces every cell of a column and keeps the numeric ones.
func CoerceColumn(t *Table, name string) []float64 {
	values := t.Values(name)
	numbers := make([]float64, 0, len(values))
	for _, value := range values {
		if f, ok := Coerce(value).Float(); ok {
			numbers = append(numbers, f)
		}
	}
	return numbers
}
