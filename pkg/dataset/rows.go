package dataset

import "errors"

// ErrAllRowsInvalid is returned when validation leaves no accepted row. The
// accompanying Validation still carries the full diagnostics.
var ErrAllRowsInvalid = errors.New("all rows are invalid")

// DefaultMaxRowErrors caps RowErrors when no other limit is configured.
const DefaultMaxRowErrors = 50

const (
	MessageMissing     = "Missing value"
	MessageInvalid     = "Invalid numeric value"
	MessageNegative    = "Value must be >= 0"
	MessageTemperature = "Value must be between -50 and 500"
)

const (
	MinTemperature = -50.0
	MaxTemperature = 500.0
)

// RowError points at one offending cell. Row is the 1-based line number in
// the source file, header included.
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Message string `json:"message"`
}

type ValidationSummary struct {
	TotalRows     int            `json:"total_rows"`
	AcceptedRows  int            `json:"accepted_rows"`
	RejectedRows  int            `json:"rejected_rows"`
	MissingValues map[string]int `json:"missing_values"`
	InvalidValues map[string]int `json:"invalid_values"`
	OutOfRange    map[string]int `json:"out_of_range"`
	RowErrors     []RowError     `json:"row_errors"`
}

// Validation is the result of a RowValidator pass. Accepted holds only the
// records that passed every check.
type Validation struct {
	Summary  ValidationSummary
	Accepted *Table
}

type RowValidator struct {
	maxErrors int
}

func NewRowValidator(maxErrors int) *RowValidator {
	if maxErrors < 0 {
		maxErrors = DefaultMaxRowErrors
	}
	return &RowValidator{maxErrors: maxErrors}
}

type rangeRule struct {
	column  string
	message string
	fails   func(float64) bool
}

var rangeRules = []rangeRule{
	{column: ColumnFlowrate, message: MessageNegative, fails: func(v float64) bool { return v < 0 }},
	{column: ColumnPressure, message: MessageNegative, fails: func(v float64) bool { return v < 0 }},
	{column: ColumnTemperature, message: MessageTemperature, fails: func(v float64) bool {
		return v < MinTemperature || v > MaxTemperature
	}},
}

type errorLog struct {
	max    int
	errors []RowError
}

func (l *errorLog) add(t *Table, mask []bool, column, message string) {
	for i, hit := range mask {
		if len(l.errors) >= l.max {
			return
		}
		if hit {
			l.errors = append(l.errors, RowError{Row: t.Index[i] + 2, Column: column, Message: message})
		}
	}
}

// Validate classifies every record of a schema-validated table. Checks run as
// missing values for every required column, numeric coercion, then range
// rules; the pass order only decides which diagnostics make it under the cap.
func (v *RowValidator) Validate(t *Table) (*Validation, error) {
	n := t.Len()
	valid := make([]bool, n)
	for i := range valid {
		valid[i] = true
	}

	summary := ValidationSummary{
		TotalRows:     n,
		MissingValues: make(map[string]int, len(RequiredColumns)),
		InvalidValues: make(map[string]int, len(NumericColumns)),
		OutOfRange:    make(map[string]int, len(NumericColumns)),
	}
	log := &errorLog{max: v.maxErrors}

	missing := make(map[string][]bool, len(RequiredColumns))
	for _, column := range RequiredColumns {
		mask := make([]bool, n)
		for i, value := range t.Values(column) {
			mask[i] = IsMissing(value)
		}
		missing[column] = mask
		summary.MissingValues[column] = apply(valid, mask)
		log.add(t, mask, column, MessageMissing)
	}

	coerced := make(map[string][]Coercion, len(NumericColumns))
	for _, column := range NumericColumns {
		values := t.Values(column)
		cells := make([]Coercion, n)
		mask := make([]bool, n)
		for i, value := range values {
			cells[i] = Coerce(value)
			mask[i] = cells[i].Kind == NotNumeric && !missing[column][i]
		}
		coerced[column] = cells
		summary.InvalidValues[column] = apply(valid, mask)
		log.add(t, mask, column, MessageInvalid)
	}

	for _, rule := range rangeRules {
		mask := make([]bool, n)
		for i, cell := range coerced[rule.column] {
			if f, ok := cell.Float(); ok {
				mask[i] = rule.fails(f)
			}
		}
		summary.OutOfRange[rule.column] = apply(valid, mask)
		log.add(t, mask, rule.column, rule.message)
	}

	accepted := &Table{Columns: t.Columns}
	for i, ok := range valid {
		if ok {
			accepted.Records = append(accepted.Records, t.Records[i])
			accepted.Index = append(accepted.Index, t.Index[i])
		}
	}

	summary.AcceptedRows = accepted.Len()
	summary.RejectedRows = n - summary.AcceptedRows
	summary.RowErrors = log.errors
	if summary.RowErrors == nil {
		summary.RowErrors = []RowError{}
	}

	result := &Validation{Summary: summary, Accepted: accepted}
	if summary.AcceptedRows == 0 {
		return result, ErrAllRowsInvalid
	}
	return result, nil
}

// apply clears valid wherever mask is set and returns the number of hits.
func apply(valid, mask []bool) int {
	hits := 0
	for i, hit := range mask {
		if hit {
			hits++
			valid[i] = false
		}
	}
	return hits
}
