package dataset

import (
	"fmt"
	"strings"
)

const (
	ColumnEquipmentName = "Equipment Name"
	ColumnType          = "Type"
	ColumnFlowrate      = "Flowrate"
	ColumnPressure      = "Pressure"
	ColumnTemperature   = "Temperature"
)

// RequiredColumns lists the schema every upload must carry, in report order.
var RequiredColumns = []string{
	ColumnEquipmentName,
	ColumnType,
	ColumnFlowrate,
	ColumnPressure,
	ColumnTemperature,
}

// NumericColumns are the required columns holding measurements.
var NumericColumns = []string{
	ColumnFlowrate,
	ColumnPressure,
	ColumnTemperature,
}

// SchemaError lists the required columns absent from a file together with
// the (trimmed) columns that were actually received.
type SchemaError struct {
	Missing  []string `json:"missing_columns"`
	Received []string `json:"received_columns"`
}

func (e *SchemaError) Error() string {
	if len(e.Missing) == 0 {
		return "schema mismatch"
	}
	return fmt.Sprintf("Missing column: %s", e.Missing[0])
}

// ValidateSchema checks the header against RequiredColumns and returns a view
// restricted and reordered to exactly those columns. The first occurrence of
// a duplicated header wins.
func ValidateSchema(t *Table) (*Table, error) {
	received := make([]string, len(t.Columns))
	positions := make(map[string]int, len(t.Columns))
	for i, column := range t.Columns {
		name := strings.TrimSpace(column)
		received[i] = name
		if _, ok := positions[name]; !ok {
			positions[name] = i
		}
	}

	var missing []string
	for _, column := range RequiredColumns {
		if _, ok := positions[column]; !ok {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing, Received: received}
	}

	view := &Table{
		Columns: append([]string(nil), RequiredColumns...),
		Records: make([][]string, len(t.Records)),
		Index:   t.Index,
	}
	for i, record := range t.Records {
		projected := make([]string, len(RequiredColumns))
		for j, column := range RequiredColumns {
			projected[j] = record[positions[column]]
		}
		view.Records[i] = projected
	}
	return view, nil
}
