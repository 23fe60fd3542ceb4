package dataset

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "Equipment Name,Type,Flowrate,Pressure,Temperature\n"

func mustParse(t *testing.T, doc string) *Table {
	t.Helper()
	table, err := ParseCSV(strings.NewReader(doc))
	require.NoError(t, err)
	return table
}

func mustValidateSchema(t *testing.T, doc string) *Table {
	t.Helper()
	view, err := ValidateSchema(mustParse(t, doc))
	require.NoError(t, err)
	return view
}

func TestParseCSVDropsBlankRowsAndKeepsPositions(t *testing.T) {
	table := mustParse(t, "\ufeff"+header+
		"Pump-1,Pump,120,5.2,110\n"+
		",,,,\n"+
		"Valve-1,Valve,60\n")

	assert.Equal(t, "Equipment Name", table.Columns[0])
	require.Equal(t, 2, table.Len())
	assert.Equal(t, []int{0, 2}, table.Index)
	assert.Equal(t, []string{"Valve-1", "Valve", "60", "", ""}, table.Records[1])
}

func TestParseCSVKeepsBareQuotes(t *testing.T) {
	table := mustParse(t, header+"Valve 2\" line,Valve,60,4.1,95\n")

	require.Equal(t, 1, table.Len())
	assert.Equal(t, []string{"Valve 2\" line", "Valve", "60", "4.1", "95"}, table.Records[0])
}

func TestParseCSVKeepsWhitespaceRecords(t *testing.T) {
	view := mustValidateSchema(t, header+
		"Pump-1,Pump,120,5.2,110\n"+
		" , , , , \n")
	require.Equal(t, 2, view.Len())

	result, err := NewRowValidator(DefaultMaxRowErrors).Validate(view)
	require.NoError(t, err)

	s := result.Summary
	assert.Equal(t, 1, s.RejectedRows)
	require.Len(t, s.RowErrors, 5)
	for i, column := range RequiredColumns {
		assert.Equal(t, RowError{Row: 3, Column: column, Message: MessageMissing}, s.RowErrors[i])
		assert.Equal(t, 1, s.MissingValues[column])
	}
}

func TestParseCSVRejectsWideRecords(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(header + "a,b,1,2,3,4\n"))
	assert.ErrorIs(t, err, ErrWideRecord)
}

func TestParseCSVEmptyInput(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestValidateSchemaReordersAndDropsExtraColumns(t *testing.T) {
	view := mustValidateSchema(t, " Temperature ,Notes,Type,Pressure,Equipment Name,Flowrate\n"+
		"110,ignored,Pump,5.2,Pump-1,120\n")

	assert.Equal(t, RequiredColumns, view.Columns)
	assert.Equal(t, []string{"Pump-1", "Pump", "120", "5.2", "110"}, view.Records[0])
}

func TestValidateSchemaReportsMissingColumns(t *testing.T) {
	_, err := ValidateSchema(mustParse(t, "Equipment Name,Type,Pressure\nPump-1,Pump,5\n"))

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{ColumnFlowrate, ColumnTemperature}, schemaErr.Missing)
	assert.Equal(t, []string{"Equipment Name", "Type", "Pressure"}, schemaErr.Received)
	assert.Equal(t, "Missing column: Flowrate", schemaErr.Error())
}

func TestCoerce(t *testing.T) {
	cases := map[string]bool{
		"12.5":  true,
		" 7 ":   true,
		"-3e2":  true,
		"abc":   false,
		"":      false,
		"NaN":   false,
		"inf":   false,
		"1,000": false,
	}
	for input, numeric := range cases {
		_, ok := Coerce(input).Float()
		assert.Equal(t, numeric, ok, "input %q", input)
	}
}

func TestValidateAcceptsCleanFile(t *testing.T) {
	view := mustValidateSchema(t, header+
		"Pump-1,Pump,120,5.2,110\n"+
		"Valve-1,Valve,60,4.1,95\n"+
		"HX-1,HeatExchanger,0,0,-50\n"+
		"Boiler-1,Boiler,20,1.5,500\n")

	result, err := NewRowValidator(DefaultMaxRowErrors).Validate(view)
	require.NoError(t, err)

	s := result.Summary
	assert.Equal(t, 4, s.TotalRows)
	assert.Equal(t, 4, s.AcceptedRows)
	assert.Equal(t, 0, s.RejectedRows)
	assert.Empty(t, s.RowErrors)
	for _, column := range RequiredColumns {
		assert.Equal(t, 0, s.MissingValues[column])
	}

	summary := Analyze(result.Accepted)
	require.NotNil(t, summary.AvgFlowrate)
	require.NotNil(t, summary.AvgPressure)
	require.NotNil(t, summary.AvgTemperature)
	assert.InDelta(t, 50.0, *summary.AvgFlowrate, 1e-9)
}

func TestValidateTemperatureAboveUpperBound(t *testing.T) {
	view := mustValidateSchema(t, header+
		"Boiler-1,Boiler,20,1.5,500\n"+
		"Boiler-2,Boiler,20,1.5,500.0001\n")

	result, err := NewRowValidator(DefaultMaxRowErrors).Validate(view)
	require.NoError(t, err)

	s := result.Summary
	assert.Equal(t, 1, s.AcceptedRows)
	assert.Equal(t, 1, s.OutOfRange[ColumnTemperature])
	require.Len(t, s.RowErrors, 1)
	assert.Equal(t, RowError{Row: 3, Column: ColumnTemperature, Message: MessageTemperature}, s.RowErrors[0])
}

func TestValidateNegativeFlowrateInThirdRow(t *testing.T) {
	view := mustValidateSchema(t, header+
		"Pump-1,Pump,120,5.2,110\n"+
		"Pump-2,Pump,80,5.0,100\n"+
		"Pump-3,Pump,-4,5.1,105\n")

	result, err := NewRowValidator(DefaultMaxRowErrors).Validate(view)
	require.NoError(t, err)

	s := result.Summary
	assert.Equal(t, 1, s.OutOfRange[ColumnFlowrate])
	assert.Equal(t, 2, s.AcceptedRows)
	assert.Equal(t, 1, s.RejectedRows)
	require.Len(t, s.RowErrors, 1)
	assert.Equal(t, RowError{Row: 4, Column: ColumnFlowrate, Message: MessageNegative}, s.RowErrors[0])
}

func TestValidateErrorOrderAndClassification(t *testing.T) {
	view := mustValidateSchema(t, header+
		"Pump-1,,abc,5,600\n"+
		",Valve,,-1,20\n")

	result, err := NewRowValidator(DefaultMaxRowErrors).Validate(view)
	assert.ErrorIs(t, err, ErrAllRowsInvalid)
	require.NotNil(t, result)

	s := result.Summary
	assert.Equal(t, 1, s.MissingValues[ColumnEquipmentName])
	assert.Equal(t, 1, s.MissingValues[ColumnType])
	assert.Equal(t, 1, s.MissingValues[ColumnFlowrate])
	assert.Equal(t, 1, s.InvalidValues[ColumnFlowrate], "missing cells are not invalid")
	assert.Equal(t, 1, s.OutOfRange[ColumnPressure])
	assert.Equal(t, 1, s.OutOfRange[ColumnTemperature])

	assert.Equal(t, []RowError{
		{Row: 3, Column: ColumnEquipmentName, Message: MessageMissing},
		{Row: 2, Column: ColumnType, Message: MessageMissing},
		{Row: 3, Column: ColumnFlowrate, Message: MessageMissing},
		{Row: 2, Column: ColumnFlowrate, Message: MessageInvalid},
		{Row: 3, Column: ColumnPressure, Message: MessageNegative},
		{Row: 2, Column: ColumnTemperature, Message: MessageTemperature},
	}, s.RowErrors)
}

func TestValidateRowErrorsUseSourceLineAfterBlankRows(t *testing.T) {
	view := mustValidateSchema(t, header+
		"Pump-1,Pump,120,5.2,110\n"+
		",,,,\n"+
		"Pump-2,Pump,10,5.2,900\n")

	result, err := NewRowValidator(DefaultMaxRowErrors).Validate(view)
	require.NoError(t, err)
	require.Len(t, result.Summary.RowErrors, 1)
	assert.Equal(t, 4, result.Summary.RowErrors[0].Row)
	assert.Equal(t, 2, result.Summary.TotalRows)
}

func TestValidateCapsRowErrorsButNotCounts(t *testing.T) {
	var b strings.Builder
	b.WriteString(header)
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "P-%d,Pump,-1,-1,20\n", i)
	}
	view := mustValidateSchema(t, b.String())

	result, err := NewRowValidator(DefaultMaxRowErrors).Validate(view)
	assert.ErrorIs(t, err, ErrAllRowsInvalid)

	s := result.Summary
	assert.Len(t, s.RowErrors, DefaultMaxRowErrors)
	assert.Equal(t, 40, s.OutOfRange[ColumnFlowrate])
	assert.Equal(t, 40, s.OutOfRange[ColumnPressure])
	assert.Equal(t, 40, s.RejectedRows)
	assert.Equal(t, ColumnPressure, s.RowErrors[DefaultMaxRowErrors-1].Column)
}

func TestAnalyzeIsOrderIndependent(t *testing.T) {
	forward := mustValidateSchema(t, header+
		"A,Pump,1.1,2,30\n"+
		"B,pump,2.2,3,40\n"+
		"C,Pump,3.3,4,50\n")
	backward := mustValidateSchema(t, header+
		"C,Pump,3.3,4,50\n"+
		"B,pump,2.2,3,40\n"+
		"A,Pump,1.1,2,30\n")

	a, b := Analyze(forward), Analyze(backward)
	assert.Equal(t, map[string]int{"Pump": 2, "pump": 1}, a.TypeDistribution)
	assert.Equal(t, a.TypeDistribution, b.TypeDistribution)
	assert.InDelta(t, *a.AvgFlowrate, *b.AvgFlowrate, 1e-9)
	assert.InDelta(t, *a.AvgTemperature, *b.AvgTemperature, 1e-9)
	assert.Equal(t, a, Analyze(forward))
}

func TestAnalyzeNullAverageForNoNumericValues(t *testing.T) {
	table := &Table{
		Columns: RequiredColumns,
		Records: [][]string{{"A", "Pump", "x", "1", "2"}},
		Index:   []int{0},
	}

	summary := Analyze(table)
	assert.Nil(t, summary.AvgFlowrate)
	require.NotNil(t, summary.AvgPressure)
	assert.Equal(t, 1.0, *summary.AvgPressure)
}
