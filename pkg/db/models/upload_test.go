package models

import (
	"encoding/json"
	"testing"

	"github.com/mwantia/chemviz/pkg/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestSummaryJSONIsFlat(t *testing.T) {
	avg := 12.5
	summary := Summary{
		AnalyticsSummary: dataset.AnalyticsSummary{
			TotalEquipment:   2,
			AvgFlowrate:      &avg,
			TypeDistribution: map[string]int{"Pump": 2},
			RowCount:         3,
			FileSizeBytes:    120,
		},
		Validation: dataset.ValidationSummary{TotalRows: 3, AcceptedRows: 2, RejectedRows: 1},
	}

	data, err := json.Marshal(summary)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, 12.5, raw["avg_flowrate"])
	assert.Nil(t, raw["avg_pressure"])
	assert.Contains(t, raw, "validation")
	assert.Contains(t, raw, "file_size_bytes")
}

func TestUploadOwner(t *testing.T) {
	owner := "alice"
	upload := Upload{OwnerID: &owner, Summary: datatypes.NewJSONType(Summary{})}
	assert.Equal(t, "alice", upload.Owner())
	assert.Equal(t, "", (&Upload{}).Owner())
	assert.Equal(t, 0, upload.Stats().TotalEquipment)
}
