package mbus

import (
	"testing"
	"time"

	"github.com/nergy-se/smartrce/pkg/api/v1/meter"
	"github.com/stretchr/testify/assert"
)

func records(n int) []float64 {
	r := make([]float64, n)
	for i := range r {
		r[i] = float64(i+1) * 100
	}
	return r
}

func TestDecode(t *testing.T) {
	now := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name         string
		records      []float64
		model        string
		exportRecord int
		expected     *meter.Data
		expectErr    bool
	}{
		{
			name:         "garo",
			records:      records(11),
			model:        ModelGaroGNM3D,
			exportRecord: 1,
			expected: &meter.Data{
				Id:             "5",
				Model:          ModelGaroGNM3D,
				Time:           now,
				TotalExport_WH: 200,
				Total_WH:       100,
				Current_W:      300,
				L1_A:           900,
				L2_A:           1000,
				L3_A:           1100,
			},
		},
		{
			name:         "garo too few records",
			records:      records(10),
			model:        ModelGaroGNM3D,
			exportRecord: 1,
			expectErr:    true,
		},
		{
			name:         "unknown model only export",
			records:      records(3),
			model:        "other",
			exportRecord: 2,
			expected: &meter.Data{
				Id:             "5",
				Model:          "other",
				Time:           now,
				TotalExport_WH: 300,
			},
		},
		{
			name:         "export record out of range",
			records:      records(3),
			model:        "other",
			exportRecord: 3,
			expectErr:    true,
		},
		{
			name:         "negative export record",
			records:      records(3),
			model:        "other",
			exportRecord: -1,
			expectErr:    true,
		},
		{
			name:         "empty frame",
			records:      nil,
			model:        ModelGaroGNM3D,
			exportRecord: 0,
			expectErr:    true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			d, err := decode(tt.records, tt.model, "5", tt.exportRecord, now)
			if tt.expectErr {
				assert.Error(t, err)
				assert.Nil(t, d)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, d)
			assert.Equal(t, tt.expected.TotalExport_WH/1000, d.ExportKWh())
		})
	}
}
