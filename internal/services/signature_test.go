package services

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acsf-platform/internal/models"
)

func TestCreateSignatureDatasetFromIngestion(t *testing.T) {
	root := writeTree(t, fridgeAndFan()...)
	svc := NewIngestionService(Options{Targets: []string{"power"}}, testLogger(), testCollector())
	result, err := svc.BuildWideTable(context.Background(), root)
	require.NoError(t, err)

	sig, err := CreateSignatureDataset(result.Table)
	require.NoError(t, err)

	require.Len(t, sig.Rows, 2)
	assert.Equal(t, []string{"fridge", "fan"}, sig.Labels())
	assert.Equal(t, []string{"power"}, sig.Rows[0].Channels)
	assert.Equal(t, []float64{10, 12}, sig.Rows[0].Series["power"])
	assert.Equal(t, []float64{5}, sig.Rows[1].Series["power"])

	// each key's device index matches exactly one signature row
	for _, key := range result.Table.Keys() {
		idx, err := models.DeviceIndexOfKey(key)
		require.NoError(t, err)
		matches := 0
		for _, row := range sig.Rows {
			if row.DeviceIndex == idx {
				matches++
			}
		}
		assert.Equal(t, 1, matches, key)
	}
}

func TestCreateSignatureDataset(t *testing.T) {
	tests := []struct {
		name     string
		rows     []models.WideRow
		expected []models.SignatureRow
	}{
		{
			name: "channels of one device become columns",
			rows: []models.WideRow{
				{Key: "power_fridge_N/A_1_0", Label: "fridge", Values: []float64{10, 12, 11}},
				{Key: "freq_fridge_N/A_1_0", Label: "fridge", Values: []float64{50, 50, 49}},
			},
			expected: []models.SignatureRow{{
				DeviceIndex: 0,
				Label:       "fridge",
				Channels:    []string{"power", "freq"},
				Series: map[string][]float64{
					"power": {10, 12, 11},
					"freq":  {50, 50, 49},
				},
			}},
		},
		{
			name: "incomplete positions are dropped",
			rows: []models.WideRow{
				{Key: "power_fridge_N/A_1_0", Label: "fridge", Values: []float64{10, math.NaN(), 11}},
				{Key: "freq_fridge_N/A_1_0", Label: "fridge", Values: []float64{50, 50}},
			},
			expected: []models.SignatureRow{{
				DeviceIndex: 0,
				Label:       "fridge",
				Channels:    []string{"power", "freq"},
				Series: map[string][]float64{
					"power": {10},
					"freq":  {50},
				},
			}},
		},
		{
			name: "devices ordered by index",
			rows: []models.WideRow{
				{Key: "power_fan_N/A_1_10", Label: "fan", Values: []float64{1}},
				{Key: "power_fridge_N/A_1_2", Label: "fridge", Values: []float64{2}},
			},
			expected: []models.SignatureRow{
				{DeviceIndex: 2, Label: "fridge", Channels: []string{"power"}, Series: map[string][]float64{"power": {2}}},
				{DeviceIndex: 10, Label: "fan", Channels: []string{"power"}, Series: map[string][]float64{"power": {1}}},
			},
		},
		{
			name: "device without complete sample keeps an empty row",
			rows: []models.WideRow{
				{Key: "power_fridge_N/A_1_0", Label: "fridge", Values: []float64{math.NaN()}},
				{Key: "power_fan_N/A_1_1", Label: "fan", Values: []float64{3}},
			},
			expected: []models.SignatureRow{
				{DeviceIndex: 0, Label: "fridge", Channels: []string{"power"}, Series: map[string][]float64{"power": {}}},
				{DeviceIndex: 1, Label: "fan", Channels: []string{"power"}, Series: map[string][]float64{"power": {3}}},
			},
		},
		{
			name:     "empty table",
			rows:     []models.WideRow{},
			expected: []models.SignatureRow{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := CreateSignatureDataset(&models.WideTable{Rows: tt.rows})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, sig.Rows)
			for _, row := range sig.Rows {
				for _, ch := range row.Channels {
					assert.Len(t, row.Series[ch], row.Length())
				}
			}
		})
	}
}

func TestCreateSignatureDatasetErrors(t *testing.T) {
	_, err := CreateSignatureDataset(nil)
	assert.True(t, errors.Is(err, models.ErrNoData))

	_, err = CreateSignatureDataset(&models.WideTable{Rows: []models.WideRow{
		{Key: "power_fridge_N/A_1_x", Label: "fridge", Values: []float64{1}},
	}})
	assert.Error(t, err)
}
