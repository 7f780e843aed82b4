package services

import (
	"fmt"
	"math"
	"sort"

	"acsf-platform/internal/models"
)

// CreateSignatureDataset pivots the wide table into one row per device.
// Rows are grouped by the device index after the last underscore of their
// key, renamed to the channel before the first underscore, and labelled with
// the label of the group's first row. Sample positions where any channel of
// the device is missing or NaN are dropped, so every series has the same length.
// Every device of the table appears exactly once, possibly with empty series.
func CreateSignatureDataset(table *models.WideTable) (*models.SignatureTable, error) {
	if table == nil {
		return nil, fmt.Errorf("signature dataset: %w", models.ErrNoData)
	}

	groups := make(map[int][]int)
	for i, row := range table.Rows {
		idx, err := models.DeviceIndexOfKey(row.Key)
		if err != nil {
			return nil, fmt.Errorf("signature dataset: %w", err)
		}
		groups[idx] = append(groups[idx], i)
	}

	ids := make([]int, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := &models.SignatureTable{Rows: make([]models.SignatureRow, 0, len(ids))}
	for _, id := range ids {
		out.Rows = append(out.Rows, pivotDevice(table, id, groups[id]))
	}

	return out, nil
}

func pivotDevice(table *models.WideTable, deviceIndex int, rowIdx []int) models.SignatureRow {
	maxLen := 0
	for _, i := range rowIdx {
		if n := len(table.Rows[i].Values); n > maxLen {
			maxLen = n
		}
	}

	// positions where every channel holds a real number
	complete := make([]int, 0, maxLen)
	for p := 0; p < maxLen; p++ {
		ok := true
		for _, i := range rowIdx {
			values := table.Rows[i].Values
			if p >= len(values) || math.IsNaN(values[p]) {
				ok = false
				break
			}
		}
		if ok {
			complete = append(complete, p)
		}
	}
	row := models.SignatureRow{
		DeviceIndex: deviceIndex,
		Label:       table.Rows[rowIdx[0]].Label,
		Channels:    make([]string, 0, len(rowIdx)),
		Series:      make(map[string][]float64, len(rowIdx)),
	}
	for _, i := range rowIdx {
		channel := models.ChannelOfKey(table.Rows[i].Key)
		series := make([]float64, len(complete))
		for j, p := range complete {
			series[j] = table.Rows[i].Values[p]
		}
		row.Channels = append(row.Channels, channel)
		row.Series[channel] = series
	}

	return row
}
