package models

import "math"

// WideRow is one (channel, device) row of the wide table.
// Values are positional sample columns; rows may differ in length.
type WideRow struct {
	Key    string    `json:"key"`
	Label  string    `json:"label"`
	Values []float64 `json:"values"`
}

// WideTable holds one row per row key in first-seen order, plus the label column
type WideTable struct {
	Rows []WideRow `json:"rows"`
}

// Len returns the number of rows
func (t *WideTable) Len() int {
	return len(t.Rows)
}

// Width returns the longest row length, i.e. the positional column count
func (t *WideTable) Width() int {
	width := 0
	for _, r := range t.Rows {
		if len(r.Values) > width {
			width = len(r.Values)
		}
	}
	return width
}

// Labels returns the label column in row order
func (t *WideTable) Labels() []string {
	labels := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		labels[i] = r.Label
	}
	return labels
}

// Keys returns the row keys in row order
func (t *WideTable) Keys() []string {
	keys := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		keys[i] = r.Key
	}
	return keys
}

// Cell returns the value at (row, col); ok is false for padded positions
func (t *WideTable) Cell(row, col int) (float64, bool) {
	if row < 0 || row >= len(t.Rows) {
		return 0, false
	}
	values := t.Rows[row].Values
	if col < 0 || col >= len(values) {
		return 0, false
	}
	return values[col], true
}

// Matrix materializes the rectangular view, padding short rows with NaN
func (t *WideTable) Matrix() [][]float64 {
	width := t.Width()
	out := make([][]float64, len(t.Rows))
	for i, r := range t.Rows {
		row := make([]float64, width)
		n := copy(row, r.Values)
		for j := n; j < width; j++ {
			row[j] = math.NaN()
		}
		out[i] = row
	}
	return out
}

// Filter returns a new table with the rows for which keep is true, order preserved
func (t *WideTable) Filter(keep func(WideRow) bool) *WideTable {
	out := &WideTable{Rows: make([]WideRow, 0)}
	for _, r := range t.Rows {
		if keep(r) {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}
