package models

import (
	"errors"
	"math"
	"testing"
)

// TestParseRowKey covers rendering and decoding of composite row keys
func TestParseRowKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		want    RowKey
		wantErr bool
	}{
		{
			name: "plain key",
			key:  "power_Fridges_N/A_1_0",
			want: RowKey{Channel: "power", Label: "Fridges", Model: "N/A", Session: "1", DeviceIndex: 0},
		},
		{
			name: "label with spaces and multi digit index",
			key:  "rmsCur_Coffee machines_Nespresso Pixie_2_117",
			want: RowKey{Channel: "rmsCur", Label: "Coffee machines", Model: "Nespresso Pixie", Session: "2", DeviceIndex: 117},
		},
		{
			name: "label with underscore absorbs extra fields",
			key:  "freq_Lamp_CFL_Osram_1_3",
			want: RowKey{Channel: "freq", Label: "Lamp_CFL", Model: "Osram", Session: "1", DeviceIndex: 3},
		},
		{
			name:    "too few fields",
			key:     "power_Fridges_1_0",
			wantErr: true,
		},
		{
			name:    "non numeric index",
			key:     "power_Fridges_N/A_1_x",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRowKey(tt.key)

			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRowKey() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got != tt.want {
				t.Errorf("ParseRowKey() = %+v, want %+v", got, tt.want)
			}
			if got.String() != tt.key {
				t.Errorf("String() = %q, want %q", got.String(), tt.key)
			}
		})
	}
}

func TestDeviceRecordKey(t *testing.T) {
	rec := DeviceRecord{Label: "fan", Model: DefaultModel, Session: "2", DeviceIndex: 4}

	if got := rec.Key(ChannelRealPower).String(); got != "power_fan_N/A_2_4" {
		t.Errorf("Key() = %q", got)
	}
	if got := ChannelOfKey("reacPower_fan_N/A_2_4"); got != "reacPower" {
		t.Errorf("ChannelOfKey() = %q", got)
	}
	idx, err := DeviceIndexOfKey("reacPower_fan_N/A_2_14")
	if err != nil || idx != 14 {
		t.Errorf("DeviceIndexOfKey() = %d, %v", idx, err)
	}
}

func TestWideTableMatrix(t *testing.T) {
	table := &WideTable{Rows: []WideRow{
		{Key: "power_fridge_N/A_1_0", Label: "fridge", Values: []float64{10, 12}},
		{Key: "power_fan_N/A_1_1", Label: "fan", Values: []float64{5}},
	}}

	if table.Width() != 2 {
		t.Fatalf("Width() = %d, want 2", table.Width())
	}

	m := table.Matrix()
	if m[0][0] != 10 || m[0][1] != 12 || m[1][0] != 5 {
		t.Errorf("Matrix() = %v", m)
	}
	if !math.IsNaN(m[1][1]) {
		t.Errorf("padded cell = %v, want NaN", m[1][1])
	}

	if _, ok := table.Cell(1, 1); ok {
		t.Error("Cell(1, 1) should be missing")
	}
	if v, ok := table.Cell(0, 1); !ok || v != 12 {
		t.Errorf("Cell(0, 1) = %v, %v", v, ok)
	}

	labels := table.Labels()
	if len(labels) != 2 || labels[0] != "fridge" || labels[1] != "fan" {
		t.Errorf("Labels() = %v", labels)
	}
}

func TestAllowedChannels(t *testing.T) {
	channels := AllowedChannels()
	if len(channels) != 6 {
		t.Fatalf("AllowedChannels() returned %d codes", len(channels))
	}

	channels[0] = "mutated"
	if AllowedChannels()[0] != ChannelFrequency {
		t.Error("AllowedChannels() must return a copy")
	}

	for _, code := range []string{"freq", "phAngle", "power", "reacPower", "rmsCur", "rmsVolt"} {
		if !IsAllowedChannel(code) {
			t.Errorf("IsAllowedChannel(%q) = false", code)
		}
	}
	if IsAllowedChannel("Power") {
		t.Error("channel codes are case sensitive")
	}
}

func TestErrorTaxonomy(t *testing.T) {
	var err error = &ConfigurationError{Field: "target", Value: "volts", Message: "not allowed"}
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Error("ConfigurationError should match ErrInvalidConfiguration")
	}

	err = &NotFoundError{Resource: "acquisitionContext", ID: "a.xml"}
	if !errors.Is(err, ErrNotFound) {
		t.Error("NotFoundError should match ErrNotFound")
	}
	if err.Error() != "acquisitionContext not found: a.xml" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestLabelIndexAndSamples(t *testing.T) {
	idx := NewLabelIndex()
	for _, l := range []string{"fridge", "fan", "fridge", "lamp"} {
		idx.Add(l)
	}
	if code, _ := idx.Code("lamp"); code != 2 {
		t.Errorf("Code(lamp) = %d, want 2", code)
	}

	row := SignatureRow{
		Label:    "fan",
		Channels: []string{"power", "rmsCur"},
		Series: map[string][]float64{
			"power":  {1, 2},
			"rmsCur": {0.1, 0.2},
		},
	}
	samples := row.Samples()
	if len(samples) != 2 || samples[1][0] != 2 || samples[1][1] != 0.2 {
		t.Errorf("Samples() = %v", samples)
	}
}
