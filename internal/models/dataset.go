package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultModel is substituted when a device descriptor carries no model attribute
const DefaultModel = "N/A"

// DeviceMetadata holds the raw attributes of one targetDevice element
type DeviceMetadata map[string]string

// DeviceRecord is the parsed identity of one recording file.
// DeviceIndex is the file's position in processing order, not a content-derived id.
type DeviceRecord struct {
	Label       string           `json:"label"`
	Model       string           `json:"model"`
	Session     string           `json:"session"`
	DeviceIndex int              `json:"device_index"`
	SourceFile  string           `json:"source_file,omitempty"`
	Metadata    []DeviceMetadata `json:"metadata"`
}

// Key builds the row key of channel for this device
func (d *DeviceRecord) Key(channel string) RowKey {
	return RowKey{
		Channel:     channel,
		Label:       d.Label,
		Model:       d.Model,
		Session:     d.Session,
		DeviceIndex: d.DeviceIndex,
	}
}

// Reading is one numeric sample of one channel
type Reading struct {
	Channel string  `json:"channel"`
	Value   float64 `json:"value"`
}

// RowKey identifies one (channel, device) pair within a single ingestion run
type RowKey struct {
	Channel     string
	Label       string
	Model       string
	Session     string
	DeviceIndex int
}

// String renders the key as "{channel}_{label}_{model}_{session}_{deviceIndex}"
func (k RowKey) String() string {
	return fmt.Sprintf("%s_%s_%s_%s_%d", k.Channel, k.Label, k.Model, k.Session, k.DeviceIndex)
}

// ParseRowKey splits a rendered key back into its fields.
// Channel, session and device index are positional from both ends; a label
// containing underscores absorbs the extra fields, the model is assumed to have none.
func ParseRowKey(s string) (RowKey, error) {
	fields := strings.Split(s, "_")
	n := len(fields)
	if n < 5 {
		return RowKey{}, &ValidationError{
			Field:   "row_key",
			Value:   s,
			Message: fmt.Sprintf("expected at least 5 fields, got %d", n),
		}
	}

	idx, err := strconv.Atoi(fields[n-1])
	if err != nil {
		return RowKey{}, &ValidationError{
			Field:   "row_key",
			Value:   s,
			Message: "device index is not an integer",
		}
	}

	return RowKey{
		Channel:     fields[0],
		Label:       strings.Join(fields[1:n-3], "_"),
		Model:       fields[n-3],
		Session:     fields[n-2],
		DeviceIndex: idx,
	}, nil
}

// ChannelOfKey returns everything before the first underscore of a rendered key
func ChannelOfKey(key string) string {
	if i := strings.Index(key, "_"); i >= 0 {
		return key[:i]
	}
	return key
}

// DeviceIndexOfKey returns the integer after the last underscore of a rendered key
func DeviceIndexOfKey(key string) (int, error) {
	i := strings.LastIndex(key, "_")
	idx, err := strconv.Atoi(key[i+1:])
	if err != nil {
		return 0, &ValidationError{
			Field:   "row_key",
			Value:   key,
			Message: "device index is not an integer",
		}
	}
	return idx, nil
}

// IngestionRun summarizes one persisted ingestion run
type IngestionRun struct {
	ID              string    `json:"id" db:"id"`
	RootPath        string    `json:"root_path" db:"root_path"`
	Targets         string    `json:"targets" db:"targets"`
	FileCount       int       `json:"file_count" db:"file_count"`
	RowCount        int       `json:"row_count" db:"row_count"`
	ReadingCount    int       `json:"reading_count" db:"reading_count"`
	SkippedReadings int       `json:"skipped_readings" db:"skipped_readings"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// ValidationError represents a malformed value found while decoding
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Message)
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}
