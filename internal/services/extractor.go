package services

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"

	"acsf-platform/internal/models"
)

// Element names of the ACS-F2 recording format
const (
	elementTargetDevice       = "targetDevice"
	elementAcquisitionContext = "acquisitionContext"
	elementSignalPoint        = "signalPoint"
)

// ExtractedFile is everything one recording contributes to the wide table
type ExtractedFile struct {
	Record   models.DeviceRecord
	Readings []models.Reading
	// Skipped counts non-numeric readings per channel
	Skipped map[string]int
}

// SkippedTotal returns the number of readings dropped by numeric coercion
func (f *ExtractedFile) SkippedTotal() int {
	total := 0
	for _, n := range f.Skipped {
		total += n
	}
	return total
}

// ExtractRecord parses one recording. Label and model come from the last
// targetDevice element, the session from the first acquisitionContext.
// Readings are kept in document order for the channels in targets.
func ExtractRecord(r io.Reader, targets []string, deviceIndex int) (*ExtractedFile, error) {
	active := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		active[t] = struct{}{}
	}

	out := &ExtractedFile{
		Record: models.DeviceRecord{
			DeviceIndex: deviceIndex,
			Metadata:    make([]models.DeviceMetadata, 0, 1),
		},
		Readings: make([]models.Reading, 0),
		Skipped:  make(map[string]int),
	}

	var (
		lastDevice     models.DeviceMetadata
		sessionSeen    bool
		session        string
		sessionPresent bool
	)

	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode xml: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case elementTargetDevice:
			lastDevice = attributeMap(start.Attr)
			out.Record.Metadata = append(out.Record.Metadata, lastDevice)

		case elementAcquisitionContext:
			if sessionSeen {
				continue
			}
			sessionSeen = true
			session, sessionPresent = attributeMap(start.Attr)["session"]

		case elementSignalPoint:
			for _, attr := range start.Attr {
				channel := attr.Name.Local
				if _, ok := active[channel]; !ok {
					continue
				}
				value, err := parseReading(attr.Value)
				if err != nil {
					out.Skipped[channel]++
					continue
				}
				out.Readings = append(out.Readings, models.Reading{Channel: channel, Value: value})
			}
		}
	}

	if lastDevice == nil {
		return nil, models.ErrNoDeviceDescriptor
	}

	label, ok := lastDevice["type"]
	if !ok {
		return nil, &models.ValidationError{
			Field:   elementTargetDevice,
			Value:   "type",
			Message: "device descriptor has no type attribute",
		}
	}
	out.Record.Label = label

	out.Record.Model = models.DefaultModel
	if model, ok := lastDevice["model"]; ok {
		out.Record.Model = model
	}

	if !sessionSeen {
		return nil, &models.NotFoundError{Resource: elementAcquisitionContext, ID: "first element"}
	}
	if !sessionPresent {
		return nil, &models.NotFoundError{Resource: elementAcquisitionContext + " session attribute", ID: "first element"}
	}
	out.Record.Session = session

	return out, nil
}

func attributeMap(attrs []xml.Attr) models.DeviceMetadata {
	m := make(models.DeviceMetadata, len(attrs))
	for _, a := range attrs {
		m[a.Name.Local] = a.Value
	}
	return m
}

// parseReading converts one attribute value. Magnitudes beyond float64 range
// are kept as ±Inf.
func parseReading(raw string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	var numErr *strconv.NumError
	if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
		return value, nil
	}
	return value, err
}
