package feed

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/transitflow/transitflow/pkg/transit"
)

type csvAvlRecord struct {
	VehicleID string  `csv:"vehicle_id"`
	Time      string  `csv:"time"`
	Latitude  float64 `csv:"latitude"`
	Longitude float64 `csv:"longitude"`
	Speed     string  `csv:"speed"`
	Heading   string  `csv:"heading"`
	BlockID   string  `csv:"block_id"`
	TripID    string  `csv:"trip_id"`
	RouteID   string  `csv:"route_id"`
}

// ParseCSV decodes a simple CSV position dump into reports. Timestamps are
// RFC 3339, speed is metres per second
func ParseCSV(body []byte, source string) ([]*transit.AvlReport, error) {
	// Allow us to ignore those naughty records that have missing columns.
	// The reader is built per call as pollers parse concurrently
	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1

	var records []csvAvlRecord
	if err := gocsv.UnmarshalCSV(reader, &records); err != nil {
		return nil, err
	}

	var reports []*transit.AvlReport

	for _, record := range records {
		recordedAtTime, err := time.Parse(time.RFC3339, record.Time)
		if err != nil {
			continue
		}

		report := &transit.AvlReport{
			VehicleID: record.VehicleID,
			Time:      recordedAtTime.UnixMilli(),
			Location:  transit.NewPoint(record.Longitude, record.Latitude),
			Source:    source,
		}

		if speed, ok := parseOptionalFloat(record.Speed); ok {
			report.SpeedMetresSecond = speed
			report.HasSpeed = true
		}
		if heading, ok := parseOptionalFloat(record.Heading); ok {
			report.Heading = heading
			report.HasHeading = true
		}

		if record.BlockID != "" {
			report.SetAssignment(record.BlockID, transit.AssignmentTypeBlock)
		} else if record.TripID != "" {
			report.SetAssignment(record.TripID, transit.AssignmentTypeTrip)
		} else if record.RouteID != "" {
			report.SetAssignment(record.RouteID, transit.AssignmentTypeRoute)
		}

		reports = append(reports, report)
	}

	return reports, nil
}

func parseOptionalFloat(value string) (float64, bool) {
	if value == "" {
		return 0, false
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}

	return parsed, true
}
