package feed

import (
	"bytes"
	"encoding/xml"
	"io"
	"time"

	iso8601 "github.com/senseyeio/duration"
	"github.com/transitflow/transitflow/pkg/transit"
	"golang.org/x/net/html/charset"
)

const xsdDateTimeFormat = "2006-01-02T15:04:05-07:00"

type siriVehicleActivity struct {
	RecordedAtTime string
	ItemIdentifier string
	ValidUntilTime string

	MonitoredVehicleJourney *siriMonitoredVehicleJourney
}

type siriMonitoredVehicleJourney struct {
	LineRef           string
	DirectionRef      string
	PublishedLineName string

	FramedVehicleJourneyRef struct {
		DataFrameRef           string
		DatedVehicleJourneyRef string
	}

	VehicleJourneyRef string

	OperatorRef string

	VehicleLocation struct {
		Longitude float64
		Latitude  float64
	}
	Bearing float64
	Delay   string

	BlockRef   string
	VehicleRef string
}

// ParseSiriVM decodes a SIRI-VM document into reports, streaming the
// VehicleActivity elements rather than loading the whole tree
func ParseSiriVM(body []byte, source string) ([]*transit.AvlReport, error) {
	var reports []*transit.AvlReport

	d := xml.NewDecoder(bytes.NewReader(body))
	d.CharsetReader = charset.NewReaderLabel

	for {
		tok, err := d.Token()
		if tok == nil || err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}

		switch ty := tok.(type) {
		case xml.StartElement:
			if ty.Name.Local != "VehicleActivity" {
				continue
			}

			var activity siriVehicleActivity
			if err := d.DecodeElement(&activity, &ty); err != nil {
				return nil, err
			}

			if report := activityToReport(&activity, source); report != nil {
				reports = append(reports, report)
			}
		}
	}

	return reports, nil
}

func activityToReport(activity *siriVehicleActivity, source string) *transit.AvlReport {
	journey := activity.MonitoredVehicleJourney
	if journey == nil {
		return nil
	}

	recordedAtTime, err := time.Parse(xsdDateTimeFormat, activity.RecordedAtTime)
	if err != nil {
		return nil
	}

	if time.Since(recordedAtTime) > maxRecordAge {
		return nil
	}

	report := &transit.AvlReport{
		VehicleID: journey.VehicleRef,
		Time:      recordedAtTime.UnixMilli(),
		Location:  transit.NewPoint(journey.VehicleLocation.Longitude, journey.VehicleLocation.Latitude),
		Source:    source,
	}

	if journey.Bearing != 0 {
		report.Heading = journey.Bearing
		report.HasHeading = true
	}

	if journey.Delay != "" {
		if delay, err := iso8601.ParseISO8601(journey.Delay); err == nil {
			report.DelaySeconds = delay.Shift(recordedAtTime).Sub(recordedAtTime).Seconds()
			report.HasDelay = true
		}
	}

	if journey.BlockRef != "" {
		report.SetAssignment(journey.BlockRef, transit.AssignmentTypeBlock)
	} else if journey.FramedVehicleJourneyRef.DatedVehicleJourneyRef != "" {
		report.SetAssignment(journey.FramedVehicleJourneyRef.DatedVehicleJourneyRef, transit.AssignmentTypeTrip)
	} else if journey.LineRef != "" {
		report.SetAssignment(journey.LineRef, transit.AssignmentTypeRoute)
	}

	return report
}
