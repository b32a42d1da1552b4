package feed

import (
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/transitflow/transitflow/pkg/transit"
	"google.golang.org/protobuf/proto"
)

// Skip any records that haven't been updated in over 20 minutes
const maxRecordAge = 20 * time.Minute

// ParseGTFSRT decodes a GTFS-RT VehiclePositions feed into reports
func ParseGTFSRT(body []byte, source string) ([]*transit.AvlReport, error) {
	feed := gtfs.FeedMessage{}
	err := proto.Unmarshal(body, &feed)
	if err != nil {
		return nil, err
	}

	var reports []*transit.AvlReport

	for _, entity := range feed.Entity {
		vehiclePosition := entity.GetVehicle()
		if vehiclePosition == nil {
			continue
		}

		position := vehiclePosition.GetPosition()
		if position == nil {
			continue
		}

		vehicleID := vehiclePosition.GetVehicle().GetId()
		if vehicleID == "" {
			vehicleID = vehiclePosition.GetVehicle().GetLabel()
		}

		recordedAtTime := time.Unix(int64(vehiclePosition.GetTimestamp()), 0)
		if vehiclePosition.Timestamp == nil {
			recordedAtTime = time.Unix(int64(feed.GetHeader().GetTimestamp()), 0)
		}

		if time.Since(recordedAtTime) > maxRecordAge {
			continue
		}

		report := &transit.AvlReport{
			VehicleID: vehicleID,
			Time:      recordedAtTime.UnixMilli(),
			Location:  transit.NewPoint(float64(position.GetLongitude()), float64(position.GetLatitude())),
			Source:    source,
		}

		if position.Speed != nil {
			report.SpeedMetresSecond = float64(position.GetSpeed())
			report.HasSpeed = true
		}
		if position.Bearing != nil {
			report.Heading = float64(position.GetBearing())
			report.HasHeading = true
		}

		trip := vehiclePosition.GetTrip()
		if trip.GetTripId() != "" {
			report.SetAssignment(trip.GetTripId(), transit.AssignmentTypeTrip)
		} else if trip.GetRouteId() != "" {
			report.SetAssignment(trip.GetRouteId(), transit.AssignmentTypeRoute)
		}

		reports = append(reports, report)
	}

	return reports, nil
}
