package transit

import "math"

const earthRadiusMetres = 6371000.0

type Location struct {
	Type        string    `json:"-" groups:"basic"`
	Coordinates []float64 `json:"coordinates" groups:"basic"`
}

func NewPoint(longitude float64, latitude float64) Location {
	return Location{
		Type:        "Point",
		Coordinates: []float64{longitude, latitude},
	}
}

func (l *Location) Longitude() float64 {
	return l.Coordinates[0]
}

func (l *Location) Latitude() float64 {
	return l.Coordinates[1]
}

// Distance returns the great-circle distance to the other location in metres
func (l *Location) Distance(other *Location) float64 {
	lon1 := l.Coordinates[0] * math.Pi / 180
	lat1 := l.Coordinates[1] * math.Pi / 180
	lon2 := other.Coordinates[0] * math.Pi / 180
	lat2 := other.Coordinates[1] * math.Pi / 180

	sinLat := math.Sin((lat2 - lat1) / 2)
	sinLon := math.Sin((lon2 - lon1) / 2)

	a := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon

	return 2 * earthRadiusMetres * math.Asin(math.Sqrt(a))
}

// DistanceFromLine returns the distance in metres between the location and its
// closest point on the line segment between a & b
// Shameless taken 'inspiration' from https://stackoverflow.com/a/6853926
func (l *Location) DistanceFromLine(a Location, b Location) float64 {
	A := l.Coordinates[0] - a.Coordinates[0]
	B := l.Coordinates[1] - a.Coordinates[1]
	C := b.Coordinates[0] - a.Coordinates[0]
	D := b.Coordinates[1] - a.Coordinates[1]

	dot := A*C + B*D
	len_sq := C*C + D*D

	var param float64
	param = -1
	if len_sq != 0 {
		param = dot / len_sq
	}

	var xx, yy float64

	if param < 0 {
		xx = a.Coordinates[0]
		yy = a.Coordinates[1]
	} else if param > 1 {
		xx = b.Coordinates[0]
		yy = b.Coordinates[1]
	} else {
		xx = a.Coordinates[0] + param*C
		yy = a.Coordinates[1] + param*D
	}

	closest := NewPoint(xx, yy)

	return l.Distance(&closest)
}

// DistanceAlongLine returns how far along the segment between a & b the
// closest point to the location sits, as a fraction between 0 & 1
func (l *Location) DistanceAlongLine(a Location, b Location) float64 {
	A := l.Coordinates[0] - a.Coordinates[0]
	B := l.Coordinates[1] - a.Coordinates[1]
	C := b.Coordinates[0] - a.Coordinates[0]
	D := b.Coordinates[1] - a.Coordinates[1]

	dot := A*C + B*D
	len_sq := C*C + D*D

	if len_sq == 0 {
		return 0
	}

	param := dot / len_sq

	if param < 0 {
		return 0
	} else if param > 1 {
		return 1
	}

	return param
}
