package spatial

// Point is a latitude/longitude pair in degrees
type Point struct {
	Lat float64
	Lon float64
}

// PathLength returns the length of the polyline through points in meters
func PathLength(points []Point) float64 {
	if len(points) < 2 {
		return 0
	}

	var total float64
	for i := 1; i < len(points); i++ {
		total += HaversineDistance(points[i-1].Lat, points[i-1].Lon, points[i].Lat, points[i].Lon)
	}
	return total
}
