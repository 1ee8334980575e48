package spatial

import "sort"

// Base32 encoding for geohash
const base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

// Geohash precision stored with every attraction row
const AttractionGeohashPrecision = 7

// EncodeGeohash encodes latitude and longitude into a geohash string
// precision: number of characters in the geohash (1-12)
func EncodeGeohash(lat, lon float64, precision int) string {
	if precision < 1 {
		precision = 1
	}
	if precision > 12 {
		precision = 12
	}

	latRange := [2]float64{-90.0, 90.0}
	lonRange := [2]float64{-180.0, 180.0}

	geohash := make([]byte, 0, precision)
	bits, ch := 0, 0
	for bit := 0; len(geohash) < precision; bit++ {
		// even bits refine longitude, odd bits latitude
		r, v := &lonRange, lon
		if bit%2 == 1 {
			r, v = &latRange, lat
		}
		mid := (r[0] + r[1]) / 2
		if v > mid {
			ch |= 1 << (4 - bits)
			r[0] = mid
		} else {
			r[1] = mid
		}

		bits++
		if bits == 5 {
			geohash = append(geohash, base32[ch])
			bits, ch = 0, 0
		}
	}

	return string(geohash)
}

// GeohashBounds returns the bounding box of a geohash cell
// Returns (minLat, minLon, maxLat, maxLon)
func GeohashBounds(geohash string) (float64, float64, float64, float64) {
	latRange := [2]float64{-90.0, 90.0}
	lonRange := [2]float64{-180.0, 180.0}

	isLon := true
	for i := 0; i < len(geohash); i++ {
		idx := indexOfBase32(geohash[i])
		if idx == -1 {
			continue
		}
		for mask := 16; mask > 0; mask >>= 1 {
			r := &latRange
			if isLon {
				r = &lonRange
			}
			mid := (r[0] + r[1]) / 2
			if idx&mask != 0 {
				r[0] = mid
			} else {
				r[1] = mid
			}
			isLon = !isLon
		}
	}

	return latRange[0], lonRange[0], latRange[1], lonRange[1]
}

// DecodeGeohash returns the center point of the geohash cell
func DecodeGeohash(geohash string) (lat, lon float64) {
	minLat, minLon, maxLat, maxLon := GeohashBounds(geohash)
	return (minLat + maxLat) / 2, (minLon + maxLon) / 2
}

// GeohashNeighbors returns the 8 neighboring geohash cells
func GeohashNeighbors(geohash string) []string {
	lat, lon := DecodeGeohash(geohash)
	precision := len(geohash)

	minLat, minLon, maxLat, maxLon := GeohashBounds(geohash)
	latDelta := maxLat - minLat
	lonDelta := maxLon - minLon

	neighbors := make([]string, 0, 8)
	for dLat := -1; dLat <= 1; dLat++ {
		for dLon := -1; dLon <= 1; dLon++ {
			if dLat == 0 && dLon == 0 {
				continue
			}
			newLat := clamp(lat+float64(dLat)*latDelta, -90, 90)
			newLon := lon + float64(dLon)*lonDelta
			if newLon > 180 {
				newLon -= 360
			}
			if newLon < -180 {
				newLon += 360
			}
			neighbors = append(neighbors, EncodeGeohash(newLat, newLon, precision))
		}
	}

	return neighbors
}

// GeohashCover returns the distinct geohash prefixes whose cells cover a
// circle of radiusKm around (lat, lon): the center cell plus its neighbors,
// at the finest precision whose cell is at least as wide as the radius.
func GeohashCover(lat, lon, radiusKm float64) []string {
	precision := GeohashPrecisionForDistance(radiusKm * 1000)
	center := EncodeGeohash(lat, lon, precision)

	seen := map[string]bool{center: true}
	cells := []string{center}
	for _, n := range GeohashNeighbors(center) {
		if !seen[n] {
			seen[n] = true
			cells = append(cells, n)
		}
	}
	sort.Strings(cells)
	return cells
}

// GeohashCellSize returns the approximate cell size in meters for a given precision
func GeohashCellSize(precision int) float64 {
	// Approximate cell sizes at equator
	sizes := map[int]float64{
		1:  5000000,
		2:  625000,
		3:  123000,
		4:  19500,
		5:  3900,
		6:  610,
		7:  120,
		8:  19,
		9:  3.7,
		10: 0.6,
		11: 0.12,
		12: 0.019,
	}

	if size, ok := sizes[precision]; ok {
		return size
	}
	return 0
}

// GeohashPrecisionForDistance returns the finest precision whose cell is
// still at least distanceMeters wide
func GeohashPrecisionForDistance(distanceMeters float64) int {
	for precision := 12; precision >= 1; precision-- {
		if GeohashCellSize(precision) >= distanceMeters {
			return precision
		}
	}
	return 1
}

func indexOfBase32(ch byte) int {
	for i := 0; i < len(base32); i++ {
		if base32[i] == ch {
			return i
		}
	}
	return -1
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
