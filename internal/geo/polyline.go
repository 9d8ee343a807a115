package geo

// DecodePolyline converts an encoded polyline string to a slice of [lat, lng]
// coordinates using the Google Encoded Polyline Algorithm Format at the standard
// 1e-5 precision.
func DecodePolyline(encoded string) [][2]float64 {
	return DecodePolylineWithPrecision(encoded, 1e-5)
}

// DecodePolylineWithPrecision decodes a polyline with a custom precision factor.
// Providers that encode with a 1,000,000 multiplier need 1e-6.
func DecodePolylineWithPrecision(encoded string, precision float64) [][2]float64 {
	var points [][2]float64
	index, lat, lng := 0, 0, 0

	for index < len(encoded) {
		shift, result := 0, 0
		for {
			if index >= len(encoded) {
				return points
			}
			b := int(encoded[index]) - 63
			index++
			result |= (b & 0x1f) << shift
			shift += 5
			if b < 0x20 {
				break
			}
		}

		delta := result >> 1
		if result&1 != 0 {
			delta = ^delta
		}
		lat += delta

		shift, result = 0, 0
		for {
			if index >= len(encoded) {
				return points
			}
			b := int(encoded[index]) - 63
			index++
			result |= (b & 0x1f) << shift
			shift += 5
			if b < 0x20 {
				break
			}
		}

		delta = result >> 1
		if result&1 != 0 {
			delta = ^delta
		}
		lng += delta

		points = append(points, [2]float64{float64(lat) * precision, float64(lng) * precision})
	}

	return points
}
