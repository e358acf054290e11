package sample

// DownsamplePoints reduces points to at most maxPoints by decimation for display.
// Destination-based: dst is reused when it has enough capacity, otherwise a new
// slice is allocated. The returned slice holds the result.
func DownsamplePoints(dst []Point, points []Point, maxPoints int) []Point {
	if len(points) <= maxPoints {
		if cap(dst) >= len(points) {
			dst = dst[:len(points)]
			copy(dst, points)
			return dst
		}
		result := make([]Point, len(points))
		copy(result, points)
		return result
	}

	if cap(dst) >= maxPoints {
		dst = dst[:0]
	} else {
		dst = make([]Point, 0, maxPoints)
	}

	step := float64(len(points)) / float64(maxPoints)
	for i := range maxPoints {
		idx := int(float64(i) * step)
		if idx < len(points) {
			dst = append(dst, points[idx])
		}
	}

	return dst
}
