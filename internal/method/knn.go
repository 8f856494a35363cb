package method

import (
	"math"
	"math/bits"
)

// The ratio-test matcher below mirrors OpenCV's brute-force knnMatch with
// k=2: for every query descriptor the two nearest train descriptors are
// found, and the match counts as "good" only when the nearest is markedly
// closer than the runner-up (Lowe's ratio test). Matching runs in-process so
// cached descriptor sets stay plain Go slices.

// goodBinaryMatches counts ratio-test survivors between two sets of binary
// descriptors under Hamming distance. Returns 0 when train has fewer than
// two descriptors, since no runner-up exists to test against.
func goodBinaryMatches(query, train [][]uint8, loweRatio float64) int {
	if len(train) < 2 {
		return 0
	}
	good := 0
	for _, q := range query {
		best, second := math.MaxInt, math.MaxInt
		for _, t := range train {
			d := hamming(q, t)
			if d < best {
				best, second = d, best
			} else if d < second {
				second = d
			}
		}
		if float64(best) < loweRatio*float64(second) {
			good++
		}
	}
	return good
}

// goodFloatMatches is the Euclidean-distance counterpart for float
// descriptors.
func goodFloatMatches(query, train [][]float32, loweRatio float64) int {
	if len(train) < 2 {
		return 0
	}
	good := 0
	for _, q := range query {
		best, second := math.Inf(1), math.Inf(1)
		for _, t := range train {
			d := sqDist(q, t)
			if d < best {
				best, second = d, best
			} else if d < second {
				second = d
			}
		}
		if math.Sqrt(best) < loweRatio*math.Sqrt(second) {
			good++
		}
	}
	return good
}

func hamming(a, b []uint8) int {
	d := 0
	for i := range a {
		d += bits.OnesCount8(a[i] ^ b[i])
	}
	return d
}

func sqDist(a, b []float32) float64 {
	var s float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		s += d * d
	}
	return s
}
