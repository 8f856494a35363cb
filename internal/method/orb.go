package method

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// minDescriptors is the floor below which a feature-based signature is too
// sparse to compare meaningfully.
const minDescriptors = 10

// errInsufficientFeatures marks images with too few keypoints for
// descriptor matching (flat gradients, tiny images).
var errInsufficientFeatures = errors.New("insufficient features")

// BinaryDescriptors is a set of 32-byte ORB descriptors.
type BinaryDescriptors [][]uint8

func (BinaryDescriptors) signature() {}

// orbMethod matches images by ORB keypoint descriptors. Good for cropped,
// rotated, or partially obscured duplicates.
type orbMethod struct {
	loweRatio  float64
	minMatches int
	minRatio   float64
}

func (orbMethod) Name() string { return ORB }

func (orbMethod) Extract(path string) (Signature, error) {
	img := gocv.IMRead(path, gocv.IMReadGrayScale)
	if img.Empty() {
		return nil, fmt.Errorf("read image %q", path)
	}
	defer img.Close()

	orb := gocv.NewORBWithParams(500, 1.2, 8, 31, 0, 2, gocv.ORBScoreTypeHarris, 31, 20)
	defer orb.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	_, desc := orb.DetectAndCompute(img, mask)
	defer desc.Close()

	if desc.Empty() || desc.Rows() < minDescriptors {
		return nil, errInsufficientFeatures
	}

	data, err := desc.DataPtrUint8()
	if err != nil {
		return nil, fmt.Errorf("descriptor data: %w", err)
	}
	rows, cols := desc.Rows(), desc.Cols()
	out := make(BinaryDescriptors, rows)
	for i := 0; i < rows; i++ {
		row := make([]uint8, cols)
		copy(row, data[i*cols:(i+1)*cols])
		out[i] = row
	}
	return out, nil
}

// Matches treats a as the cluster seed: the good-match ratio is measured
// against the seed's descriptor count.
func (m orbMethod) Matches(a, b Signature) bool {
	seed := a.(BinaryDescriptors)
	cand := b.(BinaryDescriptors)
	good := goodBinaryMatches(seed, cand, m.loweRatio)
	if good <= m.minMatches {
		return false
	}
	return float64(good)/float64(len(seed)) > m.minRatio
}
