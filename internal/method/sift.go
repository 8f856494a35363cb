package method

import (
	"fmt"

	"gocv.io/x/gocv"
)

// FloatDescriptors is a set of 128-dimensional SIFT descriptors.
type FloatDescriptors [][]float32

func (FloatDescriptors) signature() {}

// siftMethod matches images by SIFT descriptors. More robust to scale and
// rotation than ORB, and slower.
type siftMethod struct {
	loweRatio  float64
	minMatches int
	minRatio   float64
}

func (siftMethod) Name() string { return SIFT }

func (siftMethod) Extract(path string) (Signature, error) {
	img := gocv.IMRead(path, gocv.IMReadGrayScale)
	if img.Empty() {
		return nil, fmt.Errorf("read image %q", path)
	}
	defer img.Close()

	sift := gocv.NewSIFT()
	defer sift.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	_, desc := sift.DetectAndCompute(img, mask)
	defer desc.Close()

	if desc.Empty() || desc.Rows() < minDescriptors {
		return nil, errInsufficientFeatures
	}

	data, err := desc.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("descriptor data: %w", err)
	}
	rows, cols := desc.Rows(), desc.Cols()
	out := make(FloatDescriptors, rows)
	for i := 0; i < rows; i++ {
		row := make([]float32, cols)
		copy(row, data[i*cols:(i+1)*cols])
		out[i] = row
	}
	return out, nil
}

// Matches treats a as the cluster seed; see orbMethod.Matches.
func (m siftMethod) Matches(a, b Signature) bool {
	seed := a.(FloatDescriptors)
	cand := b.(FloatDescriptors)
	good := goodFloatMatches(seed, cand, m.loweRatio)
	if good <= m.minMatches {
		return false
	}
	return float64(good)/float64(len(seed)) > m.minRatio
}
