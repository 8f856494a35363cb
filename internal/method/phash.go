package method

import (
	"github.com/corona10/goimagehash"
)

// BitHash is a fixed-width perceptual hash compared by Hamming distance.
type BitHash struct {
	Hash *goimagehash.ImageHash
}

func (BitHash) signature() {}

// phashMethod matches images whose average-hash Hamming distance is at most
// maxDistance. Robust to resizes and light color correction.
type phashMethod struct {
	maxDistance int
}

func (phashMethod) Name() string { return PHash }

func (phashMethod) Extract(path string) (Signature, error) {
	img, err := decodeImage(path)
	if err != nil {
		return nil, err
	}
	h, err := goimagehash.AverageHash(img)
	if err != nil {
		return nil, err
	}
	return BitHash{Hash: h}, nil
}

func (m phashMethod) Matches(a, b Signature) bool {
	d, err := a.(BitHash).Hash.Distance(b.(BitHash).Hash)
	if err != nil {
		return false
	}
	return d <= m.maxDistance
}
