package method

import (
	"math"

	"github.com/disintegration/imaging"
)

// SSIM constants for 8-bit dynamic range: C1=(0.01*255)^2, C2=(0.03*255)^2.
const (
	ssimC1 = 6.5025
	ssimC2 = 58.5225
)

// ssimSize is the fixed comparison resolution; every image is resampled to
// ssimSize x ssimSize before its statistics are computed.
const ssimSize = 256

// LuminanceStats is a grayscale image together with its Gaussian-windowed
// local mean and variance, precomputed at extraction so each pairwise
// comparison only has to blur the cross term.
type LuminanceStats struct {
	Lum     []float32 // luminance, ssimSize*ssimSize
	Mu      []float32 // local mean: gauss(lum)
	SigmaSq []float32 // local variance: gauss(lum²) - mu²
}

func (LuminanceStats) signature() {}

// ssimMethod matches images whose mean structural similarity exceeds
// minScore.
type ssimMethod struct {
	minScore float64
}

func (ssimMethod) Name() string { return SSIM }

func (ssimMethod) Extract(path string) (Signature, error) {
	img, err := decodeImage(path)
	if err != nil {
		return nil, err
	}
	gray := imaging.Grayscale(imaging.Resize(img, ssimSize, ssimSize, imaging.Lanczos))

	n := ssimSize * ssimSize
	lum := make([]float32, n)
	for i := 0; i < n; i++ {
		lum[i] = float32(gray.Pix[i*4])
	}

	mu := gaussBlur(lum, ssimSize, ssimSize)
	sigmaSq := gaussBlur(mul(lum, lum), ssimSize, ssimSize)
	for i := range sigmaSq {
		sigmaSq[i] -= mu[i] * mu[i]
	}
	return LuminanceStats{Lum: lum, Mu: mu, SigmaSq: sigmaSq}, nil
}

func (m ssimMethod) Matches(a, b Signature) bool {
	return ssimScore(a.(LuminanceStats), b.(LuminanceStats)) > m.minScore
}

// ssimScore is the mean of the per-pixel SSIM map between two precomputed
// luminance statistics.
func ssimScore(x, y LuminanceStats) float64 {
	sigma12 := gaussBlur(mul(x.Lum, y.Lum), ssimSize, ssimSize)

	var sum float64
	for i := range sigma12 {
		mu1, mu2 := float64(x.Mu[i]), float64(y.Mu[i])
		mu1mu2 := mu1 * mu2
		s12 := float64(sigma12[i]) - mu1mu2

		num := (2*mu1mu2 + ssimC1) * (2*s12 + ssimC2)
		den := (mu1*mu1 + mu2*mu2 + ssimC1) * (float64(x.SigmaSq[i]) + float64(y.SigmaSq[i]) + ssimC2)
		sum += num / den
	}
	return sum / float64(len(sigma12))
}

func mul(a, b []float32) []float32 {
	out := make([]float32, len(a))
	for i := range a {
		out[i] = a[i] * b[i]
	}
	return out
}

// gaussKernel11 is an 11-tap Gaussian kernel with sigma 1.5, normalized.
var gaussKernel11 = func() [11]float64 {
	const sigma = 1.5
	var k [11]float64
	var sum float64
	for i := range k {
		d := float64(i - 5)
		k[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}()

// gaussBlur applies the separable 11x11 Gaussian to src, with edges
// reflected (matching OpenCV's default border handling).
func gaussBlur(src []float32, w, h int) []float32 {
	reflect := func(i, n int) int {
		if i < 0 {
			return -i
		}
		if i >= n {
			return 2*n - 2 - i
		}
		return i
	}

	tmp := make([]float32, len(src))
	for y := 0; y < h; y++ {
		row := src[y*w : (y+1)*w]
		for x := 0; x < w; x++ {
			var acc float64
			for k := -5; k <= 5; k++ {
				acc += gaussKernel11[k+5] * float64(row[reflect(x+k, w)])
			}
			tmp[y*w+x] = float32(acc)
		}
	}

	out := make([]float32, len(src))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float64
			for k := -5; k <= 5; k++ {
				acc += gaussKernel11[k+5] * float64(tmp[reflect(y+k, h)*w+x])
			}
			out[y*w+x] = float32(acc)
		}
	}
	return out
}
