package method

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// OnnxEmbedder runs a saved ONNX embedding model through OpenCV's DNN
// module. Forward passes are serialised: cv::dnn::Net is not safe for
// concurrent use, so the extraction workers queue on a single net.
type OnnxEmbedder struct {
	mu        sync.Mutex
	net       gocv.Net
	inputSize int
}

// NewOnnxEmbedder loads the model at modelPath. inputSize is the square
// pixel dimension the model expects (e.g. 224).
func NewOnnxEmbedder(modelPath string, inputSize int) (*OnnxEmbedder, error) {
	net := gocv.ReadNet(modelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("load embedding model %q", modelPath)
	}
	return &OnnxEmbedder{net: net, inputSize: inputSize}, nil
}

// Embed loads the image, runs one forward pass, and returns the raw output
// vector.
func (e *OnnxEmbedder) Embed(path string) ([]float32, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		return nil, fmt.Errorf("read image %q", path)
	}
	defer img.Close()

	blob := gocv.BlobFromImage(img, 1.0/255.0,
		image.Pt(e.inputSize, e.inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.net.SetInput(blob, "")
	out := e.net.Forward("")
	defer out.Close()

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("embedding output: %w", err)
	}
	vec := make([]float32, len(data))
	copy(vec, data)
	return vec, nil
}

// Close releases the model.
func (e *OnnxEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.net.Close()
}
