package model

import "context"

// Tensor is a dense float32 input with its shape, batch dimension included
type Tensor struct {
	Shape []int64
	Data  []float32
}

// Size returns the number of elements the shape describes
func (t Tensor) Size() int {
	if len(t.Shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range t.Shape {
		n *= int(d)
	}
	return n
}

// Predictor runs one forward pass. Implementations must be safe for concurrent use.
type Predictor interface {
	Predict(ctx context.Context, input Tensor) ([]float32, error)
	Close() error
}

// Layout is the order of the image tensor dimensions
type Layout string

const (
	LayoutNCHW Layout = "NCHW"
	LayoutNHWC Layout = "NHWC"
)

// Normalization selects how 8-bit pixel values are scaled
type Normalization string

const (
	// NormalizationImageNet subtracts the ImageNet channel mean and divides by its std
	NormalizationImageNet Normalization = "imagenet"
	// NormalizationUnit divides by 255
	NormalizationUnit Normalization = "unit"
)

// OutputKind describes what the model's output vector holds
type OutputKind string

const (
	OutputLogits        OutputKind = "logits"
	OutputProbabilities OutputKind = "probabilities"
)
