package inference

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync/atomic"
	"testing"

	"go-model-inference/internal/model"

	"github.com/stretchr/testify/require"
)

var testClasses = []string{"Glioma", "Meningioma", "No Tumor", "Pituitary"}

// fakePredictor returns a fixed output vector and records the last input shape
type fakePredictor struct {
	output []float32
	err    error
	calls  atomic.Int32
	shape  atomic.Value
}

func (f *fakePredictor) Predict(ctx context.Context, input model.Tensor) ([]float32, error) {
	f.calls.Add(1)
	f.shape.Store(input.Shape)
	if f.err != nil {
		return nil, f.err
	}
	return append([]float32(nil), f.output...), nil
}

func (f *fakePredictor) Close() error { return nil }

func imageMeta(output model.OutputKind) model.Metadata {
	return model.Metadata{
		InputName:     "input",
		OutputName:    "output",
		InputShape:    []int64{1, 224, 224, 3},
		OutputShape:   []int64{1, 4},
		Output:        output,
		Classes:       testClasses,
		ImageSize:     224,
		Layout:        model.LayoutNHWC,
		Normalization: model.NormalizationUnit,
	}
}

func loaderWith(meta model.Metadata, p model.Predictor) *model.Loader {
	return model.NewLoader(model.LoaderConfig{
		App:      "test",
		Defaults: meta,
		Open: func(path string, m model.Metadata) (model.Predictor, error) {
			return p, nil
		},
	})
}

func absentLoader(meta model.Metadata) *model.Loader {
	return model.NewLoader(model.LoaderConfig{
		App:      "test",
		Defaults: meta,
		Open: func(path string, m model.Metadata) (model.Predictor, error) {
			return nil, errors.New("model file not found")
		},
	})
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 8), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
