package model

import (
	"context"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	envOnce sync.Once
	envErr  error
)

// initEnvironment initializes the process-wide ONNX runtime exactly once
func initEnvironment(libPath string) error {
	envOnce.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			envErr = fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	})
	return envErr
}

// onnxPredictor wraps a dynamic session; tensors are created per call so
// concurrent Predict calls share nothing but the session itself.
type onnxPredictor struct {
	session     *ort.DynamicAdvancedSession
	outputShape ort.Shape
}

// OpenONNX returns an OpenFunc backed by onnxruntime, using the shared
// library at libPath (empty means the platform default).
func OpenONNX(libPath string) OpenFunc {
	return func(path string, meta Metadata) (Predictor, error) {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("model artifact: %w", err)
		}
		if err := initEnvironment(libPath); err != nil {
			return nil, err
		}

		session, err := ort.NewDynamicAdvancedSession(path,
			[]string{meta.InputName}, []string{meta.OutputName}, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create ONNX session: %w", err)
		}

		return &onnxPredictor{
			session:     session,
			outputShape: ort.NewShape(meta.OutputShape...),
		}, nil
	}
}

func (p *onnxPredictor) Predict(ctx context.Context, input Tensor) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(input.Data) != input.Size() {
		return nil, fmt.Errorf("input has %d values, shape %v wants %d", len(input.Data), input.Shape, input.Size())
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(input.Shape...), input.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputTensor, err := ort.NewEmptyTensor[float32](p.outputShape)
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	if err := p.session.Run([]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor}); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	out := make([]float32, len(outputTensor.GetData()))
	copy(out, outputTensor.GetData())
	return out, nil
}

func (p *onnxPredictor) Close() error {
	if p.session == nil {
		return nil
	}
	return p.session.Destroy()
}
