package inference

import (
	"fmt"
	"math"

	"go-model-inference/internal/model"
)

// Classification is a multi-class result: the argmax label, its probability,
// and one probability per class in class order.
type Classification struct {
	Label         string
	Index         int
	Confidence    float64
	Probabilities []float64
}

// probabilitySumTolerance bounds how far a "probabilities" output may drift
// from 1 before it is renormalized
const probabilitySumTolerance = 1e-6

// classify maps a raw output vector onto classes
func classify(raw []float32, classes []string, kind model.OutputKind) (Classification, error) {
	if len(classes) == 0 {
		return Classification{}, fmt.Errorf("no classes configured")
	}
	if len(raw) < len(classes) {
		return Classification{}, fmt.Errorf("model returned %d values for %d classes", len(raw), len(classes))
	}

	probs, err := toProbabilities(raw[:len(classes)], kind)
	if err != nil {
		return Classification{}, err
	}

	idx := argmax(probs)
	return Classification{
		Label:         classes[idx],
		Index:         idx,
		Confidence:    probs[idx],
		Probabilities: probs,
	}, nil
}

func toProbabilities(raw []float32, kind model.OutputKind) ([]float64, error) {
	values := make([]float64, len(raw))
	for i, v := range raw {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("model output %d is not finite", i)
		}
		values[i] = f
	}

	switch kind {
	case model.OutputLogits:
		return softmax(values), nil
	case model.OutputProbabilities:
		return renormalize(values)
	default:
		return nil, fmt.Errorf("unsupported output kind %q", kind)
	}
}

func softmax(logits []float64) []float64 {
	maxLogit := logits[0]
	for _, v := range logits[1:] {
		maxLogit = math.Max(maxLogit, v)
	}

	out := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		out[i] = math.Exp(v - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func renormalize(probs []float64) ([]float64, error) {
	var sum float64
	for i, p := range probs {
		if p < 0 {
			return nil, fmt.Errorf("probability %d is negative", i)
		}
		sum += p
	}
	if sum == 0 {
		return nil, fmt.Errorf("probabilities sum to zero")
	}
	if math.Abs(sum-1) <= probabilitySumTolerance {
		return probs, nil
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs, nil
}

// argmax returns the first index of the largest value
func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}

// positiveProbability reads P(class 1) from a binary classifier output:
// either one value or a two-class vector.
func positiveProbability(raw []float32, kind model.OutputKind) (float64, error) {
	switch len(raw) {
	case 1:
		p := float64(raw[0])
		if kind == model.OutputLogits {
			p = 1 / (1 + math.Exp(-p))
		}
		if math.IsNaN(p) || p < 0 || p > 1 {
			return 0, fmt.Errorf("model output %v is not a probability", raw[0])
		}
		return p, nil
	case 2:
		probs, err := toProbabilities(raw, kind)
		if err != nil {
			return 0, err
		}
		return probs[1], nil
	default:
		return 0, fmt.Errorf("binary model returned %d values", len(raw))
	}
}
