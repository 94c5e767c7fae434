package inference

import (
	"context"
	"fmt"
	"time"

	apperrors "go-model-inference/internal/errors"
	"go-model-inference/internal/model"
	"go-model-inference/internal/observer"
	"go-model-inference/internal/preprocess"
	"go-model-inference/pkg/models"
)

// Policy decides what a failed prediction turns into
type Policy string

const (
	// PolicySynthesize answers failures with a flagged, plausible-looking result
	PolicySynthesize Policy = "synthesize"
	// PolicyReport answers failures with an error-shaped body
	PolicyReport Policy = "report"
)

// ErrorPrediction is the label used by error-shaped image responses
const ErrorPrediction = "Error processing image"

// Sources of an image payload, used to tag events
const (
	SourceUpload = "upload"
	SourceURL    = "url"
	SourceForm   = "form"
)

// ImageClassifierConfig wires an ImageClassifier
type ImageClassifierConfig struct {
	App              string
	Loader           *model.Loader
	Fallback         *FallbackGenerator
	Policy           Policy
	Events           observer.Subject
	InferenceTimeout time.Duration
}

// ImageClassifier runs the decode → normalize → forward → argmax pipeline for
// one image model and applies the fallback policy on failure.
type ImageClassifier struct {
	app              string
	loader           *model.Loader
	fallback         *FallbackGenerator
	policy           Policy
	events           observer.Subject
	inferenceTimeout time.Duration
}

// NewImageClassifier validates the wiring and creates a classifier
func NewImageClassifier(cfg ImageClassifierConfig) (*ImageClassifier, error) {
	if cfg.Loader == nil {
		return nil, fmt.Errorf("image classifier %s: loader is required", cfg.App)
	}
	if len(cfg.Loader.Load().Metadata().Classes) == 0 {
		return nil, fmt.Errorf("image classifier %s: no classes configured", cfg.App)
	}
	if cfg.Fallback == nil {
		cfg.Fallback = NewFallbackGenerator(0)
	}
	if cfg.Events == nil {
		cfg.Events = observer.NewEventPublisher()
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicySynthesize
	}
	return &ImageClassifier{
		app:              cfg.App,
		loader:           cfg.Loader,
		fallback:         cfg.Fallback,
		policy:           cfg.Policy,
		events:           cfg.Events,
		inferenceTimeout: cfg.InferenceTimeout,
	}, nil
}

// App returns the app name the classifier serves
func (c *ImageClassifier) App() string {
	return c.app
}

// Classes returns the ordered class names
func (c *ImageClassifier) Classes() []string {
	return c.loader.Load().Metadata().Classes
}

// ModelStatus reports whether the model is loaded and, if not, why
func (c *ImageClassifier) ModelStatus() (bool, error) {
	h := c.loader.Load()
	return h.Available(), h.Err()
}

// Classify is the honest path: it returns the model's classification or the
// typed error that prevented one.
func (c *ImageClassifier) Classify(ctx context.Context, data []byte) (Classification, error) {
	h := c.loader.Load()
	if !h.Available() {
		return Classification{}, h.Err()
	}
	meta := h.Metadata()

	tensor, err := preprocess.ImageTensor(data, preprocess.SpecFromMetadata(meta))
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeDecode) {
			return Classification{}, err
		}
		return Classification{}, apperrors.NewInferenceError("preprocessing failed", err)
	}

	if c.inferenceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.inferenceTimeout)
		defer cancel()
	}

	raw, err := h.Predictor().Predict(ctx, tensor)
	if err != nil {
		return Classification{}, apperrors.NewInferenceError("model forward pass failed", err)
	}

	result, err := classify(raw, meta.Classes, meta.Output)
	if err != nil {
		return Classification{}, apperrors.NewInferenceError("unexpected model output", err)
	}
	return result, nil
}

// Predict classifies data and never fails: errors are routed through the
// fallback policy.
func (c *ImageClassifier) Predict(ctx context.Context, data []byte, source string) *models.ImagePrediction {
	start := time.Now()

	result, err := c.Classify(ctx, data)
	if err != nil {
		return c.Degrade(ctx, err, source, start)
	}

	c.events.NotifyObservers(ctx, observer.InferenceEvent{
		EventType: observer.PredictionCompleted,
		App:       c.app,
		Source:    source,
		Duration:  time.Since(start),
		Success:   true,
		Metadata: map[string]interface{}{
			"prediction": result.Label,
			"confidence": result.Confidence,
		},
	})
	return c.response(result)
}

// Degrade turns a failure from any stage (including fetching the input)
// into a schema-valid response according to the policy.
func (c *ImageClassifier) Degrade(ctx context.Context, err error, source string, start time.Time) *models.ImagePrediction {
	c.events.NotifyObservers(ctx, observer.InferenceEvent{
		EventType:    observer.PredictionDegraded,
		App:          c.app,
		Source:       source,
		Duration:     time.Since(start),
		ErrorType:    string(apperrors.TypeOf(err)),
		ErrorMessage: err.Error(),
		Metadata:     map[string]interface{}{"policy": string(c.policy)},
	})

	if c.policy == PolicyReport {
		return &models.ImagePrediction{
			Prediction: ErrorPrediction,
			Confidence: 0,
			Error:      err.Error(),
		}
	}

	resp := c.response(c.fallback.Classification(c.Classes()))
	resp.Fallback = true
	resp.Error = err.Error()
	return resp
}

func (c *ImageClassifier) response(result Classification) *models.ImagePrediction {
	classes := c.Classes()
	probs := make(map[string]float64, len(classes))
	for i, p := range result.Probabilities {
		probs[classes[i]] = p
	}
	return &models.ImagePrediction{
		Prediction:    result.Label,
		Confidence:    result.Confidence,
		Probabilities: probs,
	}
}
