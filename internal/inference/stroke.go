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

// ErrorRiskPrediction is the label used by error-shaped stroke responses
const ErrorRiskPrediction = "Error processing request"

// StrokeAssessorConfig wires a StrokeAssessor
type StrokeAssessorConfig struct {
	App              string
	Loader           *model.Loader
	Policy           Policy
	Events           observer.Subject
	InferenceTimeout time.Duration
}

// StrokeAssessor scores tabular stroke inputs with the model, or with the
// rule-based heuristic when the model path fails.
type StrokeAssessor struct {
	app              string
	loader           *model.Loader
	policy           Policy
	events           observer.Subject
	inferenceTimeout time.Duration
	now              func() time.Time
}

// NewStrokeAssessor creates an assessor
func NewStrokeAssessor(cfg StrokeAssessorConfig) (*StrokeAssessor, error) {
	if cfg.Loader == nil {
		return nil, fmt.Errorf("stroke assessor %s: loader is required", cfg.App)
	}
	if cfg.Events == nil {
		cfg.Events = observer.NewEventPublisher()
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicySynthesize
	}
	return &StrokeAssessor{
		app:              cfg.App,
		loader:           cfg.Loader,
		policy:           cfg.Policy,
		events:           cfg.Events,
		inferenceTimeout: cfg.InferenceTimeout,
		now:              time.Now,
	}, nil
}

// App returns the app name the assessor serves
func (s *StrokeAssessor) App() string {
	return s.app
}

// ModelStatus reports whether the model is loaded and, if not, why
func (s *StrokeAssessor) ModelStatus() (bool, error) {
	h := s.loader.Load()
	return h.Available(), h.Err()
}

// Score is the honest path: the model's stroke probability for a record
func (s *StrokeAssessor) Score(ctx context.Context, record preprocess.StrokeRecord) (float64, error) {
	h := s.loader.Load()
	if !h.Available() {
		return 0, h.Err()
	}
	meta := h.Metadata()

	tensor, err := preprocess.EncodeStroke(record, meta)
	if err != nil {
		return 0, apperrors.NewInferenceError("failed to encode record", err)
	}

	if s.inferenceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.inferenceTimeout)
		defer cancel()
	}

	raw, err := h.Predictor().Predict(ctx, tensor)
	if err != nil {
		return 0, apperrors.NewInferenceError("model forward pass failed", err)
	}

	p, err := positiveProbability(raw, meta.Output)
	if err != nil {
		return 0, apperrors.NewInferenceError("unexpected model output", err)
	}
	return p, nil
}

// Assess defaults the input, scores it and never fails. Risk factors come
// from the raw input on every path.
func (s *StrokeAssessor) Assess(ctx context.Context, in preprocess.StrokeInput) *models.StrokePrediction {
	start := s.now()
	record := in.WithDefaults()
	factors := RiskFactors(record)

	p, err := s.Score(ctx, record)
	if err != nil {
		return s.degrade(ctx, err, record, factors, start)
	}

	resp := &models.StrokePrediction{
		Probability:      p,
		Prediction:       RiskLevel(p),
		StrokePrediction: StrokePredicted(p),
		RiskFactors:      factors,
		ExecutionTimeMs:  s.elapsedMs(start),
	}
	s.events.NotifyObservers(ctx, observer.InferenceEvent{
		EventType: observer.PredictionCompleted,
		App:       s.app,
		Source:    SourceForm,
		Duration:  s.now().Sub(start),
		Success:   true,
		Metadata: map[string]interface{}{
			"probability": p,
			"risk_level":  resp.Prediction,
		},
	})
	return resp
}

// Degrade builds the failure-path response for in without consulting the model
func (s *StrokeAssessor) Degrade(ctx context.Context, err error, in preprocess.StrokeInput) *models.StrokePrediction {
	record := in.WithDefaults()
	return s.degrade(ctx, err, record, RiskFactors(record), s.now())
}

func (s *StrokeAssessor) degrade(ctx context.Context, err error, record preprocess.StrokeRecord, factors []string, start time.Time) *models.StrokePrediction {
	s.events.NotifyObservers(ctx, observer.InferenceEvent{
		EventType:    observer.PredictionDegraded,
		App:          s.app,
		Source:       SourceForm,
		Duration:     s.now().Sub(start),
		ErrorType:    string(apperrors.TypeOf(err)),
		ErrorMessage: err.Error(),
		Metadata:     map[string]interface{}{"policy": string(s.policy)},
	})

	if s.policy == PolicyReport {
		return &models.StrokePrediction{
			Probability:      0,
			Prediction:       ErrorRiskPrediction,
			StrokePrediction: 0,
			RiskFactors:      factors,
			ExecutionTimeMs:  s.elapsedMs(start),
			Error:            err.Error(),
		}
	}

	p := HeuristicProbability(record)
	return &models.StrokePrediction{
		Probability:      p,
		Prediction:       RiskLevel(p),
		StrokePrediction: StrokePredicted(p),
		RiskFactors:      factors,
		ExecutionTimeMs:  s.elapsedMs(start),
		Fallback:         true,
		Error:            err.Error(),
	}
}

func (s *StrokeAssessor) elapsedMs(start time.Time) float64 {
	return float64(s.now().Sub(start).Microseconds()) / 1000
}
