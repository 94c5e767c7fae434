package container

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"go-model-inference/internal/config"
	apperrors "go-model-inference/internal/errors"
	"go-model-inference/internal/factory"
	"go-model-inference/internal/inference"
	"go-model-inference/internal/logger"
	"go-model-inference/internal/model"
	"go-model-inference/internal/observer"
	"go-model-inference/internal/repository"
	"go-model-inference/internal/storage"
	"go-model-inference/internal/transport"
	"go-model-inference/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	profile    factory.Profile
	loader     *model.Loader
	events     observer.Subject
	fetcher    storage.ImageFetcher
	classifier *inference.ImageClassifier
	assessor   *inference.StrokeAssessor
	handler    http.Handler
}

// Option customizes container construction
type Option func(*options)

type options struct {
	open model.OpenFunc
}

// WithModelOpener replaces the ONNX runtime, mainly for tests
func WithModelOpener(open model.OpenFunc) Option {
	return func(o *options) {
		o.open = open
	}
}

// NewContainer builds the dependency graph for one app and loads its model
func NewContainer(cfg *config.Config, kind factory.AppKind, opts ...Option) (*Container, error) {
	profile, err := factory.ProfileFor(kind)
	if err != nil {
		return nil, err
	}

	o := options{open: model.OpenONNX(cfg.ONNXRuntimeLib)}
	for _, opt := range opts {
		opt(&o)
	}

	events := observer.NewEventPublisher()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(observer.NewMetricsObserver())

	modelPath := cfg.ModelPath
	if modelPath == "" {
		modelPath = profile.DefaultModelPath
	}
	loader := model.NewLoader(model.LoaderConfig{
		App:          string(kind),
		ModelPath:    modelPath,
		MetadataPath: cfg.ModelMetadataPath,
		Defaults:     profile.Defaults,
		Open:         o.open,
	})
	publishModelStatus(events, string(kind), modelPath, loader.Load())

	c := &Container{
		profile: profile,
		loader:  loader,
		events:  events,
	}

	policy := inference.Policy(cfg.FallbackPolicy)
	handlerOpts := transport.Options{
		App:         string(kind),
		Title:       profile.Title,
		Config:      cfg,
		LegacyRoute: profile.LegacyRoute,
		TextReport:  profile.TextReport,
	}

	if profile.Tabular() {
		c.assessor, err = inference.NewStrokeAssessor(inference.StrokeAssessorConfig{
			App:              string(kind),
			Loader:           loader,
			Policy:           policy,
			Events:           events,
			InferenceTimeout: cfg.InferenceTimeout,
		})
		if err != nil {
			return nil, err
		}
		handlerOpts.Assessor = c.assessor
	} else {
		validator := validation.NewURLValidatorWithOptions(nil, cfg.AllowedFetchHosts)
		c.fetcher, err = factory.NewStorageFactory().CreateFetcher(cfg, storage.WithRedirectPolicy(func(u *url.URL) error {
			return validator.ValidateImageURL(u.String())
		}))
		if err != nil {
			return nil, err
		}
		c.classifier, err = inference.NewImageClassifier(inference.ImageClassifierConfig{
			App:              string(kind),
			Loader:           loader,
			Fallback:         inference.NewFallbackGenerator(cfg.FallbackSeed),
			Policy:           policy,
			Events:           events,
			InferenceTimeout: cfg.InferenceTimeout,
		})
		if err != nil {
			return nil, err
		}
		handlerOpts.Classifier = c.classifier
		handlerOpts.Images = repository.NewRemoteImageRepository(string(kind), c.fetcher, validator, events)
	}

	c.handler = transport.NewHandler(handlerOpts)
	return c, nil
}

func publishModelStatus(events observer.Subject, app, path string, h *model.Handle) {
	event := observer.InferenceEvent{
		App:      app,
		Success:  h.Available(),
		Metadata: map[string]interface{}{"model_path": path},
	}
	if h.Available() {
		event.EventType = observer.ModelLoaded
	} else {
		event.EventType = observer.ModelUnavailable
		if err := h.Err(); err != nil {
			event.ErrorMessage = err.Error()
			event.ErrorType = string(apperrors.TypeOf(err))
		}
	}
	events.NotifyObservers(context.Background(), event)
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Profile returns the app profile
func (c *Container) Profile() factory.Profile {
	return c.profile
}

// Close releases the loaded model
func (c *Container) Close() error {
	if err := c.loader.Load().Close(); err != nil {
		return fmt.Errorf("failed to release model: %w", err)
	}
	return nil
}
