package model

import (
	"sync"
	"time"

	apperrors "go-model-inference/internal/errors"
	"go-model-inference/internal/logger"

	"github.com/sirupsen/logrus"
)

// OpenFunc builds a Predictor for the artifact at path
type OpenFunc func(path string, meta Metadata) (Predictor, error)

// LoaderConfig describes where a model lives and how to open it
type LoaderConfig struct {
	App          string
	ModelPath    string
	MetadataPath string
	Defaults     Metadata
	Open         OpenFunc
}

// Handle is the in-memory reference to a loaded predictor, or an absent
// marker carrying the load failure. It is never mutated after Load returns it.
type Handle struct {
	predictor Predictor
	meta      Metadata
	err       error
}

// Available reports whether a predictor is loaded
func (h *Handle) Available() bool {
	return h != nil && h.predictor != nil
}

// Predictor returns the loaded predictor, or nil when absent
func (h *Handle) Predictor() Predictor {
	return h.predictor
}

// Metadata returns the resolved metadata; for absent handles this is the defaults
func (h *Handle) Metadata() Metadata {
	return h.meta
}

// Err returns the LoadError that left the handle absent
func (h *Handle) Err() error {
	return h.err
}

// Close releases the predictor
func (h *Handle) Close() error {
	if h.predictor == nil {
		return nil
	}
	return h.predictor.Close()
}

// Loader memoizes a single model load for the lifetime of the process
type Loader struct {
	cfg    LoaderConfig
	once   sync.Once
	handle *Handle
}

// NewLoader creates a loader; nothing is read until Load is called
func NewLoader(cfg LoaderConfig) *Loader {
	return &Loader{cfg: cfg}
}

// Load returns the model handle, loading it on the first call only.
// Failures yield an absent handle and are logged, never returned.
func (l *Loader) Load() *Handle {
	l.once.Do(func() {
		l.handle = l.load()
	})
	return l.handle
}

func (l *Loader) load() *Handle {
	start := time.Now()
	log := logger.ForApp(l.cfg.App).WithFields(logrus.Fields{
		"model_path":    l.cfg.ModelPath,
		"metadata_path": l.cfg.MetadataPath,
	})
	log.Info("Loading model")

	meta, err := ReadMetadata(l.cfg.MetadataPath, l.cfg.Defaults)
	if err != nil {
		return l.absent(log, meta, apperrors.NewLoadError("model metadata unavailable", err))
	}
	if err := meta.Validate(); err != nil {
		return l.absent(log, meta, apperrors.NewLoadError("invalid model metadata", err))
	}
	if l.cfg.Open == nil {
		return l.absent(log, meta, apperrors.NewLoadError("no model runtime configured", nil))
	}

	predictor, err := l.cfg.Open(l.cfg.ModelPath, meta)
	if err != nil {
		return l.absent(log, meta, apperrors.NewLoadError("failed to open model", err))
	}

	log.WithField("load_time_ms", time.Since(start).Milliseconds()).Info("Model loaded successfully")
	return &Handle{predictor: predictor, meta: meta}
}

func (l *Loader) absent(log *logrus.Entry, meta Metadata, err error) *Handle {
	log.WithError(err).Error("Model unavailable, predictions will use the fallback path")
	return &Handle{meta: meta, err: err}
}
