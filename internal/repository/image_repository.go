package repository

import (
	"context"
	"time"

	apperrors "go-model-inference/internal/errors"
	"go-model-inference/internal/observer"
	"go-model-inference/internal/storage"
	"go-model-inference/pkg/validation"
)

// RemoteImageRepository implements ImageRepository on top of a fetcher and
// reports every download as an inference event
type RemoteImageRepository struct {
	app       string
	fetcher   storage.ImageFetcher
	validator *validation.URLValidator
	events    observer.Subject
}

// NewRemoteImageRepository creates a repository; nil validator or events
// mean no host restrictions and no subscribers
func NewRemoteImageRepository(app string, fetcher storage.ImageFetcher, validator *validation.URLValidator, events observer.Subject) ImageRepository {
	if validator == nil {
		validator = validation.NewURLValidator()
	}
	if events == nil {
		events = observer.NewEventPublisher()
	}
	return &RemoteImageRepository{
		app:       app,
		fetcher:   fetcher,
		validator: validator,
		events:    events,
	}
}

// ValidateImageURL validates if the provided URL may be fetched
func (r *RemoteImageRepository) ValidateImageURL(imageURL string) error {
	return r.validator.ValidateImageURL(imageURL)
}

// FetchImage retrieves an image. Validation errors are returned as is;
// download failures are wrapped as decode errors so they take the same
// fallback path as undecodable bytes.
func (r *RemoteImageRepository) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	if err := r.ValidateImageURL(imageURL); err != nil {
		return nil, err
	}

	start := time.Now()
	data, err := r.fetcher.FetchImage(ctx, imageURL)
	event := observer.InferenceEvent{
		EventType: observer.ImageFetched,
		App:       r.app,
		Source:    "url",
		Duration:  time.Since(start),
		Success:   err == nil,
		Metadata:  map[string]interface{}{"url": imageURL},
	}

	if err != nil {
		event.EventType = observer.ImageFetchFailed
		event.ErrorType = string(apperrors.TypeOf(err))
		event.ErrorMessage = err.Error()
		r.events.NotifyObservers(ctx, event)
		return nil, apperrors.NewDecodeError("failed to fetch image", err)
	}

	event.Metadata["bytes"] = len(data)
	r.events.NotifyObservers(ctx, event)
	return data, nil
}
