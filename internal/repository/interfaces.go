package repository

import (
	"context"
)

// ImageRepository defines the interface for remote image access
type ImageRepository interface {
	// ValidateImageURL validates if the provided URL may be fetched
	ValidateImageURL(imageURL string) error

	// FetchImage validates imageURL and retrieves the raw image bytes
	FetchImage(ctx context.Context, imageURL string) ([]byte, error)
}
