package storage

import (
	"context"
	"net/url"
	"strings"
)

// RoutingFetcher sends blob-account URLs to Azure and everything else over HTTP
type RoutingFetcher struct {
	web   ImageFetcher
	blobs ImageFetcher
	host  string
}

// NewRoutingFetcher creates a router; blobs may be nil
func NewRoutingFetcher(web ImageFetcher, blobs ImageFetcher, blobHost string) *RoutingFetcher {
	return &RoutingFetcher{web: web, blobs: blobs, host: strings.ToLower(blobHost)}
}

// FetchImage implements ImageFetcher
func (r *RoutingFetcher) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	if r.blobs != nil && r.host != "" {
		if u, err := url.Parse(imageURL); err == nil && strings.EqualFold(u.Hostname(), r.host) {
			return r.blobs.FetchImage(ctx, imageURL)
		}
	}
	return r.web.FetchImage(ctx, imageURL)
}
