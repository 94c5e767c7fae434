package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	apperrors "go-model-inference/internal/errors"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// BlobFetcher reads images from an Azure storage account
type BlobFetcher struct {
	client   *azblob.Client
	host     string
	maxBytes int64
}

// NewAzureStorage creates a blob fetcher authenticated with a shared key
func NewAzureStorage(accountName, accountKey string, maxBytes int64) (*BlobFetcher, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid azure credentials: %w", err)
	}

	host := AccountHost(accountName)
	client, err := azblob.NewClientWithSharedKeyCredential("https://"+host, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure client: %w", err)
	}

	if maxBytes <= 0 {
		maxBytes = defaultMaxImageSize
	}
	return &BlobFetcher{client: client, host: host, maxBytes: maxBytes}, nil
}

// AccountHost is the blob endpoint host for an account
func AccountHost(accountName string) string {
	return fmt.Sprintf("%s.blob.core.windows.net", accountName)
}

// Host returns the endpoint host this fetcher serves
func (s *BlobFetcher) Host() string {
	return s.host
}

// FetchImage downloads https://<account>.blob.core.windows.net/<container>/<blob>
func (s *BlobFetcher) FetchImage(ctx context.Context, blobURL string) ([]byte, error) {
	containerName, blobName, err := ParseBlobURL(blobURL)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.DownloadStream(ctx, containerName, blobName, nil)
	if err != nil {
		return nil, apperrors.NewNetworkError("blob download failed", err)
	}
	body := resp.Body
	defer body.Close()

	if resp.ContentLength != nil && *resp.ContentLength > s.maxBytes {
		return nil, tooLarge(s.maxBytes)
	}
	return readCapped(body, s.maxBytes)
}

// ParseBlobURL splits a blob URL path into container and blob name
func ParseBlobURL(blobURL string) (string, string, error) {
	u, err := url.Parse(blobURL)
	if err != nil {
		return "", "", apperrors.NewValidationError("invalid blob URL", err)
	}

	parts := strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", apperrors.NewValidationError(
			fmt.Sprintf("blob URL %q must name a container and a blob", blobURL), nil)
	}
	return parts[0], parts[1], nil
}
