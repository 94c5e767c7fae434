package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	apperrors "go-model-inference/internal/errors"
	"go-model-inference/internal/logger"

	"github.com/sirupsen/logrus"
)

// ImageFetcher downloads the raw bytes of a remote image
type ImageFetcher interface {
	FetchImage(ctx context.Context, imageURL string) ([]byte, error)
}

const (
	defaultFetchTimeout = 15 * time.Second
	defaultMaxImageSize = 10 * 1024 * 1024
	maxFetchAttempts    = 3
)

// HTTPImageFetcher implements ImageFetcher over plain HTTP(S)
type HTTPImageFetcher struct {
	client   *http.Client
	maxBytes int64
	backoff  func(attempt int) time.Duration
	redirect func(*url.URL) error
}

// HTTPOption configures an HTTPImageFetcher
type HTTPOption func(*HTTPImageFetcher)

// WithTimeout bounds each download, including body read
func WithTimeout(d time.Duration) HTTPOption {
	return func(h *HTTPImageFetcher) {
		if d > 0 {
			h.client.Timeout = d
		}
	}
}

// WithMaxBytes caps the accepted image size
func WithMaxBytes(n int64) HTTPOption {
	return func(h *HTTPImageFetcher) {
		if n > 0 {
			h.maxBytes = n
		}
	}
}

// WithRetryBackoff overrides the wait between attempts
func WithRetryBackoff(f func(attempt int) time.Duration) HTTPOption {
	return func(h *HTTPImageFetcher) {
		h.backoff = f
	}
}

// WithRedirectPolicy checks every redirect target before it is followed
func WithRedirectPolicy(f func(*url.URL) error) HTTPOption {
	return func(h *HTTPImageFetcher) {
		h.redirect = f
	}
}

// NewHTTPImageFetcher creates an HTTP image fetcher
func NewHTTPImageFetcher(opts ...HTTPOption) *HTTPImageFetcher {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,
	}

	h := &HTTPImageFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   defaultFetchTimeout,
		},
		maxBytes: defaultMaxImageSize,
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt+1) * time.Second
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.client.CheckRedirect = h.checkRedirect
	return h
}

func (h *HTTPImageFetcher) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= 3 {
		return fmt.Errorf("too many redirects (limit: 3)")
	}
	if h.redirect == nil {
		return nil
	}
	if err := h.redirect(req.URL); err != nil {
		return apperrors.NewValidationError("redirect rejected", err)
	}
	return nil
}

// FetchImage downloads imageURL. 5xx responses and transport errors are
// retried up to three times; 4xx responses are not.
func (h *HTTPImageFetcher) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < maxFetchAttempts; attempt++ {
		data, retryable, err := h.fetchOnce(ctx, imageURL)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !retryable || attempt == maxFetchAttempts-1 {
			break
		}

		logger.WithFields(logrus.Fields{
			"url":     imageURL,
			"attempt": attempt + 1,
			"error":   err.Error(),
		}).Warn("Image fetch failed, retrying")

		select {
		case <-ctx.Done():
			return nil, apperrors.NewTimeoutError("image fetch cancelled", ctx.Err())
		case <-time.After(h.backoff(attempt)):
		}
	}

	return nil, lastErr
}

func (h *HTTPImageFetcher) fetchOnce(ctx context.Context, imageURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, false, apperrors.NewValidationError("invalid URL", err)
	}
	req.Header.Set("Accept", "image/jpeg, image/png, image/webp, image/gif, */*")
	req.Header.Set("User-Agent", "Go-Model-Inference/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, false, apperrors.NewTimeoutError("image fetch timed out", err)
		}
		if apperrors.IsType(err, apperrors.ErrorTypeValidation) {
			return nil, false, err
		}
		return nil, true, apperrors.NewNetworkError("image fetch failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, false, apperrors.NewNetworkError(
			fmt.Sprintf("client error: status code %d", resp.StatusCode), nil)
	case resp.StatusCode >= 500:
		return nil, true, apperrors.NewNetworkError(
			fmt.Sprintf("server error: status code %d", resp.StatusCode), nil)
	case resp.StatusCode != http.StatusOK:
		return nil, false, apperrors.NewNetworkError(
			fmt.Sprintf("unexpected status code %d", resp.StatusCode), nil)
	}

	if resp.ContentLength > h.maxBytes {
		return nil, false, tooLarge(h.maxBytes)
	}

	data, err := readCapped(resp.Body, h.maxBytes)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, false, apperrors.NewTimeoutError("image download timed out", err)
		}
		return nil, false, err
	}
	return data, false, nil
}

// readCapped reads at most max bytes and fails if the stream is longer
func readCapped(r io.Reader, max int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to read image body", err)
	}
	if int64(len(data)) > max {
		return nil, tooLarge(max)
	}
	if len(data) == 0 {
		return nil, apperrors.NewDecodeError("remote image is empty", nil)
	}
	return data, nil
}

func tooLarge(max int64) error {
	return apperrors.NewValidationError(fmt.Sprintf("image exceeds %d bytes", max), nil)
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
