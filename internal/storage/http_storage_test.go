package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	apperrors "go-model-inference/internal/errors"
)

// Valid minimal PNG data for a 1x1 transparent pixel
var pngData = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4,
	0x89, 0x00, 0x00, 0x00, 0x0A, 0x49, 0x44, 0x41,
	0x54, 0x78, 0x9C, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0D, 0x0A, 0x2D, 0xB4, 0x00,
	0x00, 0x00, 0x00, 0x49, 0x45, 0x4E, 0x44, 0xAE,
	0x42, 0x60, 0x82,
}

func noBackoff(int) time.Duration { return 0 }

func TestHTTPImageFetcher_RetryLogic(t *testing.T) {
	tests := []struct {
		name          string
		responses     []int // Status codes to return in sequence
		expectRetries int   // Expected number of requests
		expectError   bool
		errorContains string
	}{
		{
			name:          "Success on first attempt",
			responses:     []int{200},
			expectRetries: 1,
		},
		{
			name:          "Success on second attempt after 5xx",
			responses:     []int{500, 200},
			expectRetries: 2,
		},
		{
			name:          "404 is not retried",
			responses:     []int{404},
			expectRetries: 1,
			expectError:   true,
			errorContains: "client error: status code 404",
		},
		{
			name:          "4xx after 5xx stops",
			responses:     []int{500, 404},
			expectRetries: 2,
			expectError:   true,
			errorContains: "client error: status code 404",
		},
		{
			name:          "All 5xx errors use every attempt",
			responses:     []int{500, 502, 503},
			expectRetries: 3,
			expectError:   true,
			errorContains: "server error: status code 503",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var requestCount atomic.Int32

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := int(requestCount.Add(1)) - 1
				if n >= len(tt.responses) {
					w.WriteHeader(500)
					return
				}
				if status := tt.responses[n]; status != 200 {
					w.WriteHeader(status)
					fmt.Fprintf(w, "Error %d", status)
					return
				}
				w.Header().Set("Content-Type", "image/png")
				w.Write(pngData)
			}))
			defer server.Close()

			fetcher := NewHTTPImageFetcher(WithRetryBackoff(noBackoff))
			data, err := fetcher.FetchImage(context.Background(), server.URL)

			if got := int(requestCount.Load()); got != tt.expectRetries {
				t.Errorf("Expected %d requests, got %d", tt.expectRetries, got)
			}

			if tt.expectError {
				if err == nil {
					t.Fatalf("Expected error, but got none")
				}
				if !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("Expected error to contain '%s', got: %s", tt.errorContains, err.Error())
				}
				if !apperrors.IsType(err, apperrors.ErrorTypeNetwork) {
					t.Errorf("Expected a network error, got: %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("Expected no error, got: %s", err.Error())
			}
			if !bytes.Equal(data, pngData) {
				t.Errorf("Expected the served bytes back, got %d bytes", len(data))
			}
		})
	}
}

func TestHTTPImageFetcher_NetworkError_Retry(t *testing.T) {
	var requestCount atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestCount.Add(1) < 3 {
			// Simulate network error by closing connection
			if hj, ok := w.(http.Hijacker); ok {
				conn, _, _ := hj.Hijack()
				conn.Close()
			}
			return
		}
		w.Write(pngData)
	}))
	defer server.Close()

	var waits []time.Duration
	fetcher := NewHTTPImageFetcher(WithRetryBackoff(func(attempt int) time.Duration {
		d := time.Duration(attempt+1) * time.Millisecond
		waits = append(waits, d)
		return d
	}))

	if _, err := fetcher.FetchImage(context.Background(), server.URL); err != nil {
		t.Errorf("Expected success after retries, got error: %s", err.Error())
	}
	if got := requestCount.Load(); got != 3 {
		t.Errorf("Expected 3 requests, got %d", got)
	}
	if len(waits) != 2 || waits[0] != time.Millisecond || waits[1] != 2*time.Millisecond {
		t.Errorf("Expected linear backoff of 1 and 2 units, got %v", waits)
	}
}

func TestHTTPImageFetcher_SizeCap(t *testing.T) {
	big := bytes.Repeat([]byte{0xff}, 2048)

	tests := []struct {
		name    string
		chunked bool
	}{
		{name: "declared content length"},
		{name: "chunked body", chunked: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.chunked {
					w.Write(big[:1024])
					w.(http.Flusher).Flush()
					w.Write(big[1024:])
					return
				}
				w.Header().Set("Content-Length", fmt.Sprint(len(big)))
				w.Write(big)
			}))
			defer server.Close()

			fetcher := NewHTTPImageFetcher(WithMaxBytes(1024), WithRetryBackoff(noBackoff))
			_, err := fetcher.FetchImage(context.Background(), server.URL)
			if err == nil {
				t.Fatal("Expected oversized image to be rejected")
			}
			if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
				t.Errorf("Expected a validation error, got: %v", err)
			}
		})
	}
}

func TestHTTPImageFetcher_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	fetcher := NewHTTPImageFetcher(WithTimeout(50*time.Millisecond), WithRetryBackoff(noBackoff))
	_, err := fetcher.FetchImage(context.Background(), server.URL)
	if !apperrors.IsType(err, apperrors.ErrorTypeTimeout) {
		t.Errorf("Expected a timeout error, got: %v", err)
	}
}

func TestHTTPImageFetcher_InvalidURL(t *testing.T) {
	fetcher := NewHTTPImageFetcher()
	_, err := fetcher.FetchImage(context.Background(), "://bad")
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("Expected a validation error, got: %v", err)
	}
}

type stubFetcher struct {
	name  string
	calls int
}

func (s *stubFetcher) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	s.calls++
	return []byte(s.name), nil
}

func TestHTTPImageFetcher_RedirectPolicy(t *testing.T) {
	var targetHits int32
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&targetHits, 1)
		w.Write(pngData)
	}))
	defer target.Close()

	var originHits int32
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&originHits, 1)
		http.Redirect(w, r, target.URL+"/image.png", http.StatusFound)
	}))
	defer origin.Close()

	var checked []string
	fetcher := NewHTTPImageFetcher(
		WithRetryBackoff(noBackoff),
		WithRedirectPolicy(func(u *url.URL) error {
			checked = append(checked, u.String())
			return apperrors.NewValidationError(fmt.Sprintf("URL host %q not allowed", u.Hostname()), nil)
		}),
	)

	_, err := fetcher.FetchImage(context.Background(), origin.URL+"/scan.png")
	if err == nil {
		t.Fatal("Expected redirect to be rejected")
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "not allowed") {
		t.Errorf("Expected error to name the rejected host, got %v", err)
	}
	if hits := atomic.LoadInt32(&originHits); hits != 1 {
		t.Errorf("Expected rejected redirect not to be retried, got %d requests", hits)
	}
	if hits := atomic.LoadInt32(&targetHits); hits != 0 {
		t.Errorf("Expected redirect target to stay unfetched, got %d requests", hits)
	}
	if len(checked) != 1 || checked[0] != target.URL+"/image.png" {
		t.Errorf("Expected policy to see the redirect target, got %v", checked)
	}
}

func TestRoutingFetcher(t *testing.T) {
	web := &stubFetcher{name: "web"}
	blobs := &stubFetcher{name: "blob"}
	router := NewRoutingFetcher(web, blobs, AccountHost("scans"))

	got, _ := router.FetchImage(context.Background(), "https://scans.blob.core.windows.net/mri/patient-1.png")
	if string(got) != "blob" {
		t.Errorf("Expected blob route, got %s", got)
	}

	got, _ = router.FetchImage(context.Background(), "https://example.com/scan.png")
	if string(got) != "web" {
		t.Errorf("Expected web route, got %s", got)
	}

	noBlobs := NewRoutingFetcher(web, nil, "")
	got, _ = noBlobs.FetchImage(context.Background(), "https://scans.blob.core.windows.net/mri/patient-1.png")
	if string(got) != "web" {
		t.Errorf("Expected web route without azure, got %s", got)
	}
}

func TestParseBlobURL(t *testing.T) {
	container, blob, err := ParseBlobURL("https://scans.blob.core.windows.net/mri/2024/patient-1.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if container != "mri" || blob != "2024/patient-1.png" {
		t.Errorf("got container=%q blob=%q", container, blob)
	}

	if _, _, err := ParseBlobURL("https://scans.blob.core.windows.net/mri"); err == nil {
		t.Error("Expected an error for a URL without a blob name")
	}
}
