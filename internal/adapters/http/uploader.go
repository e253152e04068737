package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime"
	"strconv"
	"strings"

	"github.com/bft-labs/telship/internal/domain"
	"github.com/bft-labs/telship/internal/ports"
)

const ingestPathPrefix = "/v1/ingest/"

// Header names sent with every upload.
const (
	HeaderRequestID  = "X-Request-Id"
	HeaderFeature    = "X-Telship-Feature"
	HeaderTimeOffset = "X-Telship-Time-Offset-Ms"
	HeaderOSArch     = "X-Telship-OSArch"
)

// maxErrorBody bounds how much of a failed response body is kept for logs.
const maxErrorBody = 512

// ResponseObserver sees every collector response, e.g. to learn the server
// clock offset.
type ResponseObserver interface {
	ObserveResponse(resp *http.Response)
}

// UploaderConfig configures the HTTP uploader.
type UploaderConfig struct {
	// ServiceURL is the collector base URL.
	ServiceURL string

	// AuthKey is sent as a Bearer token when not empty.
	AuthKey string

	// ContentType of the batch payload. Defaults to application/json.
	ContentType string

	Compression Compression
}

// Uploader implements ports.Transport over HTTP.
type Uploader struct {
	config   UploaderConfig
	client   ports.HTTPClient
	observer ResponseObserver
	logger   ports.Logger
}

// NewUploader creates an HTTP uploader. observer may be nil.
func NewUploader(config UploaderConfig, client ports.HTTPClient, observer ResponseObserver, logger ports.Logger) (*Uploader, error) {
	if config.ServiceURL == "" {
		return nil, fmt.Errorf("%w: service URL is required", domain.ErrInvalidConfig)
	}
	if _, err := url.Parse(config.ServiceURL); err != nil {
		return nil, fmt.Errorf("%w: service URL: %v", domain.ErrInvalidConfig, err)
	}
	if config.ContentType == "" {
		config.ContentType = "application/json"
	}
	if config.Compression == "" {
		config.Compression = CompressionNone
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Uploader{
		config:   config,
		client:   client,
		observer: observer,
		logger:   logger,
	}, nil
}

// Endpoint returns the ingest URL for a feature.
func (u *Uploader) Endpoint(feature string) string {
	return strings.TrimRight(u.config.ServiceURL, "/") + ingestPathPrefix + url.PathEscape(feature)
}

// Send uploads one batch and classifies the result.
func (u *Uploader) Send(ctx context.Context, data []byte, metadata ports.UploadMetadata) domain.Outcome {
	body, err := u.config.Compression.Compress(data)
	if err != nil {
		// The same bytes will fail the same way on every retry.
		return domain.NonRetryableFailure{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.Endpoint(metadata.Feature), bytes.NewReader(body))
	if err != nil {
		return domain.NonRetryableFailure{Err: fmt.Errorf("create request: %w", err)}
	}

	req.Header.Set("Content-Type", u.config.ContentType)
	if enc := u.config.Compression.ContentEncoding(); enc != "" {
		req.Header.Set("Content-Encoding", enc)
	}
	if u.config.AuthKey != "" {
		req.Header.Set("Authorization", "Bearer "+u.config.AuthKey)
	}
	req.Header.Set(HeaderRequestID, metadata.RequestID)
	req.Header.Set(HeaderFeature, metadata.Feature)
	req.Header.Set(HeaderTimeOffset, strconv.FormatInt(metadata.ServerTimeOffset.Milliseconds(), 10))
	req.Header.Set(HeaderOSArch, runtime.GOOS+"/"+runtime.GOARCH)

	resp, err := u.client.Do(req)
	if err != nil {
		return ClassifyResponse(0, fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	if u.observer != nil {
		u.observer.ObserveResponse(resp)
	}

	if resp.StatusCode/100 == 2 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return domain.Delivered{StatusCode: resp.StatusCode}
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return ClassifyResponse(resp.StatusCode, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))))
}

// ClassifyResponse maps an HTTP status, or a transport error when status is
// zero, to an Outcome. 2xx is delivered; 408, 429, 5xx and network errors are
// retryable; any other status is rejected for good.
func ClassifyResponse(status int, err error) domain.Outcome {
	switch {
	case status == 0:
		if err == nil {
			err = errors.New("no response")
		}
		return domain.RetryableFailure{Err: err}
	case status/100 == 2:
		return domain.Delivered{StatusCode: status}
	case status == http.StatusRequestTimeout,
		status == http.StatusTooManyRequests,
		status/100 == 5:
		return domain.RetryableFailure{StatusCode: status, Err: err}
	default:
		return domain.NonRetryableFailure{StatusCode: status, Err: err}
	}
}
