package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"

	"github.com/bft-labs/telship/internal/domain"
	"github.com/bft-labs/telship/internal/ports"
)

type mockLogger struct{}

func (mockLogger) Debug(msg string, fields ...ports.Field) {}
func (mockLogger) Info(msg string, fields ...ports.Field)  {}
func (mockLogger) Warn(msg string, fields ...ports.Field)  {}
func (mockLogger) Error(msg string, fields ...ports.Field) {}

type capturedRequest struct {
	path    string
	headers http.Header
	body    []byte
}

func newCollector(t *testing.T, status int) (*httptest.Server, func() []capturedRequest) {
	t.Helper()
	var mu sync.Mutex
	var requests []capturedRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests = append(requests, capturedRequest{path: r.URL.Path, headers: r.Header.Clone(), body: body})
		mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte("response"))
	}))
	t.Cleanup(srv.Close)

	return srv, func() []capturedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedRequest{}, requests...)
	}
}

type observerFunc func(*http.Response)

func (f observerFunc) ObserveResponse(resp *http.Response) { f(resp) }

func TestUploader_Send(t *testing.T) {
	srv, requests := newCollector(t, http.StatusAccepted)

	observed := 0
	u, err := NewUploader(UploaderConfig{ServiceURL: srv.URL + "/", AuthKey: "secret"}, srv.Client(),
		observerFunc(func(*http.Response) { observed++ }), mockLogger{})
	if err != nil {
		t.Fatalf("NewUploader() error = %v", err)
	}

	outcome := u.Send(context.Background(), []byte(`[{"a":1}]`), ports.UploadMetadata{
		RequestID:        "req-1",
		Feature:          "logs",
		ServerTimeOffset: -2 * time.Second,
	})

	if d, ok := outcome.(domain.Delivered); !ok || d.StatusCode != http.StatusAccepted {
		t.Fatalf("outcome = %#v, want Delivered{202}", outcome)
	}
	if observed != 1 {
		t.Errorf("observer called %d times, want 1", observed)
	}

	got := requests()
	if len(got) != 1 {
		t.Fatalf("got %d requests, want 1", len(got))
	}
	req := got[0]
	if req.path != "/v1/ingest/logs" {
		t.Errorf("path = %q", req.path)
	}
	if string(req.body) != `[{"a":1}]` {
		t.Errorf("body = %q", req.body)
	}

	wantHeaders := map[string]string{
		"Authorization":  "Bearer secret",
		"Content-Type":   "application/json",
		HeaderRequestID:  "req-1",
		HeaderFeature:    "logs",
		HeaderTimeOffset: "-2000",
	}
	for k, v := range wantHeaders {
		if req.headers.Get(k) != v {
			t.Errorf("header %s = %q, want %q", k, req.headers.Get(k), v)
		}
	}
	if req.headers.Get("Content-Encoding") != "" {
		t.Errorf("unexpected Content-Encoding %q", req.headers.Get("Content-Encoding"))
	}
}

func TestUploader_Compression(t *testing.T) {
	payload := bytes.Repeat([]byte(`{"message":"hello"},`), 100)

	decoders := map[Compression]func([]byte) ([]byte, error){
		CompressionGzip: func(b []byte) ([]byte, error) {
			r, err := gzip.NewReader(bytes.NewReader(b))
			if err != nil {
				return nil, err
			}
			return io.ReadAll(r)
		},
		CompressionDeflate: func(b []byte) ([]byte, error) {
			r, err := zlib.NewReader(bytes.NewReader(b))
			if err != nil {
				return nil, err
			}
			return io.ReadAll(r)
		},
		CompressionZstd: func(b []byte) ([]byte, error) {
			d, err := zstd.NewReader(nil)
			if err != nil {
				return nil, err
			}
			defer d.Close()
			return d.DecodeAll(b, nil)
		},
	}

	for c, decode := range decoders {
		t.Run(string(c), func(t *testing.T) {
			srv, requests := newCollector(t, http.StatusOK)
			u, err := NewUploader(UploaderConfig{ServiceURL: srv.URL, Compression: c}, srv.Client(), nil, mockLogger{})
			if err != nil {
				t.Fatalf("NewUploader() error = %v", err)
			}

			if _, ok := u.Send(context.Background(), payload, ports.UploadMetadata{Feature: "logs"}).(domain.Delivered); !ok {
				t.Fatal("upload not delivered")
			}

			req := requests()[0]
			if req.headers.Get("Content-Encoding") != string(c) {
				t.Errorf("Content-Encoding = %q, want %q", req.headers.Get("Content-Encoding"), c)
			}
			if len(req.body) >= len(payload) {
				t.Errorf("body not compressed: %d >= %d", len(req.body), len(payload))
			}
			decoded, err := decode(req.body)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !bytes.Equal(decoded, payload) {
				t.Error("decoded body does not match payload")
			}
		})
	}
}

func TestUploader_StatusClassification(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusOK, "delivered"},
		{http.StatusAccepted, "delivered"},
		{http.StatusBadRequest, "rejected"},
		{http.StatusUnauthorized, "rejected"},
		{http.StatusForbidden, "rejected"},
		{http.StatusRequestEntityTooLarge, "rejected"},
		{http.StatusRequestTimeout, "retry"},
		{http.StatusTooManyRequests, "retry"},
		{http.StatusInternalServerError, "retry"},
		{http.StatusServiceUnavailable, "retry"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv, _ := newCollector(t, tt.status)
			u, err := NewUploader(UploaderConfig{ServiceURL: srv.URL}, srv.Client(), nil, mockLogger{})
			if err != nil {
				t.Fatalf("NewUploader() error = %v", err)
			}

			outcome := u.Send(context.Background(), []byte("x"), ports.UploadMetadata{Feature: "logs"})
			if got := outcomeKind(outcome); got != tt.want {
				t.Errorf("status %d classified as %s, want %s", tt.status, got, tt.want)
			}
		})
	}
}

func TestUploader_NetworkErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	u, err := NewUploader(UploaderConfig{ServiceURL: url}, &http.Client{Timeout: time.Second}, nil, mockLogger{})
	if err != nil {
		t.Fatalf("NewUploader() error = %v", err)
	}

	outcome := u.Send(context.Background(), []byte("x"), ports.UploadMetadata{Feature: "logs"})
	failure, ok := outcome.(domain.RetryableFailure)
	if !ok {
		t.Fatalf("outcome = %#v, want RetryableFailure", outcome)
	}
	if failure.StatusCode != 0 || failure.Err == nil {
		t.Errorf("failure = %#v", failure)
	}
}

func TestNewUploader_RequiresServiceURL(t *testing.T) {
	if _, err := NewUploader(UploaderConfig{}, nil, nil, mockLogger{}); !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("NewUploader() error = %v, want ErrInvalidConfig", err)
	}
}

func TestParseCompression(t *testing.T) {
	tests := []struct {
		in      string
		want    Compression
		wantErr bool
	}{
		{"", CompressionNone, false},
		{"none", CompressionNone, false},
		{"GZIP", CompressionGzip, false},
		{"deflate", CompressionDeflate, false},
		{" zstd ", CompressionZstd, false},
		{"lz4", "", true},
	}
	for _, tt := range tests {
		got, err := ParseCompression(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseCompression(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func outcomeKind(o domain.Outcome) string {
	switch o.(type) {
	case domain.Delivered:
		return "delivered"
	case domain.RetryableFailure:
		return "retry"
	case domain.NonRetryableFailure:
		return "rejected"
	default:
		return "none"
	}
}
