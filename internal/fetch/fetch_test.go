package fetch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

// newTestFetcher returns a fetcher with a tiny retry delay so tests run fast.
func newTestFetcher(maxRetries int) *Fetcher {
	return New(Options{
		MaxRetries: maxRetries,
		RetryDelay: time.Millisecond,
		Timeout:    5 * time.Second,
	})
}

// flakyServer fails the first failures requests with status and then serves body.
func flakyServer(t *testing.T, failures int, status int, body []byte) (*httptest.Server, *int32) {
	t.Helper()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if int(n) <= failures {
			w.WriteHeader(status)
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestIsURL(t *testing.T) {
	tests := []struct {
		source string
		want   bool
	}{
		{"http://example.com/a.jpg", true},
		{"https://example.com/a.jpg", true},
		{"HTTPS://example.com/a.jpg", true},
		{"/tmp/a.jpg", false},
		{"a.jpg", false},
		{"ftp://example.com/a.jpg", false},
	}

	for _, tt := range tests {
		if got := IsURL(tt.source); got != tt.want {
			t.Errorf("IsURL(%q): got %v, want %v", tt.source, got, tt.want)
		}
	}
}

func TestFetch_LocalPathUntouched(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "download.img")

	got, err := newTestFetcher(3).Fetch(context.Background(), "/does/not/exist.png", dest)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if got != "/does/not/exist.png" {
		t.Errorf("path: got %s, want the source path", got)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("destination should not be created for a local source")
	}
}

func TestFetch_Success(t *testing.T) {
	body := bytes.Repeat([]byte("0123456789abcdef"), 4096) // 64 KiB, several chunks
	var userAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "download.img")
	got, err := newTestFetcher(3).Fetch(context.Background(), srv.URL+"/image.png", dest)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if got != dest {
		t.Errorf("path: got %s, want %s", got, dest)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	if !bytes.Equal(data, body) {
		t.Errorf("downloaded %d bytes, want %d matching bytes", len(data), len(body))
	}
	if userAgent != DefaultUserAgent {
		t.Errorf("User-Agent: got %q, want %q", userAgent, DefaultUserAgent)
	}
}

func TestFetch_OverwritesDestination(t *testing.T) {
	srv, _ := flakyServer(t, 0, 0, []byte("new"))
	dest := filepath.Join(t.TempDir(), "download.img")
	if err := os.WriteFile(dest, []byte("old content that is longer"), 0o644); err != nil {
		t.Fatalf("seed destination: %v", err)
	}

	if _, err := newTestFetcher(1).Fetch(context.Background(), srv.URL, dest); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	data, _ := os.ReadFile(dest)
	if string(data) != "new" {
		t.Errorf("destination: got %q, want %q", data, "new")
	}
}

func TestFetch_RetriesTransientFailures(t *testing.T) {
	tests := []struct {
		name     string
		failures int
		status   int
	}{
		{"one server error", 1, http.StatusInternalServerError},
		{"two unavailable", 2, http.StatusServiceUnavailable},
		{"rate limited", 1, http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := []byte("image-bytes")
			srv, calls := flakyServer(t, tt.failures, tt.status, body)

			dest := filepath.Join(t.TempDir(), "download.img")
			if _, err := newTestFetcher(3).Fetch(context.Background(), srv.URL, dest); err != nil {
				t.Fatalf("Fetch failed: %v", err)
			}
			if got := atomic.LoadInt32(calls); int(got) != tt.failures+1 {
				t.Errorf("requests: got %d, want %d", got, tt.failures+1)
			}
			data, _ := os.ReadFile(dest)
			if !bytes.Equal(data, body) {
				t.Errorf("destination: got %q, want %q", data, body)
			}
		})
	}
}

func TestFetch_ExhaustsRetries(t *testing.T) {
	srv, calls := flakyServer(t, 100, http.StatusBadGateway, nil)

	dest := filepath.Join(t.TempDir(), "download.img")
	_, err := newTestFetcher(3).Fetch(context.Background(), srv.URL, dest)
	if !errors.Is(err, ErrDownloadFailed) {
		t.Fatalf("error: got %v, want ErrDownloadFailed", err)
	}

	var de *DownloadError
	if !errors.As(err, &de) {
		t.Fatalf("error should be a *DownloadError, got %T", err)
	}
	if de.Attempts != 3 {
		t.Errorf("Attempts: got %d, want 3", de.Attempts)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadGateway {
		t.Errorf("last cause should be HTTP 502, got %v", de.Err)
	}
	if got := atomic.LoadInt32(calls); got != 3 {
		t.Errorf("requests: got %d, want 3", got)
	}
}

func TestFetch_PermanentStatusNotRetried(t *testing.T) {
	srv, calls := flakyServer(t, 100, http.StatusNotFound, nil)

	dest := filepath.Join(t.TempDir(), "download.img")
	_, err := newTestFetcher(3).Fetch(context.Background(), srv.URL, dest)
	if !errors.Is(err, ErrDownloadFailed) {
		t.Fatalf("error: got %v, want ErrDownloadFailed", err)
	}
	if got := atomic.LoadInt32(calls); got != 1 {
		t.Errorf("requests: got %d, want 1", got)
	}
}

func TestFetch_TruncatedBodyRetried(t *testing.T) {
	body := []byte("complete image payload")
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		if atomic.AddInt32(&calls, 1) == 1 {
			// Declare the full length but send only part of it.
			_, _ = w.Write(body[:5])
			return
		}
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "download.img")
	if _, err := newTestFetcher(3).Fetch(context.Background(), srv.URL, dest); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("requests: got %d, want 2", got)
	}
	data, _ := os.ReadFile(dest)
	if !bytes.Equal(data, body) {
		t.Errorf("destination: got %q, want %q", data, body)
	}
}

func TestFetch_DiskFailureNotRetried(t *testing.T) {
	srv, calls := flakyServer(t, 0, 0, []byte("image-bytes"))

	dest := filepath.Join(t.TempDir(), "missing-dir", "download.img")
	_, err := newTestFetcher(3).Fetch(context.Background(), srv.URL, dest)
	if err == nil {
		t.Fatal("expected an error writing into a missing directory")
	}
	if errors.Is(err, ErrDownloadFailed) {
		t.Errorf("disk failures should not be reported as download failures: %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error should wrap the underlying disk error, got %v", err)
	}
	if got := atomic.LoadInt32(calls); got != 1 {
		t.Errorf("requests: got %d, want 1", got)
	}
}

func TestFetch_ConnectionRefusedRetried(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	dest := filepath.Join(t.TempDir(), "download.img")
	_, err := newTestFetcher(2).Fetch(context.Background(), url, dest)

	var de *DownloadError
	if !errors.As(err, &de) {
		t.Fatalf("error should be a *DownloadError, got %v", err)
	}
	if de.Attempts != 2 {
		t.Errorf("Attempts: got %d, want 2", de.Attempts)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"server error", &StatusError{Code: 500}, true},
		{"not found", &StatusError{Code: 404}, false},
		{"write failure", &writeError{err: errors.New("disk full")}, false},
		{"permanent", &permanentError{err: errors.New("bad request")}, false},
		{"deadline", context.DeadlineExceeded, true},
		{"cancelled", context.Canceled, false},
		{"other", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient: got %v, want %v", got, tt.want)
			}
		})
	}
}
