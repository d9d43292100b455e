// Package fetch resolves an image source to a file on local storage.
//
// A source is either a filesystem path, which is returned untouched, or an
// http(s) URL, which is downloaded to a destination path with retries for
// transient network failures.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ironsheep/image-transform-cli/internal/retry"
)

const (
	DefaultUserAgent  = "Mozilla/5.0"
	DefaultTimeout    = 30 * time.Second
	DefaultRetryDelay = 2 * time.Second
	DefaultMaxRetries = 3
	DefaultChunkSize  = 8 << 10
)

// ErrDownloadFailed is returned when a URL could not be downloaded.
var ErrDownloadFailed = errors.New("download failed")

// DownloadError carries the last underlying failure and how many attempts
// were made. It matches ErrDownloadFailed with errors.Is.
type DownloadError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("failed to download image from %s after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

func (e *DownloadError) Is(target error) bool { return target == ErrDownloadFailed }

// Options configures a Fetcher. Zero fields take the package defaults.
type Options struct {
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
	UserAgent  string
	ChunkSize  int

	// Client overrides the HTTP client; its Timeout is replaced by Timeout.
	Client *http.Client
	Logger *slog.Logger

	// OnAttempt, if set, is called with the 1-based number of every download
	// attempt before it starts.
	OnAttempt func(attempt int)
}

// Fetcher downloads remote images.
type Fetcher struct {
	client    *http.Client
	policy    retry.Policy
	userAgent string
	chunkSize int
	logger    *slog.Logger
	onAttempt func(int)
}

// New creates a Fetcher from opts.
func New(opts Options) *Fetcher {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	client := &http.Client{}
	if opts.Client != nil {
		c := *opts.Client
		client = &c
	}
	client.Timeout = opts.Timeout

	f := &Fetcher{
		client:    client,
		userAgent: opts.UserAgent,
		chunkSize: opts.ChunkSize,
		logger:    opts.Logger,
		onAttempt: opts.OnAttempt,
	}
	f.policy = retry.Fixed(opts.MaxRetries, opts.RetryDelay, IsTransient)
	f.policy.OnRetry = func(attempt int, err error) {
		f.logger.Warn("download failed, retrying",
			"attempt", attempt, "max_attempts", opts.MaxRetries, "delay", opts.RetryDelay, "error", err)
	}
	return f
}

// IsURL reports whether source is an http or https URL.
func IsURL(source string) bool {
	s := strings.ToLower(source)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Fetch resolves source to a local file path.
//
// Local paths are returned as-is without touching the filesystem; they are
// validated when decoded. URLs are downloaded to destination, which is
// created or truncated on every attempt. On exhaustion or a permanent HTTP
// failure the error is a *DownloadError; disk write failures are returned
// immediately without retry.
func (f *Fetcher) Fetch(ctx context.Context, source, destination string) (string, error) {
	if !IsURL(source) {
		return source, nil
	}

	attempts, err := retry.Do(ctx, f.policy, func(ctx context.Context, attempt int) error {
		if f.onAttempt != nil {
			f.onAttempt(attempt)
		}
		f.logger.Info("downloading image", "url", source, "attempt", attempt, "max_attempts", f.policy.MaxAttempts)
		return f.download(ctx, source, destination)
	})
	if err != nil {
		var we *writeError
		if errors.As(err, &we) {
			return "", err
		}
		return "", &DownloadError{URL: source, Attempts: attempts, Err: err}
	}

	f.logger.Info("image downloaded", "path", destination, "attempts", attempts)
	return destination, nil
}

// download performs a single GET and streams the body to destination.
func (f *Fetcher) download(ctx context.Context, url, destination string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &permanentError{err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := &StatusError{Code: resp.StatusCode}
		if statusErr.Temporary() {
			return statusErr
		}
		return &permanentError{err: statusErr}
	}

	out, err := os.Create(destination)
	if err != nil {
		return &writeError{err: fmt.Errorf("failed to create %s: %w", destination, err)}
	}
	defer out.Close()

	written, err := f.stream(out, resp.Body)
	if err != nil {
		return err
	}
	if resp.ContentLength >= 0 && written < resp.ContentLength {
		return fmt.Errorf("incomplete read (%d of %d bytes): %w", written, resp.ContentLength, io.ErrUnexpectedEOF)
	}

	if err := out.Close(); err != nil {
		return &writeError{err: fmt.Errorf("failed to close %s: %w", destination, err)}
	}
	return nil
}

// stream copies body to out in chunkSize pieces, tagging write failures so
// they are not retried.
func (f *Fetcher) stream(out io.Writer, body io.Reader) (int64, error) {
	buf := make([]byte, f.chunkSize)
	var written int64
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				return written, &writeError{err: fmt.Errorf("failed to write download: %w", err)}
			}
			written += int64(n)
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}

// StatusError reports a non-200 HTTP response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d %s", e.Code, http.StatusText(e.Code))
}

// Temporary reports whether the status is worth retrying (5xx and 429).
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// writeError marks a local disk failure.
type writeError struct{ err error }

func (e *writeError) Error() string { return e.err.Error() }
func (e *writeError) Unwrap() error { return e.err }

// permanentError marks a failure that another attempt cannot fix.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// IsTransient reports whether err is a network-layer failure worth retrying:
// transport errors, timeouts, truncated bodies and temporary HTTP statuses.
// Disk failures, malformed requests and permanent statuses are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var we *writeError
	if errors.As(err, &we) {
		return false
	}
	var pe *permanentError
	if errors.As(err, &pe) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) ||
		errors.Is(err, context.DeadlineExceeded)
}
