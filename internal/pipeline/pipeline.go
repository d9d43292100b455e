// Package pipeline runs one image through fetch, decode, transform, pacing
// and output, and assembles the run's metadata.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ironsheep/image-transform-cli/internal/config"
	"github.com/ironsheep/image-transform-cli/internal/fetch"
	"github.com/ironsheep/image-transform-cli/internal/imaging"
	"github.com/ironsheep/image-transform-cli/internal/logging"
	"github.com/ironsheep/image-transform-cli/internal/pacer"
	"github.com/ironsheep/image-transform-cli/internal/telemetry"
)

// ErrWriteFailed is returned when an output file cannot be written.
var ErrWriteFailed = errors.New("write failed")

// Fetcher resolves an input specifier to a local file.
type Fetcher interface {
	Fetch(ctx context.Context, source, destination string) (string, error)
}

// Request describes a single run.
type Request struct {
	Input   string        // local path or http(s) URL
	Output  string        // output image path; the extension selects the format
	Mode    imaging.Mode  // transform to apply
	MinTime time.Duration // pacing floor
}

// Options configures a Processor. Nil fields take defaults.
type Options struct {
	Fetcher Fetcher
	Decoder *imaging.Decoder
	Clock   pacer.Clock
	Logger  *slog.Logger
	Metrics *telemetry.Recorder

	// TempDir is the parent of the per-run download directory
	// (os.TempDir when empty).
	TempDir string
}

// Processor executes Requests. It holds no per-run state.
type Processor struct {
	fetcher Fetcher
	decoder *imaging.Decoder
	clock   pacer.Clock
	logger  *slog.Logger
	metrics *telemetry.Recorder
	tempDir string
}

// New creates a Processor.
func New(opts Options) *Processor {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Fetcher == nil {
		opts.Fetcher = fetch.New(fetch.Options{Logger: opts.Logger})
	}
	if opts.Decoder == nil {
		opts.Decoder = imaging.NewDecoder(opts.Logger)
	}
	if opts.Clock == nil {
		opts.Clock = pacer.SystemClock{}
	}
	return &Processor{
		fetcher: opts.Fetcher,
		decoder: opts.Decoder,
		clock:   opts.Clock,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		tempDir: opts.TempDir,
	}
}

// Process runs req end to end and returns the assembled metadata.
//
// Stages run in order: fetch, decode, transform, pace, write. The reported
// processing time is measured right after pacing, so it is never below
// req.MinTime. The output image and, for the 3d transform, the heightmap
// side-car are written only after every earlier stage succeeded, and an
// output extension that cannot be encoded is rejected before any work starts.
// If the side-car cannot be written the output image is removed again.
//
// Remote inputs are downloaded into a private temporary directory that is
// removed before Process returns, whether or not the run succeeded.
func (p *Processor) Process(ctx context.Context, req Request) (*Metadata, error) {
	start := p.clock.Now()

	if req.MinTime < 0 {
		return nil, fmt.Errorf("%w: minimum time must not be negative", config.ErrConfig)
	}
	if req.Output == "" {
		return nil, fmt.Errorf("%w: no output path", ErrWriteFailed)
	}
	if err := imaging.CheckOutputPath(req.Output); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	localPath, cleanup, err := p.acquire(ctx, req.Input)
	defer cleanup()
	if err != nil {
		return nil, err
	}
	p.metrics.ObserveStage("fetch", p.clock.Now().Sub(start))

	p.logger.Info("loading image", "path", localPath)
	stageStart := p.clock.Now()
	grid, dims, err := p.decoder.Decode(localPath)
	if err != nil {
		return nil, err
	}
	p.metrics.ObserveStage("decode", p.clock.Now().Sub(stageStart))

	p.logger.Info("applying transform", "type", req.Mode, "description", req.Mode.Description(),
		"width", dims.Width, "height", dims.Height)
	stageStart = p.clock.Now()
	result, err := imaging.Transform(req.Mode, grid)
	if err != nil {
		return nil, err
	}
	p.metrics.ObserveStage("transform", p.clock.Now().Sub(stageStart))

	if remaining := req.MinTime - p.clock.Now().Sub(start); remaining > 0 {
		p.logger.Info("padding run to minimum processing time", "remaining", remaining.Round(100*time.Millisecond))
	}
	slept := pacer.EnforceMinimumDuration(p.clock, start, req.MinTime)
	p.metrics.ObserveStage("pace", slept)
	elapsed := p.clock.Now().Sub(start)

	md := &Metadata{
		Input:                 req.Input,
		Output:                req.Output,
		Type:                  req.Mode,
		OriginalSize:          dims,
		ProcessingTimeSeconds: round2(elapsed.Seconds()),
	}
	p.metrics.SetProcessingTime(md.ProcessingTimeSeconds)

	stageStart = p.clock.Now()
	if err := imaging.Save(result.Output, req.Output); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrWriteFailed, req.Output, err)
	}
	if result.Heightmap != nil {
		sidecar := SidecarPath(req.Output)
		if err := writeJSON(sidecar, result.Heightmap); err != nil {
			if rmErr := os.Remove(req.Output); rmErr != nil {
				p.logger.Warn("failed to remove output image", "path", req.Output, "error", rmErr)
			}
			return nil, err
		}
		md.addHeightmap(result.Heightmap, sidecar)
		p.logger.Info("heightmap data saved", "path", sidecar)
	}
	p.metrics.ObserveStage("write", p.clock.Now().Sub(stageStart))

	p.logger.Info("processing complete", "output", req.Output, "processing_time_seconds", md.ProcessingTimeSeconds)
	return md, nil
}

// RemoveOutputs deletes the files a successful run wrote, so a later failure
// (such as writing the metadata file) leaves nothing partial behind.
func RemoveOutputs(md *Metadata) error {
	var errs []error
	for _, path := range []string{md.Output, md.HeightmapDataFile} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// acquire resolves input to a local path. The returned cleanup func is always
// non-nil and removes any temporary download.
func (p *Processor) acquire(ctx context.Context, input string) (string, func(), error) {
	noop := func() {}
	if !fetch.IsURL(input) {
		path, err := p.fetcher.Fetch(ctx, input, "")
		return path, noop, err
	}

	dir, err := os.MkdirTemp(p.tempDir, "image-transform-*")
	if err != nil {
		return "", noop, fmt.Errorf("failed to create download directory: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			p.logger.Warn("failed to remove temporary download", "dir", dir, "error", err)
		}
	}

	path, err := p.fetcher.Fetch(ctx, input, filepath.Join(dir, "download"))
	if err != nil {
		return "", cleanup, err
	}
	return path, cleanup, nil
}
