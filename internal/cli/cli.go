// Package cli implements the image-transform command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/ironsheep/image-transform-cli/internal/config"
	"github.com/ironsheep/image-transform-cli/internal/fetch"
	"github.com/ironsheep/image-transform-cli/internal/imaging"
	"github.com/ironsheep/image-transform-cli/internal/logging"
	"github.com/ironsheep/image-transform-cli/internal/pacer"
	"github.com/ironsheep/image-transform-cli/internal/pipeline"
	"github.com/ironsheep/image-transform-cli/internal/telemetry"
)

// BuildInfo carries the version details stamped in at link time.
type BuildInfo struct {
	Version   string
	BuildTime string
	GitCommit string
}

type options struct {
	input       string
	output      string
	mode        string
	minTime     float64
	metadata    string
	configPath  string
	logLevel    string
	metricsFile string
}

// Run executes the command line in args and returns the process exit code.
// Failures are reported on stderr as a single "ERROR: <message>" line.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer, info BuildInfo) int {
	root := newRootCommand(stdout, stderr, info)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	return 0
}

func newRootCommand(stdout, stderr io.Writer, info BuildInfo) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "image-transform",
		Short: "Apply edge, FFT or 3D heightmap transforms to an image",
		Long: "image-transform loads an image from a local path or an http(s) URL, applies one\n" +
			"transform (edge detection, FFT magnitude spectrum or 3D heightmap) and writes the\n" +
			"result, optionally with a JSON metadata file. Every run takes at least --min-time seconds.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransform(cmd, opts, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	flags := cmd.Flags()
	flags.StringVarP(&opts.input, "input", "i", "", "input image path or http(s) URL")
	flags.StringVarP(&opts.output, "output", "o", "", "output image path (extension selects the format)")
	flags.StringVarP(&opts.mode, "type", "t", "", "transform type: edge, fft or 3d")
	flags.Float64Var(&opts.minTime, "min-time", config.DefaultMinTime, "minimum processing time in seconds")
	flags.StringVarP(&opts.metadata, "metadata", "m", "", "write run metadata as JSON to this path")
	flags.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus textfile metrics to this path")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	_ = cmd.MarkFlagRequired("type")

	cmd.AddCommand(newVersionCommand(stdout, info))
	return cmd
}

func newVersionCommand(stdout io.Writer, info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(stdout, "image-transform %s\n", info.Version)
			fmt.Fprintf(stdout, "  Build time: %s\n", info.BuildTime)
			fmt.Fprintf(stdout, "  Git commit: %s\n", info.GitCommit)
		},
	}
}

func runTransform(cmd *cobra.Command, opts *options, stdout, stderr io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("min-time") {
		cfg.MinTime = opts.minTime
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	mode, err := imaging.ParseMode(opts.mode)
	if err != nil {
		return err
	}

	logger := logging.New(logging.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON, Writer: stderr})

	var recorder *telemetry.Recorder
	if opts.metricsFile != "" {
		recorder = telemetry.NewRecorder(string(mode))
	}

	fetcher := fetch.New(fetch.Options{
		MaxRetries: cfg.Fetch.MaxRetries,
		RetryDelay: cfg.Fetch.RetryDelay,
		Timeout:    cfg.Fetch.Timeout,
		UserAgent:  cfg.Fetch.UserAgent,
		ChunkSize:  cfg.Fetch.ChunkSize,
		Logger:     logger,
		OnAttempt:  recorder.SetFetchAttempts,
	})
	proc := pipeline.New(pipeline.Options{
		Fetcher: fetcher,
		Logger:  logger,
		Metrics: recorder,
	})

	md, err := proc.Process(cmd.Context(), pipeline.Request{
		Input:   opts.input,
		Output:  opts.output,
		Mode:    mode,
		MinTime: pacer.Seconds(cfg.MinTime),
	})
	if err == nil && opts.metadata != "" {
		if err = pipeline.WriteMetadata(opts.metadata, md); err != nil {
			if rmErr := pipeline.RemoveOutputs(md); rmErr != nil {
				logger.Warn("failed to remove outputs", "error", rmErr)
			}
		} else {
			logger.Info("metadata saved", "path", opts.metadata)
		}
	}
	writeMetrics(logger, recorder, opts.metricsFile, err == nil)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, renderSummary(summaryRows(md, opts.metadata)))
	fmt.Fprintln(stdout, successStyle.Render("SUCCESS"))
	return nil
}

func writeMetrics(logger *slog.Logger, recorder *telemetry.Recorder, path string, ok bool) {
	if recorder == nil {
		return
	}
	recorder.Finish(ok, time.Now())
	if err := recorder.WriteTextfile(path); err != nil {
		logger.Warn("failed to write metrics", "path", path, "error", err)
	}
}
