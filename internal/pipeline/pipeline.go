package pipeline

import (
	"context"
	"fmt"
	"time"

	"city-distance/internal/calculator"
	"city-distance/internal/config"
	"city-distance/internal/dataset"
	"city-distance/internal/points"

	log "github.com/sirupsen/logrus"
)

type Options struct {
	InputPath       string
	OutputPath      string
	ThresholdMeters float64
	Columns         points.Columns
	InputSheet      string
	OutputSheet     string
	LegacyHeader    bool
	Workers         int

	OnProgress calculator.ProgressCallback
	// Logger defaults to the logrus standard logger.
	Logger log.FieldLogger
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		InputPath:       cfg.InputPath,
		OutputPath:      cfg.OutputPath,
		ThresholdMeters: cfg.ThresholdMeters,
		Columns:         cfg.Columns,
		InputSheet:      cfg.InputSheet,
		OutputSheet:     cfg.OutputSheet,
		LegacyHeader:    cfg.LegacyHeader,
		Workers:         cfg.Workers,
	}
}

type Summary struct {
	Points  int
	// Pairs is the number of ordered pairs evaluated.
	Pairs   int
	Rows    int
	Output  string
	Elapsed time.Duration
}

// Run loads the point table, writes every ordered pair closer than the
// threshold to the output table and reports what it did. Any failure leaves
// the output path untouched.
func Run(ctx context.Context, opts Options) (*Summary, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}

	if err := calculator.ValidateThreshold(opts.ThresholdMeters); err != nil {
		return nil, err
	}

	logger.Infof("Reading points from %s", opts.InputPath)
	pts, err := dataset.Load(opts.InputPath, dataset.ReadOptions{
		Columns: opts.Columns,
		Sheet:   opts.InputSheet,
	})
	if err != nil {
		return nil, err
	}
	pairs := len(pts) * max(len(pts)-1, 0)
	logger.Infof("%d points loaded, %d ordered pairs to evaluate", len(pts), pairs)

	sink, err := dataset.Create(opts.OutputPath, dataset.WriteOptions{
		Sheet:        opts.OutputSheet,
		LegacyHeader: opts.LegacyHeader,
	})
	if err != nil {
		return nil, err
	}
	defer sink.Abort()

	start := time.Now()
	logger.Infof("Computing distances (threshold: %.0fm)", opts.ThresholdMeters)

	if opts.Workers == 1 {
		err = calculator.GenerateProgress(ctx, pts, opts.ThresholdMeters, opts.OnProgress, sink.Write)
	} else {
		err = calculator.GenerateParallel(ctx, pts, opts.ThresholdMeters, calculator.Options{
			Workers:    opts.Workers,
			OnProgress: opts.OnProgress,
			Logger:     func(msg string) { logger.Debug(msg) },
		}, sink.Write)
	}
	if err != nil {
		return nil, fmt.Errorf("computing distances: %w", err)
	}

	rows := sink.Rows()
	if err := sink.Commit(); err != nil {
		return nil, err
	}

	summary := &Summary{
		Points:  len(pts),
		Pairs:   pairs,
		Rows:    rows,
		Output:  opts.OutputPath,
		Elapsed: time.Since(start),
	}
	logger.WithFields(log.Fields{
		"points":  summary.Points,
		"pairs":   summary.Pairs,
		"rows":    summary.Rows,
		"elapsed": summary.Elapsed,
	}).Infof("Distance table written to %s", summary.Output)

	return summary, nil
}
