package calculator

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"city-distance/internal/models"

	"golang.org/x/sync/errgroup"
)

type ProgressCallback func(current, total int, msg string)
type LoggerCallback func(msg string)

// EmitFunc receives each surviving pair. Returning an error stops generation.
type EmitFunc func(models.DistanceRecord) error

// rowsPerWorker bounds how many outer rows each worker holds in memory per window.
const rowsPerWorker = 4

type Options struct {
	// Workers is the number of goroutines scanning outer rows. <= 0 means runtime.NumCPU().
	Workers    int
	OnProgress ProgressCallback
	Logger     LoggerCallback
}

// ValidateThreshold rejects thresholds that are not positive finite numbers.
func ValidateThreshold(meters float64) error {
	if math.IsNaN(meters) || math.IsInf(meters, 0) || meters <= 0 {
		return fmt.Errorf("threshold must be a positive finite number of meters, got %v", meters)
	}
	return nil
}

// ValidatePoints returns a *models.GeometryError for the first point whose
// coordinate is out of range.
func ValidatePoints(points []models.Point) error {
	for i, p := range points {
		if err := p.Validate(i); err != nil {
			return err
		}
	}
	return nil
}

func prepare(points []models.Point, thresholdMeters float64) error {
	if err := ValidateThreshold(thresholdMeters); err != nil {
		return err
	}
	return ValidatePoints(points)
}

// Generate enumerates every ordered pair (i, j), i != j, in i-major order and
// calls emit for those whose geodesic distance is strictly below thresholdMeters.
// Nothing is emitted if a point or the threshold is invalid.
func Generate(points []models.Point, thresholdMeters float64, emit EmitFunc) error {
	return GenerateContext(context.Background(), points, thresholdMeters, emit)
}

// GenerateContext is Generate with cancellation checked between outer rows.
func GenerateContext(ctx context.Context, points []models.Point, thresholdMeters float64, emit EmitFunc) error {
	return GenerateProgress(ctx, points, thresholdMeters, nil, emit)
}

// GenerateProgress is GenerateContext reporting onProgress after every outer row.
func GenerateProgress(ctx context.Context, points []models.Point, thresholdMeters float64, onProgress ProgressCallback, emit EmitFunc) error {
	if err := prepare(points, thresholdMeters); err != nil {
		return err
	}

	total := len(points)
	for i := range points {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := scanRow(points, i, thresholdMeters, emit); err != nil {
			return err
		}
		if onProgress != nil {
			onProgress(i+1, total, "")
		}
	}
	return nil
}

// GenerateAll materializes the output of Generate.
func GenerateAll(points []models.Point, thresholdMeters float64) ([]models.DistanceRecord, error) {
	var out []models.DistanceRecord
	err := Generate(points, thresholdMeters, func(r models.DistanceRecord) error {
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func scanRow(points []models.Point, i int, thresholdMeters float64, emit EmitFunc) error {
	src := points[i]
	for j, dst := range points {
		if i == j {
			continue
		}
		d := Distance(src.Loc, dst.Loc)
		if d < thresholdMeters {
			if err := emit(models.NewDistanceRecord(src, dst, d)); err != nil {
				return err
			}
		}
	}
	return nil
}

// GenerateParallel produces exactly the same sequence as Generate, splitting
// the outer loop across workers. Rows are computed a window at a time and
// emitted in index order once the whole window is done.
func GenerateParallel(ctx context.Context, points []models.Point, thresholdMeters float64, opts Options, emit EmitFunc) error {
	if err := prepare(points, thresholdMeters); err != nil {
		return err
	}

	total := len(points)
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	// more workers than rows would only grow the window
	workers = max(min(workers, total), 1)
	window := workers * rowsPerWorker

	if opts.Logger != nil {
		opts.Logger(fmt.Sprintf("Starting pair scan of %d points (%d ordered pairs) with %d workers", total, total*(total-1), workers))
	}

	rows := make([][]models.DistanceRecord, window)
	for start := 0; start < total; start += window {
		end := min(start+window, total)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				var local []models.DistanceRecord
				_ = scanRow(points, i, thresholdMeters, func(r models.DistanceRecord) error {
					local = append(local, r)
					return nil
				})
				rows[i-start] = local
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for k := 0; k < end-start; k++ {
			for _, r := range rows[k] {
				if err := emit(r); err != nil {
					return err
				}
			}
			rows[k] = nil
		}

		if opts.OnProgress != nil {
			opts.OnProgress(end, total, "")
		}
	}

	if opts.Logger != nil {
		opts.Logger("Pair scan completed.")
	}
	return nil
}
