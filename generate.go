package main

import (
	"context"

	"city-distance/internal/config"
	"city-distance/internal/pipeline"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type cliGenerate struct {
	root *cliRoot
}

func NewCLIGenerate(root *cliRoot) *cliGenerate {
	return &cliGenerate{root: root}
}

func (cli *cliGenerate) generate(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	opts := pipeline.OptionsFromConfig(cfg)
	opts.Logger = log.StandardLogger()
	opts.OnProgress = func(current, total int, _ string) {
		log.Debugf("Scanned %d/%d points", current, total)
	}

	summary, err := pipeline.Run(ctx, opts)
	if err != nil {
		return err
	}

	log.Infof("%d pairs within %.0fm among %d points written to %s in %s",
		summary.Rows, cfg.ThresholdMeters, summary.Points, summary.Output, summary.Elapsed)
	return nil
}

func (cli *cliGenerate) NewCommand() *cobra.Command {
	var (
		input        string
		output       string
		threshold    float64
		workers      int
		legacyHeader bool
		nameColumn   string
		latColumn    string
		lonColumn    string
		inputSheet   string
		outputSheet  string
	)

	cmd := &cobra.Command{
		Use:   "generate [options]",
		Short: "Write every ordered pair of points closer than the threshold",
		Long: "Reads the point table, computes the geodesic distance of every ordered pair\n" +
			"(i, j) with i != j and writes the pairs strictly closer than the threshold.\n" +
			"Files ending in .xlsx are read and written as workbooks, anything else as CSV.",
		Args:              cobra.NoArgs,
		DisableAutoGenTag: true,
		Example: `india_city.csv:
city,city_ascii,lat,lng
Delhi,Delhi,28.6600,77.2300

$ city-distance generate -i india_city.csv -o city_distances.csv --threshold 100000

$ city-distance generate -i pos.xlsx --input-sheet Pos --name-column name -o near.xlsx`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := cli.root.cfg
			flags := cmd.Flags()

			if flags.Changed("input") {
				cfg.InputPath = input
			}
			if flags.Changed("output") {
				cfg.OutputPath = output
			}
			if flags.Changed("threshold") {
				cfg.ThresholdMeters = threshold
			}
			if flags.Changed("workers") {
				cfg.Workers = workers
			}
			if flags.Changed("legacy-header") {
				cfg.LegacyHeader = legacyHeader
			}
			if flags.Changed("name-column") {
				cfg.Columns.Name = nameColumn
			}
			if flags.Changed("lat-column") {
				cfg.Columns.Latitude = latColumn
			}
			if flags.Changed("lon-column") {
				cfg.Columns.Longitude = lonColumn
			}
			if flags.Changed("input-sheet") {
				cfg.InputSheet = inputSheet
			}
			if flags.Changed("output-sheet") {
				cfg.OutputSheet = outputSheet
			}

			return cli.generate(cmd.Context(), cfg)
		},
	}

	defaults := config.Default()

	flags := cmd.Flags()
	flags.SortFlags = false
	flags.StringVarP(&input, "input", "i", defaults.InputPath, "Point table (.csv or .xlsx)")
	flags.StringVarP(&output, "output", "o", defaults.OutputPath, "Result table (.csv or .xlsx)")
	flags.Float64VarP(&threshold, "threshold", "t", defaults.ThresholdMeters, "Keep pairs strictly closer than this many meters")
	flags.IntVarP(&workers, "workers", "w", defaults.Workers, "Goroutines scanning rows, 0 for one per CPU")
	flags.BoolVar(&legacyHeader, "legacy-header", false, "Write the three-label header from_city,to_city,distance")
	flags.StringVar(&nameColumn, "name-column", defaults.Columns.Name, "Header of the name column")
	flags.StringVar(&latColumn, "lat-column", defaults.Columns.Latitude, "Header of the latitude column")
	flags.StringVar(&lonColumn, "lon-column", defaults.Columns.Longitude, "Header of the longitude column")
	flags.StringVar(&inputSheet, "input-sheet", "", "Workbook sheet to read, first sheet when empty")
	flags.StringVar(&outputSheet, "output-sheet", defaults.OutputSheet, "Workbook sheet to write")

	return cmd
}
