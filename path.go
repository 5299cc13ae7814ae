package main

import (
	"encoding/json"
	"fmt"
	"io"

	"city-distance/internal/pathfinder"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type cliPath struct {
	root *cliRoot
}

func NewCLIPath(root *cliRoot) *cliPath {
	return &cliPath{root: root}
}

type pathStep struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func renderPath(out io.Writer, format string, p pathfinder.Path) error {
	steps := make([]pathStep, len(p.Nodes))
	for i, n := range p.Nodes {
		steps[i] = pathStep{Name: n.Name, Latitude: n.Loc.Lat, Longitude: n.Loc.Lon}
	}

	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Path      []pathStep `json:"path"`
			TotalCost float64    `json:"totalCost"`
		}{steps, p.Meters})
	case "human":
		t := table.NewWriter()
		t.SetOutputMirror(out)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"#", "Place", "Latitude", "Longitude"})
		for i, s := range steps {
			t.AppendRow(table.Row{i + 1, s.Name, s.Latitude, s.Longitude})
		}
		t.AppendFooter(table.Row{"", "Total", "", fmt.Sprintf("%.2f km", p.Meters/1000)})
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 3, Align: text.AlignRight},
			{Number: 4, Align: text.AlignRight, AlignFooter: text.AlignRight},
		})
		t.Render()
		return nil
	default:
		return fmt.Errorf("output format: unknown format %q, expected human or json", format)
	}
}

func (cli *cliPath) NewCommand() *cobra.Command {
	var (
		results string
		sheet   string
		output  string
	)

	cmd := &cobra.Command{
		Use:   "path <start> <end>",
		Short: "Find the shortest route between two places over a distance table",
		Long: "Every row of the distance table is a hop. The route may only use hops shorter\n" +
			"than the threshold the table was generated with. A place is given by name, or\n" +
			"as \"lat,lon\" to start from the closest place of the table.",
		Args:              cobra.ExactArgs(2),
		DisableAutoGenTag: true,
		Example: `$ city-distance path Delhi Agra
$ city-distance path "28.61,77.21" "27.17,78.01" --results city_distances.csv -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := cli.root.cfg
			if !cmd.Flags().Changed("results") {
				results = cfg.OutputPath
			}
			if !cmd.Flags().Changed("sheet") {
				sheet = cfg.OutputSheet
			}

			g, err := pathfinder.Load(results, sheet)
			if err != nil {
				return err
			}
			log.Debugf("Loaded %d places and %d hops from %s", g.Nodes(), g.Edges(), results)

			p, err := g.Find(args[0], args[1])
			if err != nil {
				return err
			}
			return renderPath(cmd.OutOrStdout(), output, p)
		},
	}

	flags := cmd.Flags()
	flags.SortFlags = false
	flags.StringVarP(&results, "results", "r", "", "Distance table written by generate (default: output_path)")
	flags.StringVar(&sheet, "sheet", "", "Workbook sheet of the distance table (default: output_sheet)")
	flags.StringVarP(&output, "output", "o", "human", "Output format: human or json")

	return cmd
}
