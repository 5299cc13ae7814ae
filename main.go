package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"city-distance/internal/config"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type cliRoot struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg *config.Config
}

// initialize loads the configuration and sets up logging before any subcommand runs.
func (cli *cliRoot) initialize(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(cli.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = cli.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = cli.logFormat
	}

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(level)

	switch cfg.Log.Format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("log format: unknown format %q, expected text or json", cfg.Log.Format)
	}

	if cli.configPath != "" {
		log.Debugf("Configuration loaded from %s", cli.configPath)
	}
	cli.cfg = cfg
	return nil
}

func (cli *cliRoot) NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "city-distance",
		Short: "Find every pair of places closer than a distance threshold",
		Long: "city-distance reads a table of named points (CSV or XLSX), computes the WGS-84\n" +
			"geodesic distance of every ordered pair and writes the pairs closer than the\n" +
			"threshold to a result table.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return cli.initialize(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&cli.configPath, "config", "c", os.Getenv("CITYDIST_CONFIG"), "YAML configuration file")
	flags.StringVar(&cli.logLevel, "log-level", "info", "Log level: trace,debug,info,warn,error")
	flags.StringVar(&cli.logFormat, "log-format", "text", "Log format: text or json")

	cmd.AddCommand(NewCLIGenerate(cli).NewCommand())
	cmd.AddCommand(NewCLIServe(cli).NewCommand())
	cmd.AddCommand(NewCLIPath(cli).NewCommand())

	return cmd
}

func main() {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warnf("Ignoring .env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := &cliRoot{}
	if err := root.NewCommand().ExecuteContext(ctx); err != nil {
		stop()
		log.Fatal(err)
	}
}
