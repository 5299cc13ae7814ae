package main

import (
	"context"
	"fmt"
	"net"
	"os"

	"city-distance/internal/config"
	"city-distance/internal/server"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type cliServe struct {
	root *cliRoot
}

func NewCLIServe(root *cliRoot) *cliServe {
	return &cliServe{root: root}
}

// listenAddr applies the PORT environment variable to the configured address.
func listenAddr(listen, port string) (string, error) {
	if port == "" {
		return listen, nil
	}
	host, _, err := net.SplitHostPort(listen)
	if err != nil {
		return "", fmt.Errorf("listen address %q: %w", listen, err)
	}
	return net.JoinHostPort(host, port), nil
}

func (cli *cliServe) serve(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)

	srv, err := server.New(ctx, cfg, log.StandardLogger())
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

func (cli *cliServe) NewCommand() *cobra.Command {
	var (
		listen    string
		uploadDir string
		outputDir string
	)

	cmd := &cobra.Command{
		Use:   "serve [options]",
		Short: "Run the HTTP job server",
		Long: "Accepts point tables on POST /run, computes them in the background and serves\n" +
			"the results from /download-result/<filename>. Progress is available on /logs\n" +
			"and /status, and a running job can be stopped with POST /cancel.",
		Args:              cobra.NoArgs,
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := cli.root.cfg
			flags := cmd.Flags()

			if flags.Changed("listen") {
				cfg.Server.Listen = listen
			} else {
				addr, err := listenAddr(cfg.Server.Listen, os.Getenv("PORT"))
				if err != nil {
					return err
				}
				cfg.Server.Listen = addr
			}
			if flags.Changed("upload-dir") {
				cfg.Server.UploadDir = uploadDir
			}
			if flags.Changed("output-dir") {
				cfg.Server.OutputDir = outputDir
			}

			return cli.serve(cmd.Context(), cfg)
		},
	}

	defaults := config.Default()

	flags := cmd.Flags()
	flags.SortFlags = false
	flags.StringVarP(&listen, "listen", "l", defaults.Server.Listen, "Address to listen on (PORT overrides the port)")
	flags.StringVar(&uploadDir, "upload-dir", defaults.Server.UploadDir, "Directory for uploaded point tables")
	flags.StringVar(&outputDir, "output-dir", defaults.Server.OutputDir, "Directory for result tables")

	return cmd
}
