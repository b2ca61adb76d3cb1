package main

import (
	"github.com/sayden/fqsort/fs"
	"github.com/sayden/fqsort/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "sort files over HTTP",
	Long: `
  Starts an HTTP server. POST /v1/sort with {"files": ["reads.fq"]} sorts
  files under --root on the server's disk; the sort flags act as defaults.
`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&cfg.Server.Addr, "addr", cfg.Server.Addr, "address to listen on")
	serveCmd.Flags().StringVar(&cfg.Server.Root, "root", cfg.Server.Root, "data directory requested files are relative to")
}

func runServe(cmd *cobra.Command, args []string) error {
	blocks, err := fs.NewFilesystem(cfg)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, blocks)
	if err != nil {
		return err
	}

	return srv.Run()
}
