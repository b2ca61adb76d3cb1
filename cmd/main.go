package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	db "github.com/sayden/fqsort"
	"github.com/sayden/fqsort/core"
	"github.com/sayden/fqsort/fs"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thehivecorporation/log"
)

var (
	cfg       = db.NewDefaultConfig()
	partial   = string(db.PartialReject)
	keepGoing bool
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "fqsort [flags] FILE...",
	Short: "sort files bigger than memory",
	Long: `
  Sorts every FILE independently into FILE.out using an external merge sort.
  Lines are grouped in units of --lineunit lines (4 for FASTQ reads, 1 for
  plain text) and a unit is never split.
`,
	Args:              cobra.MinimumNArgs(1),
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              runSort,
}

func init() {
	addSortFlags(rootCmd.PersistentFlags())
	rootCmd.Flags().BoolVar(&keepGoing, "keep-going", false, "continue with the next file when one fails")
	rootCmd.AddCommand(serveCmd)
}

func addSortFlags(f *pflag.FlagSet) {
	f.StringVarP(&cfg.Memory, "mem", "m", db.DEFAULT_MEMORY, "amount of memory to use for sorting")
	f.IntVarP(&cfg.UnitSize, "lineunit", "l", db.DEFAULT_UNIT_SIZE, "number of lines processed as a unit, 4 for FASTQ files, 1 for regular files")
	f.StringVar(&cfg.WorkDir, "workdir", cfg.WorkDir, "folder for intermediate blocks on the local filesystem")
	f.StringVar(&cfg.Filesystem, "fs", cfg.Filesystem, "where blocks are stored: local, memory or s3")
	f.StringVar(&cfg.Selector, "selector", cfg.Selector, "merge selection strategy: list or btree")
	f.StringVar(&cfg.Key, "key", cfg.Key, "sort key: record, header or hash")
	f.Uint32Var(&cfg.HashSeed, "seed", 0, "seed of the hash key order")
	f.StringVar(&partial, "partial", partial, "truncated trailing unit policy: reject or drop")
	f.StringVar(&cfg.S3Config.Bucket, "s3-bucket", "", "bucket for blocks when --fs=s3")
	f.StringVar(&cfg.S3Config.Region, "s3-region", cfg.S3Config.Region, "region of the S3 bucket")
	f.StringVar(&cfg.S3Config.Endpoint, "s3-endpoint", "", "custom S3 endpoint, e.g. a local minio")
	f.StringVar(&cfg.S3Config.Prefix, "s3-prefix", "", "key prefix for blocks in the bucket")
	f.StringVar(&cfg.S3Config.AccessKey, "s3-access-key", "", "static access key, the default AWS credential chain is used otherwise")
	f.StringVar(&cfg.S3Config.SecretKey, "s3-secret-key", "", "static secret key, set together with --s3-access-key")
	f.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func setup(cmd *cobra.Command, args []string) error {
	if verbose {
		log.SetLevel(log.LevelDebug)
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		log.SetLevel(log.LevelInfo)
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg.Partial = db.PartialPolicy(partial)
	// always derived from --mem
	cfg.BlockSize = 0
	return cfg.Validate()
}

func runSort(cmd *cobra.Command, args []string) error {
	blocks, err := fs.NewFilesystem(cfg)
	if err != nil {
		return err
	}

	sorter, err := core.NewExternalSort(cfg, blocks)
	if err != nil {
		return err
	}

	all, err := sorter.SortAll(args, keepGoing)
	for _, s := range all {
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s: %d records, %d blocks of %s, %s\n",
			s.Input, s.Output, s.Records, s.Blocks, humanize.IBytes(uint64(cfg.BlockSize)), s.Elapsed)
	}

	return err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
