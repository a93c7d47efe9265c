// Package cli implements the haystack command line.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/haystack/internal/version"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "haystack",
		Short: "Haystack - find byte needles in very large haystacks",
		Long: `Search files, streams and object storage for a set of byte patterns.

Every needle is searched for in a single pass. Each match is written as a
JSON record and, if the needle asks for it, with the bytes around it.

Examples:
  # Scan a disk image
  haystack scan -i disk.img -n needles.yaml -o ./results

  # Scan a compressed image from S3 and upload the results
  haystack scan -i s3://evidence/disk.img.zst -n needles.yaml --export s3://evidence/results/

  # Print the per-needle summary of a finished run
  haystack summary ./results/results__disk.img__2024-03-01T12_30_45/00_all_output_record.jsonl`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newSummaryCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("Haystack version %s\n", version.Version)
			cmd.Printf("Git commit: %s\n", version.GitCommit)
			cmd.Printf("Build date: %s\n", version.BuildDate)
			cmd.Printf("Go version: %s\n", version.GoVersion)
		},
	}
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
