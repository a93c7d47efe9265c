package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/haystack/summary"
)

func newSummaryCmd() *cobra.Command {
	var (
		maxRows int
		width   int
		plain   bool
	)

	cmd := &cobra.Command{
		Use:   "summary <record-log>",
		Short: "Print per-needle match counts of a record log",
		Long: `Aggregates a record log (00_all_output_record.jsonl) by needle and prints
the match count and the largest offset of every needle, ordered by
happiness level, then count.

A partially written last line, as left by an interrupted scan, is ignored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := summary.Summarize(cmd.Context(), args[0], summary.Config{
				MaxRows: maxRows,
				Width:   width,
				Styled:  !plain,
			})
			if err != nil {
				return fmt.Errorf("failed to summarize %s: %w", args[0], err)
			}
			cmd.Println(table)
			return nil
		},
	}

	cmd.Flags().IntVar(&maxRows, "max-rows", 0, "Maximum rows to print (0 prints all)")
	cmd.Flags().IntVar(&width, "width", 0, "Maximum table width (0 is unbounded)")
	cmd.Flags().BoolVar(&plain, "plain", false, "Disable styling")

	return cmd
}
