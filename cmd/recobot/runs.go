package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	runsLimit int
	runsJSON  bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent audited runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		runs, err := a.RecentRuns(ctx, runsLimit)
		if err != nil {
			return err
		}
		if runsJSON {
			return printJSON(cmd.OutOrStdout(), runs)
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "STARTED\tRUN\tMODE\tTRIGGER\tGROUPS\tOK\tFAIL\tTOOK\tERROR")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
				r.StartedAt.Local().Format(time.DateTime), r.RunID, r.Mode, r.Trigger,
				r.Groups, r.OK, r.Fail, time.Duration(r.TookMS)*time.Millisecond, r.Error)
		}
		return tw.Flush()
	},
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "number of runs")
	runsCmd.Flags().BoolVar(&runsJSON, "json", false, "print JSON")
	rootCmd.AddCommand(runsCmd)
}
