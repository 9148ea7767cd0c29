package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	checkFlags requestFlags
	checkJSON  bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Render every group's message without sending anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		out, err := a.Preview(checkFlags.request("check"))
		if err != nil {
			return err
		}
		if checkJSON {
			return printJSON(cmd.OutOrStdout(), out)
		}
		w := cmd.OutOrStdout()
		failed := 0
		for _, r := range out {
			fmt.Fprintf(w, "=== %s\n", r.Group)
			if r.Error != "" {
				failed++
				fmt.Fprintf(w, "!! %s\n\n", r.Error)
				continue
			}
			fmt.Fprintf(w, "%s\n\n", r.Body)
		}
		fmt.Fprintf(w, "%d groups, %d would fail to render\n", len(out), failed)
		return nil
	},
}

func init() {
	checkFlags.register(checkCmd)
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "print JSON")
	rootCmd.AddCommand(checkCmd)
}
