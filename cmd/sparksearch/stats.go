package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sparklabs/sparksearch/internal/tabular"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show columns and numeric ranges of the ingested data",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStats(cmd)
	},
}

func runStats(cmd *cobra.Command) error {
	st, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	cols, err := st.Columns(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "COLUMN\tKIND\tMIN\tMAX")

	for _, col := range cols {
		min, max := "-", "-"
		if col.Kind == tabular.KindNumeric {
			if stats, err := st.ColumnStats(cmd.Context(), col.Name); err == nil {
				min = tabular.CellString(stats.Min)
				max = tabular.CellString(stats.Max)
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", col.Name, col.Kind, min, max)
	}
	return w.Flush()
}
