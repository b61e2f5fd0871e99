package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sparklabs/sparksearch/internal/core"
	"github.com/sparklabs/sparksearch/internal/filter"
	"github.com/sparklabs/sparksearch/internal/tabular"
)

var (
	flagTextFilters  []string
	flagRangeFilters []string
	flagOutput       string
	flagFormat       string
)

var searchCmd = &cobra.Command{
	Use:   "search <file>",
	Short: "Search a CSV or Excel file without a server",
	Long: `Search loads the given file, applies the requested filters in memory
and prints the matching rows. Text filters match case-insensitive
substrings, range filters match numbers inclusively on both ends.

Examples:
  sparksearch search resumes.csv --text name=smith
  sparksearch search resumes.xlsx --range salary=40000,90000 -o hits.csv
  sparksearch search resumes.csv --range experience= --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSearch(cmd, args[0])
	},
}

func init() {
	searchCmd.Flags().StringArrayVar(&flagTextFilters, "text", nil, "text filter as column=pattern (repeatable)")
	searchCmd.Flags().StringArrayVar(&flagRangeFilters, "range", nil, "range filter as column=low,high (bounds optional, repeatable)")
	searchCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "write results to a file instead of stdout")
	searchCmd.Flags().StringVar(&flagFormat, "format", "", "output format: csv, json or xlsx (default csv for files, table for stdout)")
}

func runSearch(cmd *cobra.Command, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	service := core.NewService(nil, cfg)
	sess := service.NewLocalSession()

	summary, err := service.HandleUpload(cmd.Context(), sess, path, data)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Loaded %d rows, %d columns from %s\n",
		summary.Rows, len(summary.Columns), summary.FileName)

	selections, err := parseSelections(flagTextFilters, flagRangeFilters)
	if err != nil {
		return err
	}

	result, err := service.Search(cmd.Context(), sess, selections)
	if err != nil {
		return err
	}

	for _, warn := range result.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s: %s\n", warn.Column, warn.Message)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%d matching rows\n", result.Count)

	if flagOutput != "" {
		return writeResultFile(result.Table, flagOutput, flagFormat)
	}

	if flagFormat != "" {
		format, err := core.ParseExportFormat(flagFormat)
		if err != nil {
			return err
		}
		return core.Export(cmd.OutOrStdout(), result.Table, format)
	}

	printTable(cmd, result.Table)
	return nil
}

// parseSelections converts --text and --range flags into filter selections.
func parseSelections(textFlags, rangeFlags []string) ([]filter.Selection, error) {
	var selections []filter.Selection

	for _, f := range textFlags {
		col, pattern, ok := strings.Cut(f, "=")
		if !ok || col == "" {
			return nil, fmt.Errorf("invalid --text filter %q, want column=pattern", f)
		}
		selections = append(selections, filter.Selection{
			Column:  col,
			Kind:    filter.SelectText,
			Pattern: pattern,
		})
	}

	for _, f := range rangeFlags {
		col, bounds, ok := strings.Cut(f, "=")
		if !ok || col == "" {
			return nil, fmt.Errorf("invalid --range filter %q, want column=low,high", f)
		}
		sel := filter.Selection{Column: col, Kind: filter.SelectRange}
		if bounds != "" {
			lowStr, highStr, _ := strings.Cut(bounds, ",")
			low, err := strconv.ParseFloat(strings.TrimSpace(lowStr), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid lower bound in --range filter %q", f)
			}
			high, err := strconv.ParseFloat(strings.TrimSpace(highStr), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid upper bound in --range filter %q", f)
			}
			sel.Low = low
			sel.High = high
			sel.HasBounds = true
		}
		selections = append(selections, sel)
	}

	return selections, nil
}

// writeResultFile exports the result table to a file, inferring the format
// from the extension when --format is not given.
func writeResultFile(tbl *tabular.Table, path, format string) error {
	if format == "" {
		switch strings.ToLower(strings.TrimPrefix(filepathExt(path), ".")) {
		case "json":
			format = "json"
		case "xlsx":
			format = "xlsx"
		default:
			format = "csv"
		}
	}

	exportFormat, err := core.ParseExportFormat(format)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if err := core.Export(f, tbl, exportFormat); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func filepathExt(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i:]
	}
	return ""
}

// printTable writes rows as aligned columns for terminal reading.
func printTable(cmd *cobra.Command, tbl *tabular.Table) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(tbl.Columns, "\t"))

	for _, row := range tbl.Rows {
		cells := make([]string, len(tbl.Columns))
		for i, col := range tbl.Columns {
			cells[i] = tabular.CellString(row[col])
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	w.Flush()
}
