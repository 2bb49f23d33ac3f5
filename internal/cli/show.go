package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/JonMunkholm/suppliers/internal/core"
	"github.com/JonMunkholm/suppliers/internal/dataset"
	"github.com/spf13/cobra"
)

type showOptions struct {
	filters []string
	sorts   []string
}

func newShowCommand(root *rootOptions) *cobra.Command {
	opts := &showOptions{}
	cmd := &cobra.Command{
		Use:   "show <file>",
		Short: "Print the rows of a CSV file",
		Long: `Print the rows of a CSV file as a table. The first column is the row
index used by edit and delete.

Filters are written column=op:value, where op is one of contains, eq,
starts, ends, gt, gte, lt, lte. Without an op the filter is contains.
Filters combine with AND. Sort keys are column or column:desc and apply in
the order given.

Examples:
  suppliers show fornecedores.csv
  suppliers show fornecedores.csv --filter "Primeiro Fornecedor=acme"
  suppliers show fornecedores.csv --filter "Soma de Saldo=gt:100" --sort "Soma de Saldo:desc"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, root, opts, args[0])
		},
	}
	cmd.Flags().StringArrayVar(&opts.filters, "filter", nil, "filter rows, column=op:value (repeatable)")
	cmd.Flags().StringArrayVar(&opts.sorts, "sort", nil, "sort rows, column[:asc|desc] (repeatable)")
	return cmd
}

func runShow(cmd *cobra.Command, root *rootOptions, opts *showOptions, path string) error {
	var q dataset.ViewQuery
	for _, f := range opts.filters {
		filter, err := core.ParseFilter(f)
		if err != nil {
			return core.NewUserError(err)
		}
		q.Filters = append(q.Filters, filter)
	}
	for _, s := range opts.sorts {
		spec, err := core.ParseSort(s)
		if err != nil {
			return core.NewUserError(err)
		}
		q.Sort = append(q.Sort, spec)
	}

	eng, err := root.open(path)
	if err != nil {
		return err
	}
	res, err := eng.View(q)
	if err != nil {
		return core.NewUserError(err)
	}

	out := cmd.OutOrStdout()
	if err := writeRows(out, res, core.DisplayOrder(res.Columns, root.columns)); err != nil {
		return err
	}
	if len(res.Rows) == res.Total {
		fmt.Fprintf(out, "\n%d rows\n", res.Total)
	} else {
		fmt.Fprintf(out, "\n%d of %d rows\n", len(res.Rows), res.Total)
	}
	return nil
}

// writeRows prints rows as aligned columns. Cells keep their stored text.
func writeRows(w io.Writer, res *dataset.ViewResult, cols []string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "#\t%s\n", strings.Join(cols, "\t"))
	for _, vr := range res.Rows {
		cells := make([]string, len(cols))
		for i, col := range cols {
			cells[i] = cellText(vr.Row[col].String())
		}
		fmt.Fprintf(tw, "%d\t%s\n", vr.Index, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// cellText keeps tabs and newlines inside a cell from breaking alignment.
func cellText(s string) string {
	return strings.NewReplacer("\t", " ", "\r\n", " ", "\n", " ").Replace(s)
}

func newInfoCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "Print file metadata and the table shape",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := root.open(args[0])
			if err != nil {
				return err
			}
			info, _ := eng.SourceInfo()
			sum := core.Summarize(info)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "File:\t%s\n", sum.Name)
			fmt.Fprintf(tw, "Path:\t%s\n", sum.Path)
			fmt.Fprintf(tw, "Size:\t%s\n", sum.SizeText)
			fmt.Fprintf(tw, "Modified:\t%s\n", sum.Modified)
			fmt.Fprintf(tw, "Rows:\t%d\n", eng.RowCount())
			fmt.Fprintf(tw, "Columns:\t%s\n", strings.Join(eng.Columns(), ", "))
			return tw.Flush()
		},
	}
}

func newSumCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sum <file> <column>",
		Short: "Sum, average, minimum and maximum of a numeric column",
		Long: `Aggregate the numeric cells of a column. Empty cells are ignored;
non-numeric cells are counted as skipped.

Example:
  suppliers sum fornecedores.csv "Soma de Saldo"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := root.open(args[0])
			if err != nil {
				return err
			}
			agg, err := eng.Aggregate(args[1])
			if err != nil {
				return core.NewUserError(err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "Column:\t%s\n", agg.Column)
			fmt.Fprintf(tw, "Numeric cells:\t%d\n", agg.Count)
			fmt.Fprintf(tw, "Skipped:\t%d\n", agg.Skipped)
			fmt.Fprintf(tw, "Sum:\t%s\n", core.FormatNumber(agg.Sum))
			fmt.Fprintf(tw, "Average:\t%s\n", core.FormatNumber(agg.Avg))
			fmt.Fprintf(tw, "Min:\t%s\n", core.FormatNumber(agg.Min))
			fmt.Fprintf(tw, "Max:\t%s\n", core.FormatNumber(agg.Max))
			return tw.Flush()
		},
	}
}
