package cli

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/JonMunkholm/suppliers/internal/core"
	"github.com/JonMunkholm/suppliers/internal/dataset"
	"github.com/spf13/cobra"
)

// writeOptions holds the output flag of the mutating commands.
type writeOptions struct {
	out string
}

func (w *writeOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&w.out, "out", "o", "", "write the result here instead of overwriting the input file")
}

// target returns the output path for input.
func (w *writeOptions) target(input string) string {
	if w.out != "" {
		return w.out
	}
	return input
}

// save writes the engine's table to path and prints what changed.
func save(cmd *cobra.Command, root *rootOptions, eng *dataset.Engine, path, summary string) error {
	if err := eng.Save(path); err != nil {
		return core.NewUserError(err)
	}
	info, err := eng.RecordSourceInfo(path)
	if err != nil {
		return core.NewUserError(err)
	}
	root.logger.Info("table saved", "path", path, "rows", eng.RowCount(), "size", info.Size)
	fmt.Fprintf(cmd.OutOrStdout(), "%s; wrote %d rows to %s (%s)\n",
		summary, eng.RowCount(), info.Name, core.FormatSize(info.Size))
	return nil
}

func parseRowArg(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, core.NewUserError(fmt.Errorf("%w: row %q is not a number", core.ErrBadRequest, s))
	}
	return n, nil
}

func newEditCommand(root *rootOptions) *cobra.Command {
	opts := &writeOptions{}
	cmd := &cobra.Command{
		Use:   "edit <file> <row> <column> <value>",
		Short: "Set one cell",
		Long: `Set the cell at row and column to value. The value is stored exactly as
given. Pass "" to clear the cell.

Example:
  suppliers edit fornecedores.csv 3 "Primeiro Fornecedor" "Acme Ltda"`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := parseRowArg(args[1])
			if err != nil {
				return err
			}
			eng, err := root.open(args[0])
			if err != nil {
				return err
			}
			if err := eng.EditCell(row, args[2], dataset.Value(args[3])); err != nil {
				return core.NewUserError(err)
			}
			return save(cmd, root, eng, opts.target(args[0]), fmt.Sprintf("Set row %d %q", row, args[2]))
		},
	}
	opts.bind(cmd)
	return cmd
}

type addOptions struct {
	writeOptions
	rows      []string
	fillEmpty bool
}

func newAddCommand(root *rootOptions) *cobra.Command {
	opts := &addOptions{}
	cmd := &cobra.Command{
		Use:   "add <file> --row col=value,col=value ...",
		Short: "Append rows",
		Long: `Append rows to the end of the table. Each --row is one row, written as a
comma-separated list of column=value pairs. Quote a pair that contains a
comma, CSV style. Every column must be given unless --fill-empty is set.

Example:
  suppliers add fornecedores.csv \
    --row 'Material=M-900,Soma de Saldo=10,Último UM pedido=KG,Data de remessa mais recente=2024-05-01,"Primeiro Fornecedor=Delta, Filho"'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(opts.rows) == 0 {
				return core.NewUserError(fmt.Errorf("%w: no --row given", core.ErrBadRequest))
			}
			eng, err := root.open(args[0])
			if err != nil {
				return err
			}

			rows := make([]dataset.Row, 0, len(opts.rows))
			for _, spec := range opts.rows {
				row, err := parseRowSpec(spec)
				if err != nil {
					return core.NewUserError(err)
				}
				if opts.fillEmpty {
					for _, col := range eng.Columns() {
						if _, ok := row[col]; !ok {
							row[col] = dataset.Empty()
						}
					}
				}
				rows = append(rows, row)
			}

			if err := eng.AddRows(rows); err != nil {
				return core.NewUserError(err)
			}
			return save(cmd, root, eng, opts.target(args[0]), fmt.Sprintf("Added %d rows", len(rows)))
		},
	}
	cmd.Flags().StringArrayVar(&opts.rows, "row", nil, "row to append as col=value pairs (repeatable)")
	cmd.Flags().BoolVar(&opts.fillEmpty, "fill-empty", false, "leave columns not given empty")
	opts.bind(cmd)
	return cmd
}

// parseRowSpec parses "col=value,col=value" with CSV quoting.
func parseRowSpec(spec string) (dataset.Row, error) {
	r := csv.NewReader(strings.NewReader(spec))
	r.LazyQuotes = true
	fields, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: row %q: %v", core.ErrBadRequest, spec, err)
	}

	row := make(dataset.Row, len(fields))
	for _, f := range fields {
		col, val, ok := strings.Cut(f, "=")
		col = strings.TrimSpace(col)
		if !ok || col == "" {
			return nil, fmt.Errorf("%w: %q must look like column=value", core.ErrBadRequest, f)
		}
		if _, dup := row[col]; dup {
			return nil, fmt.Errorf("%w: column %q given twice", core.ErrBadRequest, col)
		}
		row[col] = dataset.Value(val)
	}
	return row, nil
}

func newDeleteCommand(root *rootOptions) *cobra.Command {
	opts := &writeOptions{}
	cmd := &cobra.Command{
		Use:   "delete <file> <row>...",
		Short: "Delete rows by index",
		Long: `Delete the rows at the given indices. Indices refer to the file as it is
now, so "delete f.csv 2 4" removes the third and fifth rows.

Example:
  suppliers delete fornecedores.csv 2 4 --out limpo.csv`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			indices := make([]int, 0, len(args)-1)
			for _, a := range args[1:] {
				n, err := parseRowArg(a)
				if err != nil {
					return err
				}
				indices = append(indices, n)
			}
			eng, err := root.open(args[0])
			if err != nil {
				return err
			}
			before := eng.RowCount()
			if err := eng.DeleteRows(indices); err != nil {
				return core.NewUserError(err)
			}
			return save(cmd, root, eng, opts.target(args[0]), fmt.Sprintf("Deleted %d rows", before-eng.RowCount()))
		},
	}
	opts.bind(cmd)
	return cmd
}

func newExportCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file> <dest>",
		Short: "Write a copy of the table to another file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := root.open(args[0])
			if err != nil {
				return err
			}
			if err := eng.Export(args[1]); err != nil {
				return core.NewUserError(err)
			}
			info, err := eng.RecordSourceInfo(args[1])
			if err != nil {
				return core.NewUserError(err)
			}
			root.logger.Info("table exported", "from", args[0], "to", args[1])
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d rows to %s (%s)\n",
				eng.RowCount(), info.Name, core.FormatSize(info.Size))
			return nil
		},
	}
}
