// Package cli implements the suppliers command line tool. Every command
// loads a CSV file into a fresh engine, runs one operation and, for the
// mutating commands, writes the result back out.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"

	"github.com/JonMunkholm/suppliers/internal/config"
	"github.com/JonMunkholm/suppliers/internal/core"
	"github.com/JonMunkholm/suppliers/internal/dataset"
	"github.com/JonMunkholm/suppliers/internal/logging"
	"github.com/spf13/cobra"
)

// Version is reported by --version.
var Version = "0.1.0"

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	logLevel    string
	logFormat   string
	maxFileSize int64
	columns     []string

	logger *slog.Logger
}

// NewRootCommand builds the command tree. Log defaults come from LOG_LEVEL
// and LOG_FORMAT; logs go to stderr so stdout stays machine-readable.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	logDefaults, err := config.LoadLogging()
	if err != nil {
		logDefaults = config.LoggingConfig{Level: "info", Format: "text"}
	}

	cmd := &cobra.Command{
		Use:   "suppliers",
		Short: "Inspect and edit supplier CSV exports",
		Long: `suppliers loads a supplier CSV export, shows or changes its rows and
writes the result back.

Rows are addressed by their 0-based position in the file, as printed in the
first column of "suppliers show". Put -- before arguments that start with a
dash, such as a negative number or a value like "-5".

Examples:
  suppliers show fornecedores.csv --sort "Soma de Saldo:desc"
  suppliers edit fornecedores.csv 3 "Primeiro Fornecedor" "Acme Ltda"
  suppliers delete fornecedores.csv 2 4 --out limpo.csv
  suppliers sum fornecedores.csv "Soma de Saldo"`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lc := config.LoggingConfig{Level: opts.logLevel, Format: opts.logFormat}
			if err := lc.Validate(); err != nil {
				return err
			}
			opts.logger = logging.New(cmd.ErrOrStderr(), opts.logLevel, opts.logFormat)
			return nil
		},
	}

	cmd.SetFlagErrorFunc(flagError)

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.logLevel, "log-level", logDefaults.Level, "log level: debug, info, warn, error")
	flags.StringVar(&opts.logFormat, "log-format", logDefaults.Format, "log format: text or json")
	flags.Int64Var(&opts.maxFileSize, "max-file-size", dataset.DefaultMaxFileSize, "largest CSV file to load, in bytes")
	flags.StringSliceVar(&opts.columns, "columns", core.SupplierColumns, "columns to show first, in order")

	cmd.AddCommand(
		newShowCommand(opts),
		newInfoCommand(opts),
		newSumCommand(opts),
		newEditCommand(opts),
		newAddCommand(opts),
		newDeleteCommand(opts),
		newExportCommand(opts),
	)
	return cmd
}

// negativeIndex matches pflag's error for an argument such as -1, which it
// reads as a cluster of shorthand flags.
var negativeIndex = regexp.MustCompile(`^unknown shorthand flag: '\d' in (-\d+)$`)

// flagError reports a negative row index as the out-of-range failure the
// engine gives for it, instead of an unknown flag.
func flagError(cmd *cobra.Command, err error) error {
	if m := negativeIndex.FindStringSubmatch(err.Error()); m != nil {
		return core.NewUserError(fmt.Errorf("%w: row %s", dataset.ErrOutOfRange, m[1]))
	}
	return err
}

// Execute runs the command line with args and reports errors on stderr.
func Execute(args []string, stdout, stderr io.Writer) error {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err != nil {
		fmt.Fprintln(stderr, "Error:", describe(err))
	}
	return err
}

// describe renders engine failures as user messages and leaves usage
// errors from cobra as they are.
func describe(err error) string {
	var ue *core.UserError
	if errors.As(err, &ue) {
		return core.FormatUserError(ue.Technical)
	}
	return err.Error()
}

// engine returns a fresh engine configured from the root flags.
func (o *rootOptions) engine() *dataset.Engine {
	return dataset.NewEngine(dataset.Config{
		MaxFileSize: o.maxFileSize,
		Logger:      o.logger,
	})
}

// open loads path into a fresh engine and records its metadata.
func (o *rootOptions) open(path string) (*dataset.Engine, error) {
	eng := o.engine()
	t, err := eng.Load(path)
	if err != nil {
		return nil, core.NewUserError(err)
	}
	if _, err := eng.RecordSourceInfo(path); err != nil {
		return nil, core.NewUserError(err)
	}
	o.logger.Debug("file opened", "path", path, "rows", t.RowCount())
	return eng, nil
}
