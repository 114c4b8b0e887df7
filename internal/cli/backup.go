package cli

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/gourmet/internal/exchange"
)

// stdoutPath selects standard output as the export target.
const stdoutPath = "-"

func (a *app) newExportCmd() *cobra.Command {
	var (
		out      string
		format   string
		compress bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a backup of every record",
		Long: `Export writes all records, ids and creation times included, to a backup file
named <prefix>_YYYY-MM-DD.json in the current directory unless --out is given.
Use --out - to write to standard output. Without --compress, an --out name
ending in .zst selects compression.

Example:
  gourmet export
  gourmet export --format jsonl --compress
  gourmet export --out backup.json`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := exchange.Options{
				Format:   exchange.Format(format),
				Compress: a.settings.exportCompress,
			}
			fs := cmd.Flags()
			switch {
			case fs.Changed("compress"):
				opts.Compress = compress
			case out != "" && out != stdoutPath:
				opts.Compress = exchange.CompressedPath(out)
			}
			if out != "" && out != stdoutPath && !fs.Changed("format") {
				opts.Format = exchange.FormatFromPath(out)
			}
			if !opts.Format.Valid() {
				return fmt.Errorf("%w: unknown format %q", errUsage, format)
			}

			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if out == stdoutPath {
				_, err := s.exchange.Export(cmd.Context(), cmd.OutOrStdout(), opts)
				return err
			}

			var buf bytes.Buffer
			res, err := s.exchange.Export(cmd.Context(), &buf, opts)
			if err != nil {
				return err
			}
			if out == "" {
				out = exchange.FileName(a.settings.exportPrefix, time.Now(), opts)
			}
			if err := exchange.WriteFile(out, buf.Bytes()); err != nil {
				return fmt.Errorf("write backup: %w", err)
			}

			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{"path": out, "count": res.Count})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d records to %s\n", res.Count, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, or - for stdout")
	cmd.Flags().StringVar(&format, "format", string(exchange.FormatJSON), "json or jsonl")
	cmd.Flags().BoolVar(&compress, "compress", false, "zstd-compress the backup")
	return cmd
}

func (a *app) newImportCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Add the records of a backup file",
		Long: `Import reads a backup written by export (JSON array or JSON Lines, plain or
zstd-compressed) and adds every record under a new id. Existing records are
never overwritten, so importing the same file twice duplicates its records.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open backup: %w", err)
			}
			defer f.Close()

			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			confirm := &promptConfirmer{in: bufio.NewReader(cmd.InOrStdin()), out: cmd.OutOrStdout(), yes: yes}
			outcome, err := s.exchange.Import(cmd.Context(), f,
				exchange.Options{Format: exchange.FormatFromPath(path)}, confirm)
			if err != nil {
				if outcome.Imported > 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "Imported %d records before the failure (batch %s)\n",
						outcome.Imported, outcome.BatchID)
				}
				return err
			}

			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"batch": outcome.BatchID.String(), "imported": outcome.Imported, "ids": outcome.IDs,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d records (batch %s)\n", outcome.Imported, outcome.BatchID)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "import without asking")
	return cmd
}
