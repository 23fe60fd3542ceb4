package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/mwantia/chemviz/cmd/chemviz/cli/render"
	"github.com/mwantia/chemviz/internal/app"
	"github.com/mwantia/chemviz/pkg/dataset"
	"github.com/mwantia/chemviz/pkg/db/store"
	"github.com/mwantia/chemviz/pkg/ingest"
	"github.com/mwantia/chemviz/pkg/report"
	"github.com/spf13/cobra"
)

func NewUploadCommand() *cobra.Command {
	var owner, name, contentType string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload an equipment CSV file",
		Long:  "Validate an equipment CSV file, store it with its analytics summary and apply the retention limit of the owner.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			return withApp(cmd, "", func(ctx context.Context, a *app.App) error {
				result, err := a.Ingest.Ingest(ctx, session(owner), &ingest.Source{
					FileName:    filepath.Base(args[0]),
					Name:        name,
					ContentType: contentType,
					Data:        data,
				})
				if err != nil {
					var rejected *ingest.Error
					if errors.As(err, &rejected) {
						printRejection(cmd.ErrOrStderr(), rejected)
					}
					return err
				}

				printResult(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}

	addOwnerFlag(cmd, &owner)
	cmd.Flags().StringVar(&name, "name", "", "display name (defaults to the file name)")
	cmd.Flags().StringVar(&contentType, "content-type", "", "MIME type to check against the allow list")

	return cmd
}

func printResult(w io.Writer, result *ingest.Result) {
	v := result.Validation
	fmt.Fprintf(w, "%s %d\n", render.Label("Upload:"), result.ID)
	fmt.Fprintf(w, "%s %s\n", render.Label("Name:"), result.Name)
	fmt.Fprintf(w, "%s %s\n", render.Label("Uploaded:"), result.UploadedAt.Local().Format(report.TimeLayout))
	fmt.Fprintf(w, "%s %d total, %d accepted, %d rejected\n", render.Label("Rows:"), v.TotalRows, v.AcceptedRows, v.RejectedRows)

	rows := [][]string{
		{"Total Equipment", strconv.Itoa(result.Summary.TotalEquipment)},
		{"Average Flowrate", report.FormatNumber(result.Summary.AvgFlowrate)},
		{"Average Pressure", report.FormatNumber(result.Summary.AvgPressure)},
		{"Average Temperature", report.FormatNumber(result.Summary.AvgTemperature)},
	}
	for _, share := range report.SortedTypes(result.Summary.TypeDistribution) {
		rows = append(rows, []string{"Type " + share.Type, strconv.Itoa(share.Count)})
	}
	fmt.Fprintln(w, render.Table([]string{"Metric", "Value"}, rows))

	printRowErrors(w, v.RowErrors)
}

func printRejection(w io.Writer, rejected *ingest.Error) {
	fmt.Fprintln(w, render.Error(rejected.Message))

	switch data := rejected.Data.(type) {
	case *dataset.SchemaError:
		fmt.Fprintf(w, "%s %v\n", render.Label("Missing columns:"), data.Missing)
		fmt.Fprintf(w, "%s %v\n", render.Label("Received columns:"), data.Received)
	case dataset.ValidationSummary:
		fmt.Fprintf(w, "%s %d total, %d rejected\n", render.Label("Rows:"), data.TotalRows, data.RejectedRows)
		printRowErrors(w, data.RowErrors)
	}
}

func printRowErrors(w io.Writer, errs []dataset.RowError) {
	if len(errs) == 0 {
		return
	}
	rows := make([][]string, 0, len(errs))
	for _, e := range errs {
		rows = append(rows, []string{strconv.Itoa(e.Row), e.Column, e.Message})
	}
	fmt.Fprintln(w, render.Table([]string{"Row", "Column", "Message"}, rows))
}

func NewHistoryCommand() *cobra.Command {
	var owner string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the latest uploads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, "", func(ctx context.Context, a *app.App) error {
				entries, err := a.Ingest.History(ctx, session(owner), limit)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No datasets available.")
					return nil
				}

				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{
						strconv.FormatUint(uint64(e.ID), 10),
						e.Name,
						humanize.Time(e.UploadedAt),
						strconv.Itoa(e.RowCount),
						strconv.Itoa(e.AcceptedRows),
						strconv.Itoa(e.RejectedRows),
						humanize.IBytes(uint64(max(e.FileSizeBytes, 0))),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), render.Table(
					[]string{"ID", "Name", "Uploaded", "Rows", "Accepted", "Rejected", "Size"}, rows))
				return nil
			})
		},
	}

	addOwnerFlag(cmd, &owner)
	cmd.Flags().IntVar(&limit, "limit", ingest.DefaultHistoryLimit, "number of uploads to list")

	return cmd
}

func NewRowsCommand() *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "rows",
		Short: "Show the rows of the latest readable upload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, "", func(ctx context.Context, a *app.App) error {
				latest, err := a.Ingest.LatestRows(ctx, session(owner))
				if err != nil {
					return err
				}
				if !latest.Found {
					fmt.Fprintln(cmd.OutOrStdout(), latest.Message)
					return nil
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%s %d %s (%s)\n", render.Label("Upload:"), latest.ID, latest.Name,
					latest.UploadedAt.Local().Format(report.TimeLayout))
				fmt.Fprintln(cmd.OutOrStdout(), render.Table(latest.Columns, latest.Rows))
				return nil
			})
		},
	}

	addOwnerFlag(cmd, &owner)

	return cmd
}

func NewReportCommand(version string) *cobra.Command {
	var owner, output string

	cmd := &cobra.Command{
		Use:   "report [id]",
		Short: "Render the PDF report of an upload",
		Long:  "Render the PDF analytics report of an upload, or of the latest upload when no id is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id uint64
			if len(args) == 1 {
				parsed, err := strconv.ParseUint(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid upload id '%s'", args[0])
				}
				id = parsed
			}

			return withApp(cmd, version, func(ctx context.Context, a *app.App) error {
				sess := session(owner)

				var out *report.Output
				var err error
				if len(args) == 1 {
					out, err = a.Reports.Render(ctx, sess.OwnerRef(), uint(id))
				} else {
					out, err = a.Reports.RenderLatest(ctx, sess.OwnerRef())
				}
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("dataset not found or access denied")
				}
				if err != nil {
					return err
				}

				path := output
				if path == "" {
					path = out.FileName
				}
				if err := os.WriteFile(path, out.Data, 0o644); err != nil {
					return fmt.Errorf("failed to write report: %w", err)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s)\n", path, humanize.IBytes(uint64(len(out.Data))))
				if out.Degraded {
					fmt.Fprintln(cmd.OutOrStdout(), "Raw CSV data could not be loaded; the report only covers stored summary values.")
				}
				return nil
			})
		},
	}

	addOwnerFlag(cmd, &owner)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (default chemviz-report-<id>.pdf)")

	return cmd
}

func NewDeleteCommand() *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an upload and its raw file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid upload id '%s'", args[0])
			}

			return withApp(cmd, "", func(ctx context.Context, a *app.App) error {
				if err := a.Ingest.Delete(ctx, session(owner), uint(id)); err != nil {
					if errors.Is(err, store.ErrNotFound) {
						return fmt.Errorf("dataset not found or access denied")
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted upload %d\n", id)
				return nil
			})
		},
	}

	addOwnerFlag(cmd, &owner)

	return cmd
}
