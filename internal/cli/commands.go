package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/recares/dme-matcher/internal/app"
)

func newSweepCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Send expiration warnings for listings reaching the warning age today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(a *app.App) error {
				res, err := a.Service.SweepExpirations(cmd.Context())
				if err != nil {
					return err
				}
				return opts.output(cmd.OutOrStdout(), res)
			})
		},
	}
}

func newResyncCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resync",
		Short: "Reconcile every opt-out request against the main sheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(a *app.App) error {
				res, err := a.Service.Resync(cmd.Context())
				if err != nil {
					return err
				}
				return opts.output(cmd.OutOrStdout(), res)
			})
		},
	}
}

func newEnsureSchemaCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-schema",
		Short: "Append missing tracking columns and print the field handles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(a *app.App) error {
				h, err := a.Service.EnsureSchema(cmd.Context())
				if err != nil {
					return err
				}
				if err := h.RequireOptIn(); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v (label %q)\n", err, a.Config.Matching.OptInLabel)
				}
				return opts.output(cmd.OutOrStdout(), h)
			})
		},
	}
}

func newSubmitCommand(opts *RootOptions) *cobra.Command {
	var sheet string
	cmd := &cobra.Command{
		Use:   "submit [flags] -- <value>...",
		Short: "Store a form response and process it",
		Long: `Store a form response given as positional cell values and run the
matching handler for it. An empty first value is replaced by the current time.
Use --sheet main or --sheet opt-out, or a literal sheet name.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(a *app.App) error {
				name := sheet
				switch sheet {
				case "main":
					name = a.Config.Sheets.Main
				case "opt-out":
					name = a.Config.Sheets.OptOut
				}
				res, err := a.Service.Submit(cmd.Context(), name, args)
				if res != nil {
					if outErr := opts.output(cmd.OutOrStdout(), res); outErr != nil && err == nil {
						err = outErr
					}
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&sheet, "sheet", "main", "target sheet (main|opt-out|<name>)")
	return cmd
}

func newSnapshotCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect archived sheet snapshots",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show <key>",
		Short: "Print the row counts of an archived snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(a *app.App) error {
				if a.Storage == nil {
					return fmt.Errorf("snapshot storage is disabled (storage.type is none)")
				}
				snap, err := a.Storage.Load(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				rows := make(map[string]int, len(snap.Sheets))
				for name, g := range snap.Sheets {
					rows[name] = g.Len()
				}
				return opts.output(cmd.OutOrStdout(), map[string]any{
					"taken_at": snap.TakenAt,
					"rows":     rows,
				})
			})
		},
	})
	return cmd
}
