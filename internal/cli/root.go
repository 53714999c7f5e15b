// Package cli implements dmectl, the operator command line for one-shot
// runs of the listing handlers.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/recares/dme-matcher/internal/app"
	"github.com/recares/dme-matcher/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Format     string // "json" | "text"

	// newApp builds the application; tests replace it.
	newApp func(ctx context.Context, cfg *config.Config) (*app.App, error)
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for dmectl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{newApp: app.New}

	cmd := &cobra.Command{
		Use:   "dmectl",
		Short: "Operate the DME listing matcher",
		Long:  "Run sweeps, resyncs and schema checks against the configured record store.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range ValidFormats {
				if f == opts.Format {
					return nil
				}
			}
			return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default $CONFIG_PATH or "+config.DefaultPath+")")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newSweepCommand(opts))
	cmd.AddCommand(newResyncCommand(opts))
	cmd.AddCommand(newEnsureSchemaCommand(opts))
	cmd.AddCommand(newSubmitCommand(opts))
	cmd.AddCommand(newSnapshotCommand(opts))

	return cmd
}

func (o *RootOptions) loadConfig() (*config.Config, error) {
	return config.LoadFromEnv(config.ResolvePath(o.ConfigPath))
}

// withApp builds the application, runs fn and closes it.
func (o *RootOptions) withApp(ctx context.Context, fn func(a *app.App) error) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a, err := o.newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

// output writes v as indented JSON, or as sorted key: value lines for text.
func (o *RootOptions) output(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if o.Format == "json" {
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "%s: %v\n", k, fields[k]); err != nil {
			return err
		}
	}
	return nil
}
