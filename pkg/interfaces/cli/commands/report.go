package commands

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/vsinha/relief/pkg/interfaces/cli/output"
)

func newReportCommand(global *globalOptions) *cobra.Command {
	opts := output.Config{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print hub stock and per camp coverage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := global.load()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			store, err := NewStore(cfg.Store, logger, nil)
			if err != nil {
				return err
			}
			snapshot, err := store.Load(cmd.Context())
			if err != nil {
				return errors.Wrap(err, "failed to load snapshot")
			}

			return output.Generate(cmd.OutOrStdout(), output.NewReport(snapshot), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "text", "Output format: text, json, csv")
	cmd.Flags().StringVarP(&opts.OutputDir, "output", "o", "", "Write report files to this directory instead of stdout")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Name written files")
	return cmd
}
