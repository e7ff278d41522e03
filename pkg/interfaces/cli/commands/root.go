package commands

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/vsinha/relief/pkg/infrastructure/config"
	"github.com/vsinha/relief/pkg/infrastructure/logging"
)

// globalOptions are the flags every subcommand shares
type globalOptions struct {
	configFile string
	backend    string
	storePath  string
	logLevel   string
}

// NewRootCommand builds the relief command tree
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "relief",
		Short:         "Allocate relief supplies from hubs to camps",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetGlobalNormalizationFunc(wordSepNormalizeFunc)

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "Path to YAML config file")
	flags.StringVar(&opts.backend, "backend", "", "Store backend override: file, memory, dynamodb")
	flags.StringVar(&opts.storePath, "store-path", "", "Snapshot path override for the file backend")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level override: debug, info, warn, error")

	cmd.AddCommand(
		newServeCommand(opts),
		newSeedCommand(opts),
		newReportCommand(opts),
	)
	return cmd
}

// load resolves configuration with flag overrides applied last and builds
// the logger
func (o *globalOptions) load() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	if o.backend != "" {
		cfg.Store.Backend = o.backend
	}
	if o.storePath != "" {
		cfg.Store.Path = o.storePath
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return config.Config{}, nil, errors.Wrap(err, "failed to build logger")
	}
	return cfg, logger, nil
}

// wordSepNormalizeFunc accepts store_path as well as store-path so flag
// names can be copied from the YAML keys
func wordSepNormalizeFunc(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}
