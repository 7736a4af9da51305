package cmd

import (
	"bufio"
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/common"
	"github.com/gaze-network/inscriber/internal/config"
	"github.com/gaze-network/inscriber/pkg/logger"
	"github.com/spf13/cobra"
)

// annotationSkipConfig marks commands that run without loading the config file.
const annotationSkipConfig = "skip-config"

type rootCmdOptions struct {
	ConfigFile string
	Network    string

	config config.Config
	input  *bufio.Reader
}

// stdin returns the reader shared by the menu and the confirmation prompt.
func (opts *rootCmdOptions) stdin(cmd *cobra.Command) *bufio.Reader {
	if opts.input == nil {
		opts.input = bufio.NewReader(cmd.InOrStdin())
	}
	return opts.input
}

func NewRootCommand() *cobra.Command {
	opts := &rootCmdOptions{}

	cmd := &cobra.Command{
		Use:           "inscriber",
		Short:         "Inscribe text and files, mint runes and broadcast the results",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(opts, cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return menuHandler(opts, cmd, args)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigFile, "config", "", "config file, E.g. `./config.yaml`")
	flags.StringVar(&opts.Network, "network", string(common.NetworkBitcoinMainnet), "network to use, one of `btc-mainnet`, `btc-testnet`, `fractal-mainnet` or `fractal-testnet`")

	cmd.AddCommand(
		NewInscribeTextCommand(opts),
		NewInscribeFileCommand(opts),
		NewMintRuneCommand(opts),
		NewBroadcastCommand(opts),
		NewNodeInfoCommand(opts),
		NewInitCommand(opts),
		NewGenerateWalletCommand(opts),
		NewVersionCommand(),
	)
	return cmd
}

func loadConfig(opts *rootCmdOptions, cmd *cobra.Command) error {
	if cmd.Annotations[annotationSkipConfig] != "" {
		return nil
	}
	conf, err := config.Load(opts.ConfigFile, cmd.Flags())
	if err != nil {
		return errors.WithStack(err)
	}
	if err := logger.Init(conf.Logger); err != nil {
		return errors.Wrap(err, "can't initialize logger")
	}
	opts.config = conf
	return nil
}

// Execute runs the command line. Failures are logged and never turned into a non-zero exit status.
func Execute(ctx context.Context) {
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.WarnContext(ctx, "Interrupted")
			return
		}
		logger.ErrorContext(ctx, "Something went wrong", err)
	}
}
