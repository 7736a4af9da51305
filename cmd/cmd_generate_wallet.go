package cmd

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/common"
	"github.com/gaze-network/inscriber/common/errs"
	"github.com/gaze-network/inscriber/internal/wallet"
	"github.com/gaze-network/inscriber/pkg/btcutils"
	"github.com/spf13/cobra"
)

type generateWalletCmdOptions struct {
	root *rootCmdOptions
}

func NewGenerateWalletCommand(root *rootCmdOptions) *cobra.Command {
	opts := &generateWalletCmdOptions{root: root}

	return &cobra.Command{
		Use:   "generate-wallet",
		Short: "Generate a new funding wallet for the selected network",
		RunE: func(cmd *cobra.Command, args []string) error {
			return generateWalletHandler(opts, cmd, args)
		},
	}
}

func generateWalletHandler(opts *generateWalletCmdOptions, cmd *cobra.Command, _ []string) error {
	network := opts.root.config.Network
	if !network.IsSupported() {
		return errors.Wrapf(errs.Unsupported, "%q network is not supported, must be one of %v", network, common.Networks)
	}
	privateKey, err := btcec.NewPrivateKey()
	if err != nil {
		return errors.Wrap(errs.SomethingWentWrong, "can't generate private key")
	}

	taproot, err := wallet.New(privateKey, btcutils.AddressP2TR, network.ChainParams())
	if err != nil {
		return errors.WithStack(err)
	}
	segwit, err := wallet.New(privateKey, btcutils.AddressP2WPKH, network.ChainParams())
	if err != nil {
		return errors.WithStack(err)
	}
	wif, err := taproot.WIF()
	if err != nil {
		return errors.WithStack(err)
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Network : %s\nWIF     : %s\nP2TR    : %s\nP2WPKH  : %s\n", network, wif, taproot.Address(), segwit.Address())
	return errors.WithStack(err)
}
