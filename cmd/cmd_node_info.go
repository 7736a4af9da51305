package cmd

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/internal/usecase"
	"github.com/spf13/cobra"
)

func NewNodeInfoCommand(root *rootCmdOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "node-info",
		Short: "Show the sync status of the configured Bitcoin node",
		RunE: func(cmd *cobra.Command, args []string) error {
			return nodeInfoHandler(root, cmd, args)
		},
	}
}

func nodeInfoHandler(root *rootCmdOptions, cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	p := newPrompter(root.stdin(cmd), out, true)
	return runUsecase(cmd.Context(), root.config, p, out, func(ctx context.Context, uc *usecase.Usecase) error {
		info, err := uc.NodeInfo(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = fmt.Fprintf(out, "Chain   : %s\nBlocks  : %d\nHeaders : %d\nSynced  : %t\n", info.Chain, info.Blocks, info.Headers, info.Synced())
		return errors.WithStack(err)
	})
}
