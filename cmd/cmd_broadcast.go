package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/internal/journal"
	"github.com/gaze-network/inscriber/internal/usecase"
	"github.com/spf13/cobra"
)

type broadcastCmdOptions struct {
	root   *rootCmdOptions
	Status bool
}

func NewBroadcastCommand(root *rootCmdOptions) *cobra.Command {
	opts := &broadcastCmdOptions{root: root}

	cmd := &cobra.Command{
		Use:   "broadcast",
		Short: "Broadcast the transactions of the last dump again",
		RunE: func(cmd *cobra.Command, args []string) error {
			return broadcastHandler(opts, cmd, args)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.Status, "status", false, "Print the journal entries of the dump transactions instead of broadcasting")

	return cmd
}

func broadcastHandler(opts *broadcastCmdOptions, cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	p := newPrompter(opts.root.stdin(cmd), out, true)
	return runUsecase(cmd.Context(), opts.root.config, p, out, func(ctx context.Context, uc *usecase.Usecase) error {
		if opts.Status {
			entries, err := uc.BroadcastStatus(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
			return printJournal(out, entries)
		}
		_, err := uc.Broadcast(ctx)
		return errors.WithStack(err)
	})
}

func printJournal(w io.Writer, entries []journal.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No broadcast recorded for the dump transactions")
		return errors.WithStack(err)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TXID\tSTATUS\tATTEMPTS\tUPDATED\tREASON")
	for _, entry := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", entry.TxID, entry.Status, entry.Attempts, entry.UpdatedAt.Local().Format(time.DateTime), entry.Reason)
	}
	return errors.WithStack(tw.Flush())
}
