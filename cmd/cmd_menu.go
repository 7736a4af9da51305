package cmd

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/internal/usecase"
	"github.com/spf13/cobra"
)

type menuItem struct {
	title string
	run   func(ctx context.Context, uc *usecase.Usecase) error
}

var menu = []menuItem{
	{
		title: "Mint rune",
		run: func(ctx context.Context, uc *usecase.Usecase) error {
			return reportOutcome(uc.MintRune(ctx))
		},
	},
	{
		title: "Inscribe text",
		run: func(ctx context.Context, uc *usecase.Usecase) error {
			return reportOutcome(uc.InscribeText(ctx))
		},
	},
	{
		title: "Inscribe file",
		run: func(ctx context.Context, uc *usecase.Usecase) error {
			return reportOutcome(uc.InscribeFiles(ctx))
		},
	},
	{
		title: "Broadcast dump",
		run: func(ctx context.Context, uc *usecase.Usecase) error {
			_, err := uc.Broadcast(ctx)
			return errors.WithStack(err)
		},
	},
}

// menuHandler runs when no subcommand is given.
func menuHandler(opts *rootCmdOptions, cmd *cobra.Command, _ []string) error {
	p := newPrompter(opts.stdin(cmd), cmd.OutOrStdout(), false)
	titles := make([]string, 0, len(menu))
	for _, item := range menu {
		titles = append(titles, item.title)
	}
	choice, err := p.Choose(cmd.Context(), "Choose an action:", titles)
	if err != nil {
		return errors.WithStack(err)
	}
	return runUsecase(cmd.Context(), opts.config, p, cmd.OutOrStdout(), menu[choice].run)
}
