package cmd

import (
	"context"

	"github.com/gaze-network/inscriber/internal/usecase"
	"github.com/gaze-network/inscriber/pkg/logger"
	"github.com/gaze-network/inscriber/pkg/logger/slogx"
	"github.com/spf13/cobra"
)

type inscribeTextCmdOptions struct {
	root   *rootCmdOptions
	Yes    bool
	Text   string
	Repeat int
}

func NewInscribeTextCommand(root *rootCmdOptions) *cobra.Command {
	opts := &inscribeTextCmdOptions{root: root}

	cmd := &cobra.Command{
		Use:   "inscribe-text",
		Short: "Inscribe the configured text",
		RunE: func(cmd *cobra.Command, args []string) error {
			return inscribeTextHandler(opts, cmd, args)
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&opts.Yes, "yes", "y", false, "Skip the confirmation prompt")
	flags.StringVar(&opts.Text, "text", "", "Text to inscribe, overrides text.content")
	flags.IntVar(&opts.Repeat, "repeat", 1, "Number of copies, overrides text.repeat")

	return cmd
}

func inscribeTextHandler(opts *inscribeTextCmdOptions, cmd *cobra.Command, _ []string) error {
	conf := opts.root.config
	if cmd.Flags().Changed("text") {
		conf.Text.Content = opts.Text
	}
	if cmd.Flags().Changed("repeat") {
		conf.Text.Repeat = opts.Repeat
	}
	p := newPrompter(opts.root.stdin(cmd), cmd.OutOrStdout(), opts.Yes)
	return runUsecase(cmd.Context(), conf, p, cmd.OutOrStdout(), func(ctx context.Context, uc *usecase.Usecase) error {
		return reportOutcome(uc.InscribeText(ctx))
	})
}

type inscribeFileCmdOptions struct {
	root *rootCmdOptions
	Yes  bool
	Dir  string
}

func NewInscribeFileCommand(root *rootCmdOptions) *cobra.Command {
	opts := &inscribeFileCmdOptions{root: root}

	cmd := &cobra.Command{
		Use:   "inscribe-file",
		Short: "Inscribe every file in the files directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return inscribeFileHandler(opts, cmd, args)
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&opts.Yes, "yes", "y", false, "Skip the confirmation prompt")
	flags.StringVar(&opts.Dir, "dir", "", "Directory of the files to inscribe, overrides files.dir")

	return cmd
}

func inscribeFileHandler(opts *inscribeFileCmdOptions, cmd *cobra.Command, _ []string) error {
	conf := opts.root.config
	if cmd.Flags().Changed("dir") {
		conf.Files.Dir = opts.Dir
	}
	p := newPrompter(opts.root.stdin(cmd), cmd.OutOrStdout(), opts.Yes)
	return runUsecase(cmd.Context(), conf, p, cmd.OutOrStdout(), func(ctx context.Context, uc *usecase.Usecase) error {
		return reportOutcome(uc.InscribeFiles(ctx))
	})
}

type mintRuneCmdOptions struct {
	root   *rootCmdOptions
	Yes    bool
	RuneID string
	Repeat int
}

func NewMintRuneCommand(root *rootCmdOptions) *cobra.Command {
	opts := &mintRuneCmdOptions{root: root}

	cmd := &cobra.Command{
		Use:   "mint-rune",
		Short: "Mint the configured rune",
		RunE: func(cmd *cobra.Command, args []string) error {
			return mintRuneHandler(opts, cmd, args)
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&opts.Yes, "yes", "y", false, "Skip the confirmation prompt")
	flags.StringVar(&opts.RuneID, "rune", "", "Rune id to mint, E.g. `840000:3`, overrides rune.id")
	flags.IntVar(&opts.Repeat, "repeat", 1, "Number of mints, overrides rune.repeat")

	return cmd
}

func mintRuneHandler(opts *mintRuneCmdOptions, cmd *cobra.Command, _ []string) error {
	conf := opts.root.config
	if cmd.Flags().Changed("rune") {
		conf.Rune.ID = opts.RuneID
	}
	if cmd.Flags().Changed("repeat") {
		conf.Rune.Repeat = opts.Repeat
	}
	p := newPrompter(opts.root.stdin(cmd), cmd.OutOrStdout(), opts.Yes)
	return runUsecase(cmd.Context(), conf, p, cmd.OutOrStdout(), func(ctx context.Context, uc *usecase.Usecase) error {
		return reportOutcome(uc.MintRune(ctx))
	})
}

func reportOutcome(outcome *usecase.Outcome, err error) error {
	if err != nil {
		return err
	}
	if outcome.Confirmed && outcome.Result != nil {
		logger.Success("Done",
			slogx.String("commit", outcome.Result.CommitTxID),
			slogx.Int("submitted", len(outcome.Result.Submitted)),
			slogx.String("dump", outcome.ArchivePath),
		)
	}
	return nil
}
