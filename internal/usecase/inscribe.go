package usecase

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/common/errs"
	"github.com/gaze-network/inscriber/internal/ordinals"
	"github.com/gaze-network/inscriber/internal/txbuilder"
	"github.com/gaze-network/inscriber/pkg/btcutils"
	"github.com/gaze-network/inscriber/pkg/logger"
	"github.com/gaze-network/inscriber/pkg/logger/slogx"
	"github.com/samber/lo"
)

// InscribeText inscribes the configured text text.repeat times. Every copy reveals the same tapscript.
func (u *Usecase) InscribeText(ctx context.Context) (*Outcome, error) {
	ctx = logger.WithContext(ctx, slogx.String("command", "inscribe-text"))
	if err := u.config.ValidateText(); err != nil {
		return nil, errors.WithStack(err)
	}
	f, err := u.prepare(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	text := u.config.Text.Content
	tapScript, err := ordinals.NewTapScript(f.wallet.PubKey(), ordinals.NewTextInscription(text), f.wallet.Net())
	if err != nil {
		return nil, errors.Wrap(err, "can't create inscription tapscript")
	}
	item, err := u.revealItem(f, tapScript)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	repeat := u.config.Text.Repeat
	plan, err := u.planInscriptions(ctx, f, lo.Times(repeat, func(int) txbuilder.RevealItem { return item }))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	plan.Title, plan.Subject = "Inscription", text
	plan.Dump.SetInscriptionText(text)
	return u.execute(ctx, plan)
}

// InscribeFiles inscribes every regular file of files.dir, in name order. Hidden files are skipped.
func (u *Usecase) InscribeFiles(ctx context.Context) (*Outcome, error) {
	ctx = logger.WithContext(ctx, slogx.String("command", "inscribe-file"))
	if err := u.config.ValidateFiles(); err != nil {
		return nil, errors.WithStack(err)
	}
	names, err := listFiles(u.config.Files.Dir)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	f, err := u.prepare(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	items := make([]txbuilder.RevealItem, 0, len(names))
	for _, name := range names {
		inscription, err := ordinals.ReadFileInscription(filepath.Join(u.config.Files.Dir, name))
		if err != nil {
			return nil, errors.WithStack(err)
		}
		tapScript, err := ordinals.NewTapScript(f.wallet.PubKey(), inscription, f.wallet.Net())
		if err != nil {
			return nil, errors.Wrapf(err, "can't create tapscript of %s", name)
		}
		item, err := u.revealItem(f, tapScript)
		if err != nil {
			return nil, errors.Wrapf(err, "file %s", name)
		}
		logger.DebugContext(ctx, "Prepared file",
			slogx.String("file", name),
			slogx.String("content_type", inscription.ContentType),
			slogx.Int("size", len(inscription.Content)),
			slogx.Int64("reveal_amount", item.InputValue),
		)
		items = append(items, item)
	}

	plan, err := u.planInscriptions(ctx, f, items)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	plan.Title, plan.Subject = "Files", strings.Join(names, ", ")
	plan.Dump.Files = names
	return u.execute(ctx, plan)
}

// revealItem funds one reveal: its fee at the plan fee rate plus the destination postage.
func (u *Usecase) revealItem(f *funding, tapScript *ordinals.TapScript) (txbuilder.RevealItem, error) {
	vsize, err := txbuilder.EstimateRevealSize(f.wallet, tapScript, f.destination)
	if err != nil {
		return txbuilder.RevealItem{}, errors.WithStack(err)
	}
	return txbuilder.RevealItem{
		TapScript:  tapScript,
		InputValue: btcutils.FeeForVSize(vsize, f.feeRate) + f.destination.Postage(),
	}, nil
}

// planInscriptions builds the commit locking one output per item and the reveals spending them.
func (u *Usecase) planInscriptions(ctx context.Context, f *funding, items []txbuilder.RevealItem) (*Plan, error) {
	outputs := lo.Map(items, func(item txbuilder.RevealItem, _ int) txbuilder.Output {
		return txbuilder.Output{Address: item.TapScript.Address, Value: item.InputValue}
	})
	commit, err := txbuilder.CreateCommitTx(txbuilder.CommitParams{
		Wallet:  f.wallet,
		UTXOs:   f.utxos,
		Outputs: outputs,
		FeeRate: f.feeRate,
	})
	if err != nil {
		return nil, errors.Wrap(err, "can't create commit transaction")
	}

	reveals, err := txbuilder.CreateRevealTxs(txbuilder.RevealBatchParams{
		Wallet:      f.wallet,
		CommitTxID:  commit.MsgTx.TxHash(),
		Destination: f.destination,
		Postage:     f.destination.Postage(),
		Items:       items,
	})
	if err != nil {
		return nil, errors.Wrap(err, "can't create reveal transactions")
	}
	logger.DebugContext(ctx, "Built inscription transactions",
		slogx.String("commit", commit.ID),
		slogx.Int64("commit_vsize", commit.VirtualSize),
		slogx.Int("reveals", len(reveals)),
	)

	return &Plan{
		Count:           len(items),
		Payment:         f.wallet.Address(),
		Destination:     f.destination,
		FeeRate:         f.feeRate,
		Commit:          commit,
		Children:        reveals,
		ServiceFee:      lo.SumBy(items, func(item txbuilder.RevealItem) int64 { return item.InputValue }),
		ServiceFeeLabel: "Inscribe fee",
		NetworkFee:      commit.Fee,
		Dump:            u.newDump(f, commit, reveals, false, len(items)),
	}, nil
}

func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrapf(errs.NotFound, "files directory %s does not exist", dir)
		}
		return nil, errors.Wrapf(err, "can't read files directory %s", dir)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	if len(names) == 0 {
		return nil, errors.Wrapf(errs.NotFound, "no files to inscribe in %s", dir)
	}
	return names, nil
}
