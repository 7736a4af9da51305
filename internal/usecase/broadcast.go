package usecase

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/common/errs"
	"github.com/gaze-network/inscriber/internal/broadcast"
	"github.com/gaze-network/inscriber/internal/dump"
	"github.com/gaze-network/inscriber/internal/journal"
	"github.com/gaze-network/inscriber/internal/txbuilder"
	"github.com/gaze-network/inscriber/pkg/logger"
	"github.com/gaze-network/inscriber/pkg/logger/slogx"
)

// Broadcast pushes the transactions of the saved dump again. Nothing is rebuilt or re-signed.
func (u *Usecase) Broadcast(ctx context.Context) (*broadcast.Result, error) {
	ctx = logger.WithContext(ctx, slogx.String("command", "broadcast"))
	d, err := u.readDump()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	logger.InfoContext(ctx, "Broadcasting dump",
		slogx.String("commit", d.CommitTxID),
		slogx.Int("count", d.Count),
		slogx.Bool("mint_chain", d.IsMintChain()),
	)
	return u.push(ctx, d)
}

// BroadcastStatus returns the journal entries of the dump transactions, commit first.
// Transactions that were never pushed have no entry.
func (u *Usecase) BroadcastStatus(ctx context.Context) ([]journal.Entry, error) {
	d, err := u.readDump()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	ids, err := dumpTxIDs(d)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	entries, err := u.journal.List(ctx, ids...)
	if err != nil {
		return nil, errors.Wrap(err, "can't read broadcast journal")
	}
	return entries, nil
}

func (u *Usecase) readDump() (*dump.Dump, error) {
	d, err := u.store.Read()
	if err != nil {
		return nil, errors.Wrap(err, "can't read dump")
	}
	if err := d.Validate(); err != nil {
		return nil, errors.WithStack(err)
	}
	if d.Network != "" && d.Network != u.network {
		return nil, errors.Wrapf(errs.InvalidConfig, "dump was created for network %s, current network is %s", d.Network, u.network)
	}
	return d, nil
}

// push sends reveals as parallel batches and mints as a sequential chain.
func (u *Usecase) push(ctx context.Context, d *dump.Dump) (*broadcast.Result, error) {
	var (
		result *broadcast.Result
		err    error
	)
	if d.IsMintChain() {
		result, err = u.chain.PushChain(ctx, d.CommitTxHex, d.MintTxHexes)
	} else {
		result, err = u.batch.PushTransactions(ctx, d.CommitTxHex, d.RevealTxHexes)
	}
	if result != nil {
		u.logResult(ctx, result)
	}
	if err != nil {
		return result, errors.Wrap(err, "broadcast failed")
	}
	return result, nil
}

func (u *Usecase) logResult(ctx context.Context, result *broadcast.Result) {
	if result.CommitTxID != "" {
		logger.SuccessContext(ctx, "Commit transaction", slogx.String("url", u.network.TxURL(result.CommitTxID)))
	}
	for _, txID := range result.Submitted {
		logger.SuccessContext(ctx, "Submitted", slogx.String("url", u.network.TxURL(txID)))
	}
	for _, txID := range result.Skipped {
		logger.WarnContext(ctx, "Skipped, inputs already spent", slogx.String("txid", txID))
	}
	for _, txID := range result.Dropped {
		logger.WarnContext(ctx, "Dropped", slogx.String("txid", txID))
	}
	logger.InfoContext(ctx, "Broadcast finished",
		slogx.Int("submitted", len(result.Submitted)),
		slogx.Int("skipped", len(result.Skipped)),
		slogx.Int("dropped", len(result.Dropped)),
	)
}

// dumpTxIDs returns the commit id followed by the child ids, decoding the hex when an id is missing.
func dumpTxIDs(d *dump.Dump) ([]string, error) {
	hexes := append([]string{d.CommitTxHex}, d.RevealTxHexes...)
	hexes = append(hexes, d.MintTxHexes...)
	ids := append([]string{d.CommitTxID}, d.RevealTxIDs...)
	ids = append(ids, d.MintTxIDs...)
	if len(ids) == len(hexes) && d.CommitTxID != "" {
		return ids, nil
	}

	ids = make([]string, 0, len(hexes))
	for _, txHex := range hexes {
		tx, err := txbuilder.DecodeTransaction(txHex)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		ids = append(ids, tx.ID)
	}
	return ids, nil
}
