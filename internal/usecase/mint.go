package usecase

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/internal/config"
	"github.com/gaze-network/inscriber/internal/dump"
	"github.com/gaze-network/inscriber/internal/runes"
	"github.com/gaze-network/inscriber/internal/txbuilder"
	"github.com/gaze-network/inscriber/internal/wallet"
	"github.com/gaze-network/inscriber/pkg/btcutils"
	"github.com/gaze-network/inscriber/pkg/logger"
	"github.com/gaze-network/inscriber/pkg/logger/slogx"
)

// MintRune mints the configured rune rune.repeat times.
//
// The commit mints once into output 1 and funds a chain of repeat-1 mints signed by a throwaway
// mint wallet. The last mint of the chain pays the destination. With repeat 1 there is no chain
// and the commit pays the destination directly.
func (u *Usecase) MintRune(ctx context.Context) (*Outcome, error) {
	ctx = logger.WithContext(ctx, slogx.String("command", "mint-rune"))
	if err := u.config.ValidateRune(); err != nil {
		return nil, errors.WithStack(err)
	}
	runeID, err := runes.ParseRuneID(u.config.Rune.ID)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	repeat := u.config.Rune.Repeat
	if repeat > config.MaxRuneRepeat {
		logger.WarnContext(ctx, fmt.Sprintf("Mint count should be less than %d", config.MaxRuneRepeat),
			slogx.Int("repeat", repeat),
			slogx.Int("capped", config.MaxRuneRepeat),
		)
		repeat = config.MaxRuneRepeat
	}

	f, err := u.prepare(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	runestone := runes.NewMintRunestone(runeID, txbuilder.MintOutputIndex)
	mintWallet, err := wallet.Random(btcutils.AddressP2TR, f.wallet.Net())
	if err != nil {
		return nil, errors.WithStack(err)
	}
	mintWIF, err := mintWallet.WIF()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	perMintFee, err := txbuilder.EstimateMintFee(mintWallet, runestone, []btcutils.Address{mintWallet.Address(), f.destination}, f.feeRate)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	mintFee := perMintFee*int64(repeat-1) + f.destination.Postage()

	recipient := f.destination
	if repeat > 1 {
		recipient = mintWallet.Address()
	}
	commit, err := txbuilder.CreateCommitTx(txbuilder.CommitParams{
		Wallet:    f.wallet,
		UTXOs:     f.utxos,
		Outputs:   []txbuilder.Output{{Address: recipient, Value: mintFee}},
		FeeRate:   f.feeRate,
		Runestone: &runestone,
		EnableRBF: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "can't create commit transaction")
	}

	mints, err := txbuilder.CreateMintTxs(txbuilder.MintChainParams{
		Wallet:       mintWallet,
		Runestone:    runestone,
		Count:        repeat - 1,
		CommitTxID:   commit.MsgTx.TxHash(),
		CommitAmount: mintFee,
		PerMintFee:   perMintFee,
		Destination:  f.destination,
	})
	if err != nil {
		return nil, errors.Wrap(err, "can't create mint transactions")
	}
	logger.DebugContext(ctx, "Built mint transactions",
		slogx.String("commit", commit.ID),
		slogx.Int64("per_mint_fee", perMintFee),
		slogx.Int("mints", len(mints)),
	)

	d := u.newDump(f, commit, mints, true, repeat)
	d.Rune = runeID.String()
	d.MintWallet = &dump.MintWallet{
		Address:    mintWallet.Address().String(),
		PrivateKey: mintWIF,
	}
	return u.execute(ctx, &Plan{
		Title:           "Rune",
		Subject:         runeID.String(),
		Count:           repeat,
		Payment:         f.wallet.Address(),
		Destination:     f.destination,
		FeeRate:         f.feeRate,
		Commit:          commit,
		Children:        mints,
		ServiceFee:      mintFee,
		ServiceFeeLabel: "Mint fee",
		NetworkFee:      commit.Fee,
		Dump:            d,
	})
}
