package txbuilder

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/common/errs"
	"github.com/gaze-network/inscriber/internal/runes"
	"github.com/gaze-network/inscriber/internal/wallet"
	"github.com/gaze-network/inscriber/pkg/btcutils"
)

// MintOutputIndex is the output carrying the minted runes and the funds of the next hop.
const MintOutputIndex = 1

type MintChainParams struct {
	// Mint wallet. Owns output 1 of the commit and of every hop except the last.
	Wallet       *wallet.Wallet
	Runestone    runes.Runestone
	Count        int
	CommitTxID   chainhash.Hash
	CommitAmount int64
	PerMintFee   int64
	Destination  btcutils.Address
}

// CreateMintTxs creates a chain of Count mints. Mint i spends output 1 of mint i-1, the first one spends the commit.
// Each hop pays PerMintFee and the last one sends the remainder to the destination.
func CreateMintTxs(params MintChainParams) ([]*Transaction, error) {
	if params.Count < 0 {
		return nil, errors.Wrapf(errs.InvalidArgument, "invalid mint count %d", params.Count)
	}
	pkScript, err := params.Runestone.Encipher()
	if err != nil {
		return nil, errors.Wrap(err, "can't encipher runestone")
	}

	var (
		txs    = make([]*Transaction, 0, params.Count)
		txID   = params.CommitTxID
		amount = params.CommitAmount
	)
	for i := 0; i < params.Count; i++ {
		recipient := params.Wallet.Address()
		if i == params.Count-1 {
			recipient = params.Destination
		}
		outputValue := amount - params.PerMintFee
		if outputValue < recipient.Postage() {
			return nil, errors.Wrapf(ErrInsufficientValue, "mint %d output %d sats is below postage %d", i, outputValue, recipient.Postage())
		}

		tx := wire.NewMsgTx(btcutils.TxVersion)
		tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&txID, MintOutputIndex), nil, nil))
		tx.AddTxOut(wire.NewTxOut(0, pkScript))
		tx.AddTxOut(wire.NewTxOut(outputValue, recipient.ScriptPubKey()))

		prevOut := wire.NewTxOut(amount, params.Wallet.Address().ScriptPubKey())
		signed, err := signTx(params.Wallet, tx, []*wire.TxOut{prevOut}, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "can't sign mint %d", i)
		}
		mint, err := newTransaction(signed, params.PerMintFee)
		if err != nil {
			return nil, errors.WithStack(err)
		}

		txs = append(txs, mint)
		txID = signed.TxHash()
		amount = outputValue
	}
	return txs, nil
}
