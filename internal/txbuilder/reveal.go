package txbuilder

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/common/errs"
	"github.com/gaze-network/inscriber/internal/ordinals"
	"github.com/gaze-network/inscriber/internal/wallet"
	"github.com/gaze-network/inscriber/pkg/btcutils"
)

type RevealParams struct {
	// Wallet whose untweaked key is the internal key of TapScript.
	Wallet     *wallet.Wallet
	CommitTxID chainhash.Hash
	// Index of the commit output locked to TapScript
	Index       uint32
	InputValue  int64
	Destination btcutils.Address
	// Value of the inscription output
	Postage   int64
	TapScript *ordinals.TapScript
}

// CreateRevealTx spends the commit output through the inscription leaf and sends Postage to the destination.
// Everything above Postage is paid as fee.
func CreateRevealTx(params RevealParams) (*Transaction, error) {
	fee := params.InputValue - params.Postage
	if fee < 0 {
		return nil, errors.Wrapf(ErrInsufficientValue, "reveal input %d sats can't cover postage %d sats", params.InputValue, params.Postage)
	}
	if params.Postage < params.Destination.Postage() {
		return nil, errors.Wrapf(errs.InvalidArgument, "postage %d is below the dust limit %d of %s", params.Postage, params.Destination.Postage(), params.Destination)
	}

	tx, err := buildRevealTx(params)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return newTransaction(tx, fee)
}

func buildRevealTx(params RevealParams) (*wire.MsgTx, error) {
	tx := wire.NewMsgTx(btcutils.TxVersion)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&params.CommitTxID, params.Index), nil, nil))
	tx.AddTxOut(wire.NewTxOut(params.Postage, params.Destination.ScriptPubKey()))

	prevOut := wire.NewTxOut(params.InputValue, params.TapScript.PkScript())
	signed, err := signTx(params.Wallet, tx, []*wire.TxOut{prevOut}, params.TapScript)
	if err != nil {
		return nil, errors.Wrap(err, "can't sign reveal transaction")
	}
	return signed, nil
}

type RevealItem struct {
	TapScript  *ordinals.TapScript
	InputValue int64
}

type RevealBatchParams struct {
	Wallet      *wallet.Wallet
	CommitTxID  chainhash.Hash
	Destination btcutils.Address
	Postage     int64
	// Items[i] spends commit output i
	Items []RevealItem
}

// CreateRevealTxs creates one reveal per item.
func CreateRevealTxs(params RevealBatchParams) ([]*Transaction, error) {
	txs := make([]*Transaction, 0, len(params.Items))
	for i, item := range params.Items {
		tx, err := CreateRevealTx(RevealParams{
			Wallet:      params.Wallet,
			CommitTxID:  params.CommitTxID,
			Index:       uint32(i),
			InputValue:  item.InputValue,
			Destination: params.Destination,
			Postage:     params.Postage,
			TapScript:   item.TapScript,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "reveal %d", i)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}
