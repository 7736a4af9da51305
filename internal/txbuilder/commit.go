package txbuilder

import (
	"cmp"
	"slices"

	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/common/errs"
	"github.com/gaze-network/inscriber/internal/datasources"
	"github.com/gaze-network/inscriber/internal/runes"
	"github.com/gaze-network/inscriber/internal/wallet"
	"github.com/gaze-network/inscriber/pkg/btcutils"
	"github.com/samber/lo"
)

type Output struct {
	Address btcutils.Address
	Value   int64
}

type CommitParams struct {
	// Funding wallet. Change goes back to its address.
	Wallet  *wallet.Wallet
	UTXOs   []*datasources.UTXO
	Outputs []Output
	// sat/vB
	FeeRate int64
	// Optional. Written as a zero-value OP_RETURN at output 0.
	Runestone   *runes.Runestone
	AllowAssets bool
	EnableRBF   bool
}

type fundingInput struct {
	outPoint wire.OutPoint
	prevOut  *wire.TxOut
}

// CreateCommitTx funds params.Outputs from the wallet UTXOs, largest first.
// A change output is added only when the change exceeds the wallet postage, otherwise the remainder goes to fees.
func CreateCommitTx(params CommitParams) (*Transaction, error) {
	if params.FeeRate <= 0 {
		return nil, errors.Wrapf(errs.InvalidArgument, "invalid fee rate %d", params.FeeRate)
	}
	if len(params.Outputs) == 0 {
		return nil, errors.Wrap(errs.InvalidArgument, "commit transaction has no outputs")
	}
	for i, output := range params.Outputs {
		if output.Value < output.Address.Postage() {
			return nil, errors.Wrapf(errs.InvalidArgument, "output %d value %d is below the dust limit %d", i, output.Value, output.Address.Postage())
		}
	}
	if !params.AllowAssets {
		if utxo, found := lo.Find(params.UTXOs, func(u *datasources.UTXO) bool { return u.HasAssets() }); found {
			return nil, errors.Wrapf(ErrUnsafeUTXO, "%s:%d", utxo.TxID, utxo.Vout)
		}
	}

	inputs, err := fundingInputs(params.UTXOs)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var opReturn *wire.TxOut
	if params.Runestone != nil {
		pkScript, err := params.Runestone.Encipher()
		if err != nil {
			return nil, errors.Wrap(err, "can't encipher runestone")
		}
		opReturn = wire.NewTxOut(0, pkScript)
	}

	var (
		changeAddress = params.Wallet.Address()
		outputsTotal  = lo.SumBy(params.Outputs, func(o Output) int64 { return o.Value })
		inputsTotal   int64
	)
	for n := 1; n <= len(inputs); n++ {
		selected := inputs[:n]
		inputsTotal += selected[n-1].prevOut.Value
		if inputsTotal <= outputsTotal {
			continue
		}
		remainder := inputsTotal - outputsTotal

		withChange, err := buildCommitTx(params, selected, opReturn, remainder)
		if err != nil {
			return nil, err
		}
		// ECDSA signatures vary in length, so the size is measured again after
		// every re-sign. The change shrinks until the measured fee is covered.
		fee := btcutils.FeeForVSize(btcutils.VirtualSize(withChange), params.FeeRate)
		for change := remainder - fee; change > changeAddress.Postage(); change = remainder - fee {
			withChange, err = buildCommitTx(params, selected, opReturn, change)
			if err != nil {
				return nil, err
			}
			fee = btcutils.FeeForVSize(btcutils.VirtualSize(withChange), params.FeeRate)
			if paid := remainder - change; paid >= fee {
				return newTransaction(withChange, paid)
			}
		}

		withoutChange, err := buildCommitTx(params, selected, opReturn, 0)
		if err != nil {
			return nil, err
		}
		if remainder >= btcutils.FeeForVSize(btcutils.VirtualSize(withoutChange), params.FeeRate) {
			return newTransaction(withoutChange, remainder)
		}
	}

	return nil, errors.Wrapf(ErrInsufficientFunds, "need more than %d sats, wallet has %d sats", outputsTotal, inputsTotal)
}

func fundingInputs(utxos []*datasources.UTXO) ([]fundingInput, error) {
	inputs := make([]fundingInput, 0, len(utxos))
	for _, utxo := range utxos {
		outPoint, err := utxo.OutPoint()
		if err != nil {
			return nil, errors.WithStack(err)
		}
		pkScript, err := utxo.PkScript()
		if err != nil {
			return nil, errors.WithStack(err)
		}
		inputs = append(inputs, fundingInput{
			outPoint: outPoint,
			prevOut:  wire.NewTxOut(utxo.Satoshi, pkScript),
		})
	}
	slices.SortStableFunc(inputs, func(a, b fundingInput) int {
		return cmp.Compare(b.prevOut.Value, a.prevOut.Value)
	})
	return inputs, nil
}

// buildCommitTx builds and signs the commit. A zero change value omits the change output.
func buildCommitTx(params CommitParams, inputs []fundingInput, opReturn *wire.TxOut, change int64) (*wire.MsgTx, error) {
	sequence := btcutils.MaxTxInSequenceNum
	if params.EnableRBF {
		sequence = btcutils.RBFSequenceNum
	}

	tx := wire.NewMsgTx(btcutils.TxVersion)
	prevOuts := make([]*wire.TxOut, 0, len(inputs))
	for _, input := range inputs {
		txIn := wire.NewTxIn(&input.outPoint, nil, nil)
		txIn.Sequence = sequence
		tx.AddTxIn(txIn)
		prevOuts = append(prevOuts, input.prevOut)
	}
	if opReturn != nil {
		tx.AddTxOut(opReturn)
	}
	for _, output := range params.Outputs {
		tx.AddTxOut(wire.NewTxOut(output.Value, output.Address.ScriptPubKey()))
	}
	if change > 0 {
		tx.AddTxOut(wire.NewTxOut(change, params.Wallet.Address().ScriptPubKey()))
	}

	signed, err := signTx(params.Wallet, tx, prevOuts, nil)
	if err != nil {
		return nil, errors.Wrap(err, "can't sign commit transaction")
	}
	return signed, nil
}
