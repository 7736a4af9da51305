// Package txbuilder builds and signs the commit, reveal and mint transactions. It does no I/O.
package txbuilder

import (
	"bytes"
	"encoding/hex"

	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/common/errs"
	"github.com/gaze-network/inscriber/pkg/btcutils"
)

const (
	ErrUnsafeUTXO        = errs.ErrorKind("utxo carries inscriptions or runes")
	ErrSigning           = errs.ErrorKind("signing failed")
	ErrInsufficientValue = errs.ErrorKind("insufficient input value")
	ErrInsufficientFunds = errs.ErrorKind("insufficient funds")
)

// Transaction is a fully signed transaction ready to be broadcast.
type Transaction struct {
	ID          string
	Hex         string
	VirtualSize int64
	// Network fee in sats. Zero when the transaction was decoded from hex.
	Fee   int64
	MsgTx *wire.MsgTx
}

func newTransaction(tx *wire.MsgTx, fee int64) (*Transaction, error) {
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return nil, errors.Wrap(err, "can't serialize transaction")
	}
	return &Transaction{
		ID:          tx.TxHash().String(),
		Hex:         hex.EncodeToString(buf.Bytes()),
		VirtualSize: btcutils.VirtualSize(tx),
		Fee:         fee,
		MsgTx:       tx,
	}, nil
}

// DecodeTransaction parses a hex encoded signed transaction.
func DecodeTransaction(txHex string) (*Transaction, error) {
	raw, err := hex.DecodeString(txHex)
	if err != nil {
		return nil, errors.Wrap(errs.InvalidArgument, "transaction is not valid hex")
	}
	tx := wire.NewMsgTx(btcutils.TxVersion)
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, errors.Wrapf(errs.InvalidArgument, "can't decode transaction: %v", err)
	}
	return &Transaction{
		ID:          tx.TxHash().String(),
		Hex:         txHex,
		VirtualSize: btcutils.VirtualSize(tx),
		MsgTx:       tx,
	}, nil
}
