package datasources

import (
	"encoding/hex"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/common/errs"
)

// UTXO is an unspent output of an address as reported by the indexer.
type UTXO struct {
	TxID         string            `json:"txid"`
	Vout         uint32            `json:"vout"`
	Satoshi      int64             `json:"satoshi"`
	ScriptPk     string            `json:"scriptPk"`
	Address      string            `json:"address"`
	Height       int64             `json:"height"`
	Inscriptions []UTXOInscription `json:"inscriptions"`
	Runes        []UTXORune        `json:"runes,omitempty"`
}

type UTXOInscription struct {
	InscriptionID     string `json:"inscriptionId"`
	InscriptionNumber int64  `json:"inscriptionNumber"`
	Offset            int64  `json:"offset"`
	Moved             bool   `json:"moved"`
	IsBRC20           bool   `json:"isBRC20"`
}

type UTXORune struct {
	RuneID string `json:"runeid"`
	Amount string `json:"amount"`
}

// HasAssets reports whether spending the output would move an inscription or a rune balance.
func (u *UTXO) HasAssets() bool {
	return len(u.Inscriptions) > 0 || len(u.Runes) > 0
}

func (u *UTXO) OutPoint() (wire.OutPoint, error) {
	hash, err := chainhash.NewHashFromStr(u.TxID)
	if err != nil {
		return wire.OutPoint{}, errors.Wrapf(errs.InvalidArgument, "invalid utxo txid %q", u.TxID)
	}
	return *wire.NewOutPoint(hash, u.Vout), nil
}

func (u *UTXO) PkScript() ([]byte, error) {
	pkScript, err := hex.DecodeString(u.ScriptPk)
	if err != nil {
		return nil, errors.Wrapf(errs.InvalidArgument, "invalid utxo script %q", u.ScriptPk)
	}
	return pkScript, nil
}
