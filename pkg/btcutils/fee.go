package btcutils

import (
	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
)

// VirtualSize returns the virtual size of the transaction in vbytes.
// The transaction should be fully signed, since witness data counts toward its weight.
func VirtualSize(tx *wire.MsgTx) int64 {
	return calVBytes(blockchain.GetTransactionWeight(btcutil.NewTx(tx)))
}

// FeeForVSize returns the network fee of a transaction of vsize vbytes at feeRate sat/vB.
func FeeForVSize(vsize int64, feeRate int64) int64 {
	return vsize * feeRate
}

// calVBytes rounds a weight up to whole vbytes.
func calVBytes(weight int64) int64 {
	return (weight + blockchain.WitnessScaleFactor - 1) / blockchain.WitnessScaleFactor
}
