package btcutils

// TxVersion is the version of every transaction this module builds.
const TxVersion = 2

// Input sequence numbers.
const (
	MaxTxInSequenceNum uint32 = 0xffffffff

	// RBFSequenceNum is the highest sequence that still signals BIP-125 replaceability.
	RBFSequenceNum = MaxTxInSequenceNum - 2
)
