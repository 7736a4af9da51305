package datasources

import "time"

// RejectionKind classifies why a push backend refused a transaction.
type RejectionKind int

const (
	RejectionOther RejectionKind = iota
	// The transaction is already in the mempool or in a block.
	RejectionAlreadyAccepted
	// An unconfirmed ancestor chain is too long. The transaction can be retried once the ancestor confirms.
	RejectionChainTooLong
	// An input is missing or already spent.
	RejectionAlreadySpent
)

func (k RejectionKind) String() string {
	switch k {
	case RejectionAlreadyAccepted:
		return "already_accepted"
	case RejectionChainTooLong:
		return "chain_too_long"
	case RejectionAlreadySpent:
		return "already_spent"
	default:
		return "other"
	}
}

// PushResult is the outcome of a transaction push that reached the backend.
type PushResult struct {
	TxID string
	// Rejected is false when the backend accepted the transaction.
	Rejected bool
	Kind     RejectionKind
	Code     int
	Message  string
	// BlockingTxID is the unconfirmed ancestor named by a chain-too-long rejection, if any.
	BlockingTxID string
}

// Accepted reports whether the transaction is known to the network after the push.
func (r PushResult) Accepted() bool {
	return !r.Rejected || r.Kind == RejectionAlreadyAccepted
}

type UTXOPage struct {
	UTXO   []*UTXO `json:"utxo"`
	Total  int     `json:"total"`
	Cursor int     `json:"cursor"`
}

type RecommendedFee struct {
	FastestFee  int64 `json:"fastestFee"`
	HalfHourFee int64 `json:"halfHourFee"`
	HourFee     int64 `json:"hourFee"`
	EconomyFee  int64 `json:"economyFee"`
	MinimumFee  int64 `json:"minimumFee"`
}

type TxStatus struct {
	Confirmed   bool   `json:"confirmed"`
	BlockHeight int64  `json:"block_height"`
	BlockHash   string `json:"block_hash"`
	BlockTime   int64  `json:"block_time"`
}

func (s TxStatus) ConfirmedAt() time.Time {
	if s.BlockTime == 0 {
		return time.Time{}
	}
	return time.Unix(s.BlockTime, 0)
}

type BlockchainInfo struct {
	Chain   string
	Blocks  int64
	Headers int64
}

// Synced reports whether the node has validated every header it knows.
func (i BlockchainInfo) Synced() bool {
	return i.Headers > 0 && i.Blocks >= i.Headers
}
