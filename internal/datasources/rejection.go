package datasources

import (
	"regexp"
	"strings"
)

var (
	alreadyAcceptedMessages = []string{"already in block chain", "txn-already-in-mempool", "txn-already-known"}
	chainTooLongMessages    = []string{"too-long-mempool-chain"}
	alreadySpentMessages    = []string{"bad-txns-inputs-missingorspent", "missing-inputs", "missingorspent"}

	txIDPattern = regexp.MustCompile(`\b[0-9a-fA-F]{64}\b`)
)

// ClassifyRejectionMessage maps a node rejection message to its kind. For chain-too-long
// rejections it also returns the txid named in the message, if any.
func ClassifyRejectionMessage(message string) (RejectionKind, string) {
	msg := strings.ToLower(message)
	switch {
	case containsAny(msg, alreadyAcceptedMessages):
		return RejectionAlreadyAccepted, ""
	case containsAny(msg, chainTooLongMessages):
		return RejectionChainTooLong, strings.ToLower(txIDPattern.FindString(message))
	case containsAny(msg, alreadySpentMessages):
		return RejectionAlreadySpent, ""
	default:
		return RejectionOther, ""
	}
}

func containsAny(s string, substrs []string) bool {
	for _, substr := range substrs {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}
