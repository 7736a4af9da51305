package datasources

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btclog"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/pkg/logger"
	"github.com/gaze-network/inscriber/pkg/logger/slogx"
)

// Bitcoin Core RPC error codes.
const (
	rpcVerifyError          btcjson.RPCErrorCode = -25
	rpcVerifyAlreadyInChain btcjson.RPCErrorCode = -27
)

type BitcoinNodeConfig struct {
	Host       string
	User       string
	Pass       string
	DisableTLS bool
	Debug      bool
}

// BitcoinNodeDatasource talks to a Bitcoin Core compatible node over JSON-RPC.
type BitcoinNodeDatasource struct {
	client *rpcclient.Client
}

func NewBitcoinNodeDatasource(config BitcoinNodeConfig) (*BitcoinNodeDatasource, error) {
	useRPCLogger(config.Debug)
	client, err := rpcclient.New(&rpcclient.ConnConfig{
		Host:         config.Host,
		User:         config.User,
		Pass:         config.Pass,
		DisableTLS:   config.DisableTLS,
		HTTPPostMode: true,
	}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "invalid Bitcoin node configuration")
	}
	return &BitcoinNodeDatasource{client: client}, nil
}

// Shutdown stops the RPC client. It is a no-op on a nil datasource.
func (d *BitcoinNodeDatasource) Shutdown() {
	if d == nil {
		return
	}
	d.client.Shutdown()
}

// PushTx submits a signed transaction with sendrawtransaction. RPC errors become rejections.
func (d *BitcoinNodeDatasource) PushTx(ctx context.Context, txHex string) (PushResult, error) {
	param, err := json.Marshal(txHex)
	if err != nil {
		return PushResult{}, errors.WithStack(err)
	}
	raw, err := d.client.RawRequest("sendrawtransaction", []json.RawMessage{param})
	if err != nil {
		var rpcErr *btcjson.RPCError
		if !errors.As(err, &rpcErr) {
			return PushResult{}, errors.Wrap(err, "can't send raw transaction")
		}
		kind, blocking := classifyRPCError(rpcErr)
		logger.DebugContext(ctx, "Transaction rejected by node",
			slogx.Int("code", int(rpcErr.Code)),
			slogx.String("message", rpcErr.Message),
			slogx.Stringer("kind", kind),
		)
		return PushResult{
			Rejected:     true,
			Kind:         kind,
			Code:         int(rpcErr.Code),
			Message:      rpcErr.Message,
			BlockingTxID: blocking,
		}, nil
	}
	var txID string
	if err := json.Unmarshal(raw, &txID); err != nil {
		return PushResult{}, errors.Wrap(err, "can't decode sendrawtransaction result")
	}
	return PushResult{TxID: txID}, nil
}

func classifyRPCError(rpcErr *btcjson.RPCError) (RejectionKind, string) {
	message := strings.ToLower(rpcErr.Message)
	switch {
	case rpcErr.Code == rpcVerifyAlreadyInChain:
		return RejectionAlreadyAccepted, ""
	case rpcErr.Code == rpcVerifyError && strings.Contains(message, "missingorspent"):
		return RejectionAlreadySpent, ""
	}
	return ClassifyRejectionMessage(rpcErr.Message)
}

func (d *BitcoinNodeDatasource) GetBlockchainInfo(ctx context.Context) (*BlockchainInfo, error) {
	raw, err := d.client.RawRequest("getblockchaininfo", nil)
	if err != nil {
		return nil, errors.Wrap(err, "can't get blockchain info")
	}
	var result btcjson.GetBlockChainInfoResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, errors.Wrap(err, "can't decode blockchain info")
	}
	return &BlockchainInfo{
		Chain:   result.Chain,
		Blocks:  int64(result.Blocks),
		Headers: int64(result.Headers),
	}, nil
}

// rpcLogWriter forwards btclog lines from rpcclient to the application logger.
type rpcLogWriter struct{}

func (rpcLogWriter) Write(p []byte) (int, error) {
	if line := string(bytes.TrimSpace(p)); line != "" {
		logger.Debug(line, slogx.String("package", "rpcclient"))
	}
	return len(p), nil
}

func useRPCLogger(debug bool) {
	rpcLogger := btclog.NewBackend(rpcLogWriter{}).Logger("RPCC")
	rpcLogger.SetLevel(btclog.LevelWarn)
	if debug {
		rpcLogger.SetLevel(btclog.LevelDebug)
	}
	rpcclient.UseLogger(rpcLogger)
}
