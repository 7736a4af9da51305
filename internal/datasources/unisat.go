package datasources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/pkg/httpclient"
	"github.com/gaze-network/inscriber/pkg/logger"
	"github.com/gaze-network/inscriber/pkg/logger/slogx"
)

// unisatPageSize is the page size used by GetAllAddressUTXOs.
const unisatPageSize = 64

// UnisatDatasource reads address UTXOs from the unisat open-api indexer and pushes transactions through it.
type UnisatDatasource struct {
	client *httpclient.Client
}

func NewUnisatDatasource(baseURL, apiKey string, timeout time.Duration) (*UnisatDatasource, error) {
	client, err := httpclient.New(baseURL, httpclient.Config{
		Timeout: timeout,
		Headers: map[string]string{
			"Accept":        "application/json",
			"Authorization": "Bearer " + apiKey,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "can't create unisat http client")
	}
	return &UnisatDatasource{client: client}, nil
}

type unisatResponse[T any] struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data T      `json:"data"`
}

func decodeUnisat[T any](resp *httpclient.Response) (*unisatResponse[T], error) {
	if resp.StatusCode >= 400 {
		return nil, errors.Errorf("unisat responded %d: %s", resp.StatusCode, string(resp.Body))
	}
	var out unisatResponse[T]
	if err := resp.UnmarshalBody(&out); err != nil {
		return nil, errors.Wrap(err, "can't decode unisat response")
	}
	return &out, nil
}

// GetAddressUTXOs returns one page of the address UTXOs.
func (d *UnisatDatasource) GetAddressUTXOs(ctx context.Context, address string, cursor, size int) (*UTXOPage, error) {
	resp, err := d.client.Get(ctx, fmt.Sprintf("/v1/indexer/address/%s/utxo-data", address), httpclient.RequestOptions{
		Query: url.Values{
			"cursor": []string{strconv.Itoa(cursor)},
			"size":   []string{strconv.Itoa(size)},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "can't fetch address utxos")
	}
	out, err := decodeUnisat[UTXOPage](resp)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if out.Code != 0 {
		return nil, errors.Errorf("can't fetch address utxos: unisat code %d: %s", out.Code, out.Msg)
	}
	return &out.Data, nil
}

// GetAllAddressUTXOs pages through every UTXO of the address.
func (d *UnisatDatasource) GetAllAddressUTXOs(ctx context.Context, address string) ([]*UTXO, error) {
	var utxos []*UTXO
	for cursor := 0; ; {
		page, err := d.GetAddressUTXOs(ctx, address, cursor, unisatPageSize)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		utxos = append(utxos, page.UTXO...)
		cursor += len(page.UTXO)
		if len(page.UTXO) == 0 || cursor >= page.Total {
			break
		}
	}
	logger.DebugContext(ctx, "Fetched address utxos", slogx.String("address", address), slogx.Int("count", len(utxos)))
	return utxos, nil
}

// PushTx submits a signed transaction. Rejections by the network are returned in the result, not as errors.
func (d *UnisatDatasource) PushTx(ctx context.Context, txHex string) (PushResult, error) {
	body, err := json.Marshal(map[string]string{"txHex": txHex})
	if err != nil {
		return PushResult{}, errors.Wrap(err, "can't marshal push payload")
	}
	resp, err := d.client.Post(ctx, "/v1/indexer/local_pushtx", httpclient.RequestOptions{Body: body})
	if err != nil {
		return PushResult{}, errors.Wrap(err, "can't push transaction")
	}
	out, err := decodeUnisat[json.RawMessage](resp)
	if err != nil {
		return PushResult{}, errors.WithStack(err)
	}
	if out.Code == 0 {
		var txID string
		_ = json.Unmarshal(out.Data, &txID)
		return PushResult{TxID: txID}, nil
	}

	kind, blocking := ClassifyRejectionMessage(out.Msg)
	logger.DebugContext(ctx, "Transaction rejected by unisat",
		slogx.Int("code", out.Code),
		slogx.String("message", out.Msg),
		slogx.Stringer("kind", kind),
	)
	return PushResult{
		Rejected:     true,
		Kind:         kind,
		Code:         out.Code,
		Message:      out.Msg,
		BlockingTxID: blocking,
	}, nil
}
