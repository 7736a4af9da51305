package datasources

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/common/errs"
	"github.com/gaze-network/inscriber/pkg/httpclient"
	"github.com/valyala/fasthttp"
)

// MempoolDatasource reads fee estimates and transaction status from a mempool.space compatible REST api.
type MempoolDatasource struct {
	client *httpclient.Client
}

func NewMempoolDatasource(baseURL string, timeout time.Duration) (*MempoolDatasource, error) {
	client, err := httpclient.New(baseURL, httpclient.Config{Timeout: timeout})
	if err != nil {
		return nil, errors.Wrap(err, "can't create mempool http client")
	}
	return &MempoolDatasource{client: client}, nil
}

func (d *MempoolDatasource) GetRecommendedFee(ctx context.Context) (*RecommendedFee, error) {
	resp, err := d.client.Get(ctx, "/fees/recommended", httpclient.RequestOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "can't fetch recommended fees")
	}
	if resp.StatusCode != fasthttp.StatusOK {
		return nil, errors.Errorf("can't fetch recommended fees: status %d: %s", resp.StatusCode, string(resp.Body))
	}
	var fee RecommendedFee
	if err := resp.UnmarshalBody(&fee); err != nil {
		return nil, errors.WithStack(err)
	}
	return &fee, nil
}

// GetTxStatus returns errs.NotFound when the transaction is neither in the mempool nor in a block.
func (d *MempoolDatasource) GetTxStatus(ctx context.Context, txID string) (*TxStatus, error) {
	resp, err := d.client.Get(ctx, fmt.Sprintf("/tx/%s/status", txID), httpclient.RequestOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "can't fetch transaction status")
	}
	switch resp.StatusCode {
	case fasthttp.StatusOK:
	case fasthttp.StatusNotFound:
		return nil, errors.Wrapf(errs.NotFound, "transaction %s", txID)
	default:
		return nil, errors.Errorf("can't fetch transaction status: status %d: %s", resp.StatusCode, string(resp.Body))
	}
	var status TxStatus
	if err := resp.UnmarshalBody(&status); err != nil {
		return nil, errors.WithStack(err)
	}
	return &status, nil
}

func (d *MempoolDatasource) GetBlockTipHeight(ctx context.Context) (int64, error) {
	resp, err := d.client.Get(ctx, "/blocks/tip/height", httpclient.RequestOptions{})
	if err != nil {
		return 0, errors.Wrap(err, "can't fetch block tip height")
	}
	if resp.StatusCode != fasthttp.StatusOK {
		return 0, errors.Errorf("can't fetch block tip height: status %d", resp.StatusCode)
	}
	// plain text body
	height, err := strconv.ParseInt(strings.TrimSpace(string(resp.Body)), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid block tip height %q", string(resp.Body))
	}
	return height, nil
}
