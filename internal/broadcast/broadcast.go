// Package broadcast submits a commit transaction and its children to the network.
//
// Inscription reveals are independent children of the commit and go through [Broadcaster],
// which pushes them in bounded-concurrency batches. Rune mints form a linear chain and go
// through [ChainBroadcaster], which submits them one by one.
package broadcast

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/common/errs"
	"github.com/gaze-network/inscriber/internal/datasources"
	"github.com/gaze-network/inscriber/internal/journal"
	"github.com/gaze-network/inscriber/internal/txbuilder"
	"github.com/gaze-network/inscriber/pkg/logger"
	"github.com/gaze-network/inscriber/pkg/logger/slogx"
	"github.com/gaze-network/inscriber/pkg/retry"
)

const (
	ErrCommitRejected  = errs.ErrorKind("commit transaction rejected")
	ErrChainBroken     = errs.ErrorKind("transaction chain broken")
	ErrRoundsExhausted = errs.ErrorKind("broadcast rounds exhausted")
)

type Pusher interface {
	PushTx(ctx context.Context, txHex string) (datasources.PushResult, error)
}

type StatusFetcher interface {
	GetTxStatus(ctx context.Context, txID string) (*datasources.TxStatus, error)
}

// Recorder receives every submission outcome.
type Recorder interface {
	Record(ctx context.Context, txID string, status journal.Status, reason string) error
}

type Config struct {
	// Concurrency bounds the pushes in flight within a batch.
	Concurrency int `mapstructure:"concurrency"`
	// FirstBatchSize is the number of children pushed before waiting for the commit to confirm.
	FirstBatchSize int           `mapstructure:"first_batch_size"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	// MaxRounds bounds the retry rounds for children still rejected after the commit confirmed.
	MaxRounds int          `mapstructure:"max_rounds"`
	Retry     retry.Policy `mapstructure:"retry"`
}

func DefaultConfig() Config {
	return Config{
		Concurrency:    10,
		FirstBatchSize: 25,
		PollInterval:   5 * time.Second,
		MaxRounds:      10,
		Retry:          retry.DefaultPolicy(),
	}
}

// Result lists the transactions settled by a broadcast. Each id appears at most once.
type Result struct {
	CommitTxID string
	// Submitted children in submission order, including the ones already known to the network.
	Submitted []string
	// Skipped children whose inputs were already spent.
	Skipped []string
	// Dropped children rejected for any other reason.
	Dropped []string
}

// Total returns the number of settled children.
func (r *Result) Total() int {
	return len(r.Submitted) + len(r.Skipped) + len(r.Dropped)
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, string, journal.Status, string) error { return nil }

// core holds what both broadcasters share: commit submission, child pushes and confirmation polling.
type core struct {
	pusher   Pusher
	status   StatusFetcher
	recorder Recorder
	config   Config
}

func newCore(pusher Pusher, status StatusFetcher, recorder Recorder, config Config) core {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	defaults := DefaultConfig()
	if config.Concurrency <= 0 {
		config.Concurrency = defaults.Concurrency
	}
	if config.FirstBatchSize <= 0 {
		config.FirstBatchSize = defaults.FirstBatchSize
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.MaxRounds <= 0 {
		config.MaxRounds = defaults.MaxRounds
	}
	if config.Retry.MaxAttempts <= 0 {
		config.Retry = defaults.Retry
	}
	return core{
		pusher:   pusher,
		status:   status,
		recorder: recorder,
		config:   config,
	}
}

func (c *core) record(ctx context.Context, txID string, status journal.Status, reason string) {
	if err := c.recorder.Record(ctx, txID, status, reason); err != nil {
		logger.WarnContext(ctx, "Can't record broadcast outcome", slogx.String("txid", txID), slogx.Error(err))
	}
}

// pushCommit submits the commit until the network knows it.
func (c *core) pushCommit(ctx context.Context, commitHex string) (string, error) {
	commit, err := txbuilder.DecodeTransaction(commitHex)
	if err != nil {
		return "", errors.Wrap(err, "invalid commit transaction")
	}
	ctx = logger.WithContext(ctx, slogx.String("commit_txid", commit.ID))

	err = retry.Do(ctx, c.config.Retry, func(ctx context.Context) error {
		result, err := c.pusher.PushTx(ctx, commitHex)
		if err != nil {
			logger.WarnContext(ctx, "Can't push commit transaction, retrying", slogx.Error(err))
			return err
		}
		if result.Accepted() {
			return nil
		}
		if result.Kind == datasources.RejectionAlreadySpent {
			// the commit inputs are spent, which is fine only if the commit itself spent them
			if _, err := c.status.GetTxStatus(ctx, commit.ID); err != nil {
				if errors.Is(err, errs.NotFound) {
					return retry.Permanent(errors.Wrapf(ErrCommitRejected, "inputs already spent: %s", result.Message))
				}
				return errors.Wrap(err, "can't fetch commit status")
			}
			return nil
		}
		return retry.Permanent(errors.Wrapf(ErrCommitRejected, "%s: %s", result.Kind, result.Message))
	})
	if err != nil {
		c.record(ctx, commit.ID, journal.StatusRejected, err.Error())
		return "", errors.Wrapf(err, "can't push commit transaction %s", commit.ID)
	}
	c.record(ctx, commit.ID, journal.StatusSubmitted, "")
	logger.SuccessContext(ctx, "Commit transaction submitted")
	return commit.ID, nil
}

// pushChild submits one child, retrying transport errors only.
func (c *core) pushChild(ctx context.Context, child *txbuilder.Transaction) (datasources.PushResult, error) {
	result, err := retry.DoValue(ctx, c.config.Retry, func(ctx context.Context) (datasources.PushResult, error) {
		result, err := c.pusher.PushTx(ctx, child.Hex)
		return result, errors.WithStack(err)
	})
	if err != nil {
		return datasources.PushResult{}, errors.Wrapf(err, "can't push transaction %s", child.ID)
	}
	if result.TxID == "" {
		result.TxID = child.ID
	}
	return result, nil
}

// WaitForConfirmation polls the status of txID until it is confirmed or ctx is done.
func (c *core) WaitForConfirmation(ctx context.Context, txID string) error {
	ctx = logger.WithContext(ctx, slogx.String("txid", txID))
	for {
		status, err := c.status.GetTxStatus(ctx, txID)
		switch {
		case err != nil && ctx.Err() != nil:
			return errors.WithStack(ctx.Err())
		case errors.Is(err, errs.NotFound):
			logger.WarnContext(ctx, "Waiting for transaction to appear in mempool")
		case err != nil:
			logger.WarnContext(ctx, "Can't fetch transaction status", slogx.Error(err))
		case status.Confirmed:
			logger.SuccessContext(ctx, "Transaction confirmed", slogx.Int64("block_height", status.BlockHeight))
			return nil
		default:
			logger.WarnContext(ctx, "Waiting for transaction confirmation", slogx.Duration("poll_interval", c.config.PollInterval))
		}
		if err := retry.Sleep(ctx, c.config.PollInterval); err != nil {
			return errors.Wrapf(err, "stopped waiting for %s", txID)
		}
	}
}

func decodeAll(hexes []string) ([]*txbuilder.Transaction, error) {
	txs := make([]*txbuilder.Transaction, 0, len(hexes))
	for i, txHex := range hexes {
		tx, err := txbuilder.DecodeTransaction(txHex)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid child transaction #%d", i)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}
