package broadcast

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/internal/datasources"
	"github.com/gaze-network/inscriber/internal/journal"
	"github.com/gaze-network/inscriber/internal/txbuilder"
	"github.com/gaze-network/inscriber/pkg/logger"
	"github.com/gaze-network/inscriber/pkg/logger/slogx"
	"github.com/gaze-network/inscriber/pkg/retry"
	"golang.org/x/sync/errgroup"
)

// Broadcaster pushes independent children of a commit in batches.
// The first batch goes out right after the commit. Children refused because the
// unconfirmed chain is too long are queued again and retried once the commit confirms.
type Broadcaster struct {
	core
}

func New(pusher Pusher, status StatusFetcher, recorder Recorder, config Config) *Broadcaster {
	return &Broadcaster{core: newCore(pusher, status, recorder, config)}
}

// queue holds children waiting for the next round. pending prevents queueing a tx twice.
type queue struct {
	mu      sync.Mutex
	items   []*txbuilder.Transaction
	pending map[string]struct{}
}

func newQueue(items []*txbuilder.Transaction) *queue {
	q := &queue{pending: make(map[string]struct{})}
	q.pushBack(items...)
	return q
}

func (q *queue) pushBack(items ...*txbuilder.Transaction) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, item := range items {
		if _, ok := q.pending[item.ID]; ok {
			continue
		}
		q.pending[item.ID] = struct{}{}
		q.items = append(q.items, item)
	}
}

// pushFront puts items ahead of the queued ones, keeping their relative order.
func (q *queue) pushFront(items ...*txbuilder.Transaction) {
	q.mu.Lock()
	defer q.mu.Unlock()
	front := make([]*txbuilder.Transaction, 0, len(items))
	for _, item := range items {
		if _, ok := q.pending[item.ID]; ok {
			continue
		}
		q.pending[item.ID] = struct{}{}
		front = append(front, item)
	}
	q.items = append(front, q.items...)
}

func (q *queue) drain() []*txbuilder.Transaction {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	clear(q.pending)
	return items
}

func (q *queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

type outcome struct {
	tx     *txbuilder.Transaction
	result datasources.PushResult
	err    error
}

// PushTransactions submits the commit, then every child. Children that can't be settled
// are reported in the result; only a rejected commit or exhausted rounds abort the run.
func (b *Broadcaster) PushTransactions(ctx context.Context, commitHex string, childHexes []string) (*Result, error) {
	children, err := decodeAll(childHexes)
	if err != nil {
		return nil, err
	}
	commitID, err := b.pushCommit(ctx, commitHex)
	if err != nil {
		return nil, err
	}
	ctx = logger.WithContext(ctx, slogx.String("commit_txid", commitID))

	result := &Result{CommitTxID: commitID}
	seen := make(map[string]struct{}, len(children))

	firstSize := min(b.config.FirstBatchSize, len(children))
	remainder := newQueue(children[firstSize:])

	if err := b.runBatch(ctx, children[:firstSize], remainder, result, seen); err != nil {
		return result, err
	}

	confirmed := false
	for round := 1; remainder.Len() > 0; round++ {
		if round > b.config.MaxRounds {
			return result, errors.Wrapf(ErrRoundsExhausted, "%d transactions left after %d rounds", remainder.Len(), b.config.MaxRounds)
		}
		if !confirmed {
			logger.InfoContext(ctx, "Waiting for commit confirmation before pushing remaining transactions", slogx.Int("remaining", remainder.Len()))
			if err := b.WaitForConfirmation(ctx, commitID); err != nil {
				return result, err
			}
			confirmed = true
		}

		batch := remainder.drain()
		settled := result.Total()
		if err := b.runBatch(ctx, batch, remainder, result, seen); err != nil {
			return result, err
		}
		if result.Total() == settled && remainder.Len() > 0 {
			logger.WarnContext(ctx, "No progress in this round, waiting before the next one", slogx.Int("round", round))
			if err := retry.Sleep(ctx, b.config.PollInterval); err != nil {
				return result, err
			}
		}
	}

	logger.SuccessContext(ctx, "Broadcast finished",
		slogx.Int("submitted", len(result.Submitted)),
		slogx.Int("skipped", len(result.Skipped)),
		slogx.Int("dropped", len(result.Dropped)),
	)
	return result, nil
}

// runBatch pushes batch with bounded concurrency, then settles the outcomes in batch order.
func (b *Broadcaster) runBatch(ctx context.Context, batch []*txbuilder.Transaction, remainder *queue, result *Result, seen map[string]struct{}) error {
	if len(batch) == 0 {
		return nil
	}
	logger.InfoContext(ctx, "Pushing transactions", slogx.Int("count", len(batch)))

	outcomes := make([]outcome, len(batch))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(b.config.Concurrency)
	for i, tx := range batch {
		group.Go(func() error {
			res, err := b.pushChild(groupCtx, tx)
			if err != nil && groupCtx.Err() != nil {
				return err
			}
			outcomes[i] = outcome{tx: tx, result: res, err: err}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return errors.Wrap(err, "batch interrupted")
	}

	var requeue []*txbuilder.Transaction
	settle := func(list *[]string, tx *txbuilder.Transaction) {
		if _, ok := seen[tx.ID]; ok {
			return
		}
		seen[tx.ID] = struct{}{}
		*list = append(*list, tx.ID)
	}
	for _, o := range outcomes {
		txCtx := logger.WithContext(ctx, slogx.String("txid", o.tx.ID))
		switch {
		case o.err != nil:
			logger.ErrorContext(txCtx, "Dropped transaction", o.err)
			b.record(txCtx, o.tx.ID, journal.StatusDropped, o.err.Error())
			settle(&result.Dropped, o.tx)
		case o.result.Accepted():
			b.record(txCtx, o.tx.ID, journal.StatusSubmitted, o.result.Message)
			settle(&result.Submitted, o.tx)
		case o.result.Kind == datasources.RejectionChainTooLong:
			logger.DebugContext(txCtx, "Mempool chain too long, queued for the next round")
			b.record(txCtx, o.tx.ID, journal.StatusRequeued, o.result.Message)
			requeue = append(requeue, o.tx)
		case o.result.Kind == datasources.RejectionAlreadySpent:
			logger.WarnContext(txCtx, "Inputs already spent, skipped", slogx.String("reason", o.result.Message))
			b.record(txCtx, o.tx.ID, journal.StatusSkipped, o.result.Message)
			settle(&result.Skipped, o.tx)
		default:
			logger.WarnContext(txCtx, "Transaction rejected, dropped", slogx.String("reason", o.result.Message))
			b.record(txCtx, o.tx.ID, journal.StatusDropped, o.result.Message)
			settle(&result.Dropped, o.tx)
		}
	}
	remainder.pushFront(requeue...)

	logger.InfoContext(ctx, "Batch finished",
		slogx.Int("settled", len(batch)-len(requeue)),
		slogx.Int("requeued", len(requeue)),
	)
	return nil
}
