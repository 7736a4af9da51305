package broadcast

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/common/errs"
	"github.com/gaze-network/inscriber/internal/datasources"
	"github.com/gaze-network/inscriber/internal/journal"
	"github.com/gaze-network/inscriber/pkg/logger"
	"github.com/gaze-network/inscriber/pkg/logger/slogx"
	"github.com/samber/lo"
)

// ChainBroadcaster pushes a linear chain where every transaction spends the previous one.
// A refused hop blocks all of its descendants, so hops are submitted one at a time.
type ChainBroadcaster struct {
	core
}

func NewChain(pusher Pusher, status StatusFetcher, recorder Recorder, config Config) *ChainBroadcaster {
	return &ChainBroadcaster{core: newCore(pusher, status, recorder, config)}
}

type chainPhase int

const (
	phaseSubmitting chainPhase = iota
	phaseWaiting
	phaseDone
	phaseBroken
)

func (p chainPhase) String() string {
	switch p {
	case phaseSubmitting:
		return "submitting"
	case phaseWaiting:
		return "waiting"
	case phaseDone:
		return "done"
	case phaseBroken:
		return "broken"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

type chainState struct {
	Phase chainPhase
	// Index of the next hop to submit.
	Index int
	Total int
	// BlockingTxID is the unconfirmed ancestor awaited in phaseWaiting.
	BlockingTxID string
	CommitTxID   string
	LastAccepted string
	// Waits counts the confirmation waits for the current hop.
	Waits    int
	MaxWaits int
}

// chainEvent is either a push outcome or a confirmation of the blocking tx.
type chainEvent struct {
	Push      *datasources.PushResult
	Confirmed bool
}

// next is the transition table of the chain broadcast.
func next(s chainState, ev chainEvent) (chainState, error) {
	switch s.Phase {
	case phaseSubmitting:
		if ev.Push == nil {
			return s, errors.Wrapf(errs.InvalidArgument, "unexpected confirmation while %s", s.Phase)
		}
		push := *ev.Push
		switch {
		case push.Accepted(), push.Kind == datasources.RejectionAlreadySpent:
			s.LastAccepted = push.TxID
			s.Index++
			s.Waits = 0
			if s.Index >= s.Total {
				s.Phase = phaseDone
			}
			return s, nil
		case push.Kind == datasources.RejectionChainTooLong:
			if s.Waits >= s.MaxWaits {
				s.Phase = phaseBroken
				return s, errors.Wrapf(ErrRoundsExhausted, "hop #%d still rejected after %d waits", s.Index, s.Waits)
			}
			s.Phase = phaseWaiting
			s.BlockingTxID, _ = lo.Coalesce(push.BlockingTxID, s.LastAccepted, s.CommitTxID)
			s.Waits++
			return s, nil
		default:
			s.Phase = phaseBroken
			return s, errors.Wrapf(ErrChainBroken, "hop #%d %s rejected: %s", s.Index, push.TxID, push.Message)
		}
	case phaseWaiting:
		if ev.Push != nil {
			return s, errors.Wrapf(errs.InvalidArgument, "unexpected push outcome while %s", s.Phase)
		}
		if ev.Confirmed {
			s.Phase = phaseSubmitting
			s.BlockingTxID = ""
		}
		return s, nil
	default:
		return s, errors.Wrapf(errs.InvalidArgument, "no transition from %s", s.Phase)
	}
}

// PushChain submits the commit, then the chain in order. On error the result still
// holds the accepted prefix.
func (b *ChainBroadcaster) PushChain(ctx context.Context, commitHex string, chainHexes []string) (*Result, error) {
	chain, err := decodeAll(chainHexes)
	if err != nil {
		return nil, err
	}
	commitID, err := b.pushCommit(ctx, commitHex)
	if err != nil {
		return nil, err
	}
	ctx = logger.WithContext(ctx, slogx.String("commit_txid", commitID))

	result := &Result{CommitTxID: commitID}
	state := chainState{
		Phase:      phaseSubmitting,
		Total:      len(chain),
		CommitTxID: commitID,
		MaxWaits:   b.config.MaxRounds,
	}
	if state.Total == 0 {
		state.Phase = phaseDone
	}

	for state.Phase != phaseDone {
		var ev chainEvent
		switch state.Phase {
		case phaseSubmitting:
			tx := chain[state.Index]
			txCtx := logger.WithContext(ctx, slogx.String("txid", tx.ID), slogx.Int("hop", state.Index))
			push, err := b.pushChild(txCtx, tx)
			if err != nil {
				b.record(txCtx, tx.ID, journal.StatusRejected, err.Error())
				return result, err
			}
			ev.Push = &push
			switch {
			case push.Accepted():
				b.record(txCtx, tx.ID, journal.StatusSubmitted, push.Message)
				result.Submitted = append(result.Submitted, tx.ID)
			case push.Kind == datasources.RejectionAlreadySpent:
				b.record(txCtx, tx.ID, journal.StatusSkipped, push.Message)
				result.Skipped = append(result.Skipped, tx.ID)
			case push.Kind == datasources.RejectionChainTooLong:
				b.record(txCtx, tx.ID, journal.StatusRequeued, push.Message)
			default:
				b.record(txCtx, tx.ID, journal.StatusRejected, push.Message)
			}
		case phaseWaiting:
			logger.InfoContext(ctx, "Mempool chain too long, waiting for ancestor", slogx.String("blocking_txid", state.BlockingTxID))
			if err := b.WaitForConfirmation(ctx, state.BlockingTxID); err != nil {
				return result, err
			}
			ev.Confirmed = true
		}

		state, err = next(state, ev)
		if err != nil {
			logger.ErrorContext(ctx, "Chain broadcast stopped", err, slogx.Int("submitted", len(result.Submitted)))
			return result, err
		}
	}

	logger.SuccessContext(ctx, "Chain broadcast finished",
		slogx.Int("submitted", len(result.Submitted)),
		slogx.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}
