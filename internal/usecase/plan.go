package usecase

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/common"
	"github.com/gaze-network/inscriber/internal/broadcast"
	"github.com/gaze-network/inscriber/internal/dump"
	"github.com/gaze-network/inscriber/internal/txbuilder"
	"github.com/gaze-network/inscriber/pkg/btcutils"
	"github.com/gaze-network/inscriber/pkg/logger"
	"github.com/gaze-network/inscriber/pkg/logger/slogx"
	"github.com/samber/lo"
)

const confirmQuestion = "Confirm to submit?"

// Plan is a signed but not yet broadcast run.
type Plan struct {
	Title       string
	Subject     string
	Count       int
	Payment     btcutils.Address
	Destination btcutils.Address
	FeeRate     int64

	Commit   *txbuilder.Transaction
	Children []*txbuilder.Transaction

	// Value locked for the children: reveal amounts or the mint fee.
	ServiceFee      int64
	ServiceFeeLabel string
	NetworkFee      int64

	Dump *dump.Dump
}

func (p *Plan) Total() int64 {
	return p.ServiceFee + p.NetworkFee
}

// WriteSummary prints the plan with fees in sats and in coin units.
func (p *Plan) WriteSummary(w io.Writer, network common.Network) error {
	symbol := network.Symbol()
	amount := func(sats int64) string {
		return fmt.Sprintf("%d sats (%s)", sats, btcutils.FormatSatoshi(sats, symbol))
	}
	lines := [][2]string{
		{p.Title, p.Subject},
		{"Count", fmt.Sprint(p.Count)},
		{"Network", network.String()},
		{"Payment", p.Payment.String()},
		{"Destination", p.Destination.String()},
		{"Fee rate", fmt.Sprintf("%d sat/vB", p.FeeRate)},
		{p.ServiceFeeLabel, amount(p.ServiceFee)},
		{"Network fee", amount(p.NetworkFee)},
		{"Total", amount(p.Total())},
		{"Commit", p.Commit.ID},
	}
	if p.Dump.MintWallet != nil {
		lines = append(lines, [2]string{"Mint wallet", p.Dump.MintWallet.Address})
	}
	width := lo.Max(lo.Map(lines, func(line [2]string, _ int) int { return len(line[0]) }))
	for _, line := range lines {
		if _, err := fmt.Fprintf(w, "%-*s : %s\n", width, line[0], line[1]); err != nil {
			return errors.Wrap(err, "can't write summary")
		}
	}
	return nil
}

// Outcome is the result of a building command.
type Outcome struct {
	Plan      *Plan
	Confirmed bool
	// Archived copy of the dump. Empty when not confirmed.
	ArchivePath string
	Result      *broadcast.Result
}

// newDump fills the fields shared by every plan.
func (u *Usecase) newDump(f *funding, commit *txbuilder.Transaction, children []*txbuilder.Transaction, chain bool, count int) *dump.Dump {
	d := &dump.Dump{
		CommitTxID:  commit.ID,
		CommitTxHex: commit.Hex,
		FeeRate:     f.feeRate,
		Payment:     f.wallet.Address().String(),
		Destination: f.destination.String(),
		Count:       count,
		Network:     u.network,
		CreatedAt:   time.Now().UTC(),
	}
	ids := lo.Map(children, func(tx *txbuilder.Transaction, _ int) string { return tx.ID })
	hexes := lo.Map(children, func(tx *txbuilder.Transaction, _ int) string { return tx.Hex })
	if chain {
		d.MintTxIDs, d.MintTxHexes = ids, hexes
	} else {
		d.RevealTxIDs, d.RevealTxHexes = ids, hexes
	}
	return d
}

// execute prints the plan, asks for confirmation, then writes the dump and broadcasts it.
// The dump is written before anything is pushed so that an interrupted run can be resumed.
func (u *Usecase) execute(ctx context.Context, plan *Plan) (*Outcome, error) {
	if err := plan.WriteSummary(u.out, u.network); err != nil {
		return nil, errors.WithStack(err)
	}
	plan.Dump.SpendSats = plan.Total()

	confirmed, err := u.prompter.Confirm(ctx, confirmQuestion)
	if err != nil {
		return nil, errors.Wrap(err, "can't read confirmation")
	}
	outcome := &Outcome{Plan: plan, Confirmed: confirmed}
	if !confirmed {
		logger.WarnContext(ctx, "Cancelled, nothing was broadcast")
		return outcome, nil
	}

	archivePath, err := u.store.Write(plan.Dump)
	if err != nil {
		return nil, errors.Wrap(err, "can't write dump")
	}
	outcome.ArchivePath = archivePath
	logger.InfoContext(ctx, "Dump saved", slogx.String("archive", archivePath))

	result, err := u.push(ctx, plan.Dump)
	outcome.Result = result
	if err != nil {
		return outcome, errors.WithStack(err)
	}
	return outcome, nil
}
