// Package usecase runs the inscribe, mint and broadcast flows of the CLI.
package usecase

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/common"
	"github.com/gaze-network/inscriber/common/errs"
	"github.com/gaze-network/inscriber/internal/broadcast"
	"github.com/gaze-network/inscriber/internal/config"
	"github.com/gaze-network/inscriber/internal/datasources"
	"github.com/gaze-network/inscriber/internal/dump"
	"github.com/gaze-network/inscriber/internal/journal"
	"github.com/gaze-network/inscriber/internal/wallet"
	"github.com/gaze-network/inscriber/pkg/btcutils"
	"github.com/gaze-network/inscriber/pkg/logger"
	"github.com/gaze-network/inscriber/pkg/logger/slogx"
	"github.com/gaze-network/inscriber/pkg/retry"
)

type UTXOSource interface {
	GetAllAddressUTXOs(ctx context.Context, address string) ([]*datasources.UTXO, error)
}

type FeeSource interface {
	GetRecommendedFee(ctx context.Context) (*datasources.RecommendedFee, error)
}

type NodeInfoSource interface {
	GetBlockchainInfo(ctx context.Context) (*datasources.BlockchainInfo, error)
}

type DumpStore interface {
	Write(d *dump.Dump) (string, error)
	Read() (*dump.Dump, error)
}

type JournalReader interface {
	List(ctx context.Context, txIDs ...string) ([]journal.Entry, error)
}

// Prompter asks the user to confirm a plan before anything is written or pushed.
type Prompter interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

type TxBroadcaster interface {
	PushTransactions(ctx context.Context, commitHex string, childHexes []string) (*broadcast.Result, error)
}

type ChainTxBroadcaster interface {
	PushChain(ctx context.Context, commitHex string, chainHexes []string) (*broadcast.Result, error)
}

type Dependencies struct {
	UTXOs    UTXOSource
	Fees     FeeSource
	Node     NodeInfoSource
	Store    DumpStore
	Journal  JournalReader
	Prompter Prompter
	Batch    TxBroadcaster
	Chain    ChainTxBroadcaster
	// Summary output. Defaults to io.Discard.
	Out io.Writer
}

type Usecase struct {
	config   config.Config
	network  common.Network
	utxos    UTXOSource
	fees     FeeSource
	node     NodeInfoSource
	store    DumpStore
	journal  JournalReader
	prompter Prompter
	batch    TxBroadcaster
	chain    ChainTxBroadcaster
	out      io.Writer
}

func New(conf config.Config, deps Dependencies) *Usecase {
	out := deps.Out
	if out == nil {
		out = io.Discard
	}
	return &Usecase{
		config:   conf,
		network:  conf.Network,
		utxos:    deps.UTXOs,
		fees:     deps.Fees,
		node:     deps.Node,
		store:    deps.Store,
		journal:  deps.Journal,
		prompter: deps.Prompter,
		batch:    deps.Batch,
		chain:    deps.Chain,
		out:      out,
	}
}

// funding is what every building flow starts from.
type funding struct {
	wallet      *wallet.Wallet
	destination btcutils.Address
	feeRate     int64
	utxos       []*datasources.UTXO
}

func (u *Usecase) prepare(ctx context.Context) (*funding, error) {
	w, err := u.fundingWallet()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	destination, err := u.destination(w)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	feeRate, err := u.feeRate(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	logger.InfoContext(ctx, "Fetching UTXOs", slogx.Stringer("address", w.Address()))
	utxos, err := retry.DoValue(ctx, u.config.RetryPolicy(), func(ctx context.Context) ([]*datasources.UTXO, error) {
		return u.utxos.GetAllAddressUTXOs(ctx, w.Address().String())
	})
	if err != nil {
		return nil, errors.Wrap(err, "can't fetch funding utxos")
	}
	logger.DebugContext(ctx, "Fetched UTXOs", slogx.Int("count", len(utxos)))

	return &funding{
		wallet:      w,
		destination: destination,
		feeRate:     feeRate,
		utxos:       utxos,
	}, nil
}

// fundingWallet decodes the configured WIF. The address type follows funding.address when set, P2TR otherwise.
func (u *Usecase) fundingWallet() (*wallet.Wallet, error) {
	net := u.network.ChainParams()
	addrType := btcutils.AddressP2TR
	if u.config.Funding.Address != "" {
		address, err := btcutils.SafeNewAddress(u.config.Funding.Address, net)
		if err != nil || !address.IsForNet(net) {
			return nil, errors.Wrapf(errs.InvalidConfig, "invalid funding.address %q for network %s", u.config.Funding.Address, u.network)
		}
		addrType = address.Type()
	}

	w, err := wallet.FromWIF(u.config.Funding.WIF, addrType, net)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if u.config.Funding.Address != "" && w.Address().String() != u.config.Funding.Address {
		return nil, errors.Wrapf(errs.InvalidConfig, "funding.address %s does not match the WIF address %s", u.config.Funding.Address, w.Address())
	}
	return w, nil
}

func (u *Usecase) destination(w *wallet.Wallet) (btcutils.Address, error) {
	if u.config.Destination == "" {
		return w.Address(), nil
	}
	net := u.network.ChainParams()
	address, err := btcutils.SafeNewAddress(u.config.Destination, net)
	if err != nil || !address.IsForNet(net) {
		return btcutils.Address{}, errors.Wrapf(errs.InvalidConfig, "invalid destination %q for network %s", u.config.Destination, u.network)
	}
	return address, nil
}

// feeRate returns the configured fee rate, or the fastest recommended fee when none is set.
func (u *Usecase) feeRate(ctx context.Context) (int64, error) {
	if u.config.FeeRate > 0 {
		return u.config.FeeRate, nil
	}
	fees, err := retry.DoValue(ctx, u.config.RetryPolicy(), func(ctx context.Context) (*datasources.RecommendedFee, error) {
		return u.fees.GetRecommendedFee(ctx)
	})
	if err != nil {
		return 0, errors.Wrap(err, "can't get recommended fees")
	}
	logger.InfoContext(ctx, "Recommended fees",
		slogx.Int64("fastest", fees.FastestFee),
		slogx.Int64("half_hour", fees.HalfHourFee),
		slogx.Int64("hour", fees.HourFee),
		slogx.Int64("economy", fees.EconomyFee),
		slogx.Int64("minimum", fees.MinimumFee),
	)
	if fees.FastestFee <= 0 {
		return 0, errors.Wrapf(errs.SomethingWentWrong, "invalid recommended fee rate %d", fees.FastestFee)
	}
	return fees.FastestFee, nil
}

// NodeInfo returns the sync status of the configured node.
func (u *Usecase) NodeInfo(ctx context.Context) (*datasources.BlockchainInfo, error) {
	if u.node == nil {
		return nil, errors.Wrap(errs.InvalidConfig, "rpc.host is required")
	}
	info, err := u.node.GetBlockchainInfo(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "can't get blockchain info")
	}
	return info, nil
}
