package cmd

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/internal/broadcast"
	"github.com/gaze-network/inscriber/internal/config"
	"github.com/gaze-network/inscriber/internal/datasources"
	"github.com/gaze-network/inscriber/internal/dump"
	"github.com/gaze-network/inscriber/internal/journal"
	"github.com/gaze-network/inscriber/internal/usecase"
	"github.com/gaze-network/inscriber/pkg/logger"
	"github.com/gaze-network/inscriber/pkg/logger/slogx"
	"github.com/samber/do/v2"
)

func newInjector(conf config.Config, prompter usecase.Prompter, out io.Writer) *do.RootScope {
	injector := do.New()
	do.ProvideValue(injector, conf)
	do.ProvideValue(injector, conf.Network)

	do.Provide(injector, func(i do.Injector) (*datasources.UnisatDatasource, error) {
		conf := do.MustInvoke[config.Config](i)
		return datasources.NewUnisatDatasource(conf.Unisat.URL, conf.Unisat.APIKey, conf.HTTP.Timeout)
	})
	do.Provide(injector, func(i do.Injector) (*datasources.MempoolDatasource, error) {
		conf := do.MustInvoke[config.Config](i)
		return datasources.NewMempoolDatasource(conf.Mempool.URL, conf.HTTP.Timeout)
	})

	// Bitcoin node is optional. It is nil when rpc.host is not configured.
	do.Provide(injector, func(i do.Injector) (*datasources.BitcoinNodeDatasource, error) {
		conf := do.MustInvoke[config.Config](i)
		if !conf.PushToNode() {
			return nil, nil
		}
		node, err := datasources.NewBitcoinNodeDatasource(datasources.BitcoinNodeConfig{
			Host:       conf.RPC.Host,
			User:       conf.RPC.User,
			Pass:       conf.RPC.Pass,
			DisableTLS: conf.RPC.DisableTLS,
			Debug:      conf.Logger.Debug,
		})
		if err != nil {
			return nil, errors.WithStack(err)
		}
		return node, nil
	})

	do.Provide(injector, func(i do.Injector) (broadcast.Pusher, error) {
		node := do.MustInvoke[*datasources.BitcoinNodeDatasource](i)
		if node != nil {
			logger.Debug("Pushing transactions through the Bitcoin node", slogx.String("host", conf.RPC.Host))
			return node, nil
		}
		return do.MustInvoke[*datasources.UnisatDatasource](i), nil
	})

	do.Provide(injector, func(i do.Injector) (*journal.Journal, error) {
		conf := do.MustInvoke[config.Config](i)
		j, err := journal.Open(conf.Data.JournalPath)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		return j, nil
	})
	do.Provide(injector, func(i do.Injector) (*dump.Store, error) {
		conf := do.MustInvoke[config.Config](i)
		return dump.NewStore(conf.Data.DumpPath, conf.Data.ArchiveDir), nil
	})

	do.Provide(injector, func(i do.Injector) (*broadcast.Broadcaster, error) {
		return broadcast.New(
			do.MustInvoke[broadcast.Pusher](i),
			do.MustInvoke[*datasources.MempoolDatasource](i),
			do.MustInvoke[*journal.Journal](i),
			do.MustInvoke[config.Config](i).Broadcast,
		), nil
	})
	do.Provide(injector, func(i do.Injector) (*broadcast.ChainBroadcaster, error) {
		return broadcast.NewChain(
			do.MustInvoke[broadcast.Pusher](i),
			do.MustInvoke[*datasources.MempoolDatasource](i),
			do.MustInvoke[*journal.Journal](i),
			do.MustInvoke[config.Config](i).Broadcast,
		), nil
	})

	do.Provide(injector, func(i do.Injector) (*usecase.Usecase, error) {
		deps := usecase.Dependencies{
			UTXOs:    do.MustInvoke[*datasources.UnisatDatasource](i),
			Fees:     do.MustInvoke[*datasources.MempoolDatasource](i),
			Store:    do.MustInvoke[*dump.Store](i),
			Journal:  do.MustInvoke[*journal.Journal](i),
			Prompter: prompter,
			Batch:    do.MustInvoke[*broadcast.Broadcaster](i),
			Chain:    do.MustInvoke[*broadcast.ChainBroadcaster](i),
			Out:      out,
		}
		if node := do.MustInvoke[*datasources.BitcoinNodeDatasource](i); node != nil {
			deps.Node = node
		}
		return usecase.New(do.MustInvoke[config.Config](i), deps), nil
	})

	return injector
}

// runUsecase wires the dependencies of conf, runs fn and releases them.
func runUsecase(ctx context.Context, conf config.Config, prompter usecase.Prompter, out io.Writer, fn func(ctx context.Context, uc *usecase.Usecase) error) error {
	if err := conf.Validate(); err != nil {
		return errors.WithStack(err)
	}
	ctx = logger.WithContext(ctx, slogx.Stringer("network", conf.Network))

	injector := newInjector(conf, prompter, out)
	defer func() {
		if report := injector.Shutdown(); report != nil && !report.Succeed {
			logger.WarnContext(ctx, "Failed to release resources", slogx.String("report", report.Error()))
		}
	}()

	uc, err := do.Invoke[*usecase.Usecase](injector)
	if err != nil {
		return errors.Wrap(err, "can't initialize")
	}
	return fn(ctx, uc)
}
