package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/celer-network/eth-batch-sender/account"
	"github.com/celer-network/eth-batch-sender/client"
	"github.com/celer-network/eth-batch-sender/config"
	"github.com/celer-network/eth-batch-sender/logger"
	"github.com/celer-network/eth-batch-sender/store/tendermint"
	"github.com/celer-network/eth-batch-sender/txmanager"
	"github.com/pkg/errors"
	tmdb "github.com/tendermint/tm-db"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
)

// autopopulated by the Makefile
var (
	Version = ""
)

func main() {
	app := cli.NewApp()
	app.Flags = Flags
	app.Version = Version
	app.Name = "batchsender"
	app.Usage = "Send one contract call per private key while gas is below target"
	app.Action = Main

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := app.RunContext(ctx, os.Args)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "batchsender failed: %+v\n", err)
		os.Exit(1)
	}
}

// Main loads the configuration and keys and runs a single batch.
func Main(cliCtx *cli.Context) (err error) {
	file, err := loadConfig(cliCtx)
	if err != nil {
		return err
	}

	zl, err := logger.New(file.LogLevel, file.LogFile)
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()

	cfg, err := file.ToConfig(zl)
	if err != nil {
		return err
	}

	credentials, err := account.LoadCredentials(cliCtx.String(KeysFlagName))
	if err != nil {
		return err
	}
	if len(credentials) == 0 {
		zl.Errorw("No private keys provided, exiting", "keys", cliCtx.String(KeysFlagName))
		return txmanager.ErrNoCredentials
	}

	ethClient, err := client.NewImpl(cfg)
	if err != nil {
		return err
	}
	if err := ethClient.Dial(cliCtx.Context); err != nil {
		return err
	}
	defer ethClient.Close()

	store := tendermint.NewTMStore(tmdb.NewMemDB())
	defer func() {
		err = multierr.Append(err, store.Close())
	}()

	summary, err := txmanager.NewTxManager(ethClient, store, cfg).Run(cliCtx.Context, credentials)
	if summary != nil {
		for _, hash := range summary.TxHashes {
			fmt.Println(hash)
		}
	}
	return err
}

func loadConfig(cliCtx *cli.Context) (*config.File, error) {
	file, err := config.Load(cliCtx.String(ConfigFlagName))
	if err != nil {
		return nil, err
	}
	if cliCtx.IsSet(RPCFlagName) {
		file.RPC = cliCtx.String(RPCFlagName)
	}
	if cliCtx.IsSet(WorkersFlagName) {
		file.WorkersCount = cliCtx.Int(WorkersFlagName)
	}
	if cliCtx.IsSet(LogLevelFlagName) {
		file.LogLevel = cliCtx.String(LogLevelFlagName)
	}
	if cliCtx.IsSet(LogFileFlagName) {
		file.LogFile = cliCtx.String(LogFileFlagName)
	}
	if err := file.Check(); err != nil {
		return nil, errors.Wrap(err, "invalid flags")
	}
	return file, nil
}
