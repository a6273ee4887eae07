// builder runs the order pool maintenance service: it subscribes to new
// chain heads on an execution node and keeps the candidate order pool fresh.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"

	"github.com/tos-network/builder/orderpool"
)

var (
	configFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	nodeFlag = &cli.StringFlag{
		Name:  "node",
		Usage: "Websocket or IPC endpoint of the execution node",
		Value: defaultConfig.Node,
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value: defaultConfig.Verbosity,
	}
)

func main() {
	app := &cli.App{
		Name:   "builder",
		Usage:  "block builder order pool service",
		Flags:  []cli.Flag{configFileFlag, nodeFlag, verbosityFlag},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cliCtx *cli.Context) error {
	cfg := defaultConfig
	if file := cliCtx.String(configFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			return err
		}
	}
	if cliCtx.IsSet(nodeFlag.Name) {
		cfg.Node = cliCtx.String(nodeFlag.Name)
	}
	if cliCtx.IsSet(verbosityFlag.Name) {
		cfg.Verbosity = cliCtx.Int(verbosityFlag.Name)
	}
	setupLogging(cfg.Verbosity)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := ethclient.DialContext(ctx, cfg.Node)
	if err != nil {
		return fmt.Errorf("dial node: %w", err)
	}
	defer client.Close()

	pool := orderpool.New()
	log.Info("Starting orderpool service", "node", cfg.Node)
	return orderpool.RunCleanJob(ctx, client, pool)
}

func setupLogging(verbosity int) {
	usecolor := isatty.IsTerminal(os.Stderr.Fd()) && os.Getenv("TERM") != "dumb"
	output := io.Writer(os.Stderr)
	if usecolor {
		output = colorable.NewColorableStderr()
	}
	handler := log.NewTerminalHandlerWithLevel(output, log.FromLegacyLevel(verbosity), usecolor)
	log.SetDefault(log.NewLogger(handler))
}
