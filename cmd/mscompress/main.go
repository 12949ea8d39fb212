package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/arloliu/mscompress/errs"
)

// Exit statuses. Anything that is not a clean run exits non-zero.
const (
	exitOK        = 0
	exitFailure   = 1
	exitParse     = 2
	exitEncoding  = 3
	exitIntegrity = 4
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newApp().Run(ctx, os.Args)
	stop()

	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "error:", err)
	}
	os.Exit(exitCode(err))
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:   "mscompress",
		Usage:  "Compress mzML runs into msz containers and restore them",
		Flags:  rootFlags(),
		Before: setup,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			compressCmd(),
			decompressCmd(),
			describeCmd(),
		},
	}
}

// setup loads the config file and installs the logger in the context.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := loadConfig(configFile, cmd.IsSet("config"))
	if err != nil {
		return ctx, err
	}
	fileConfig = cfg
	applyLoggingConfig(cmd, cfg)

	return newLoggerContext(ctx, stderr)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errs.ErrParse):
		return exitParse
	case errors.Is(err, errs.ErrEncoding):
		return exitEncoding
	case errors.Is(err, errs.ErrContainerIntegrity):
		return exitIntegrity
	default:
		return exitFailure
	}
}
