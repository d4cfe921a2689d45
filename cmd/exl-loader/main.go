package main

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/sirilvk/exl-loader/cmd/exl-loader/internal/ui"
	"github.com/sirilvk/exl-loader/pkg/exl"
	"github.com/spf13/viper"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// Process exit codes
const (
	exitOK          = 0
	exitFailure     = 1
	exitConfig      = 2
	exitInterrupted = 130
)

// errInterrupted marks a run that stopped early on a shutdown signal
var errInterrupted = errors.New("run interrupted by signal")

func main() {
	os.Exit(execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd(viper.New())
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, errInterrupted) {
		ui.New(stdout, stderr).Error(err.Error())
	}
	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errInterrupted):
		return exitInterrupted
	case exl.CodeOf(err) == exl.ErrorCodeConfiguration:
		return exitConfig
	default:
		return exitFailure
	}
}
