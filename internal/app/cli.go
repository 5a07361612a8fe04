package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gaspardpetit/mcpwrap/internal/config"
	"github.com/gaspardpetit/mcpwrap/internal/contract"
	"github.com/gaspardpetit/mcpwrap/internal/logx"
	"github.com/gaspardpetit/mcpwrap/internal/wrapper"
)

// ErrCheckFailed is returned by Main when -check finds a response that
// does not match the endpoint contract.
var ErrCheckFailed = errors.New("contract check failed")

// Main runs the wrapper binary of profile with the given arguments. It returns
// once the process has been asked to stop, or on the first fatal error.
func Main(name, profile string, build BuildInfo, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	showVersion := fs.Bool("version", false, "print version and exit")
	check := fs.Bool("check", false, "validate the configured responses against the endpoint contract and exit")
	fs.Usage = func() {
		_, _ = fmt.Fprintf(fs.Output(), "%s version=%s sha=%s date=%s\n\n", name, build.Version, build.SHA, build.Date)
		fs.PrintDefaults()
	}

	cfg, err := config.Load(profile, fs, args)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if *showVersion {
		_, _ = fmt.Fprintf(stdout, "%s version=%s sha=%s date=%s\n", name, build.Version, build.SHA, build.Date)
		return nil
	}
	if err != nil {
		return err
	}
	if *check {
		return runCheck(context.Background(), cfg, stdout)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Run(ctx, cfg, build)
}

func runCheck(ctx context.Context, cfg config.WrapperConfig, stdout io.Writer) error {
	logx.Configure(cfg.LogLevel)
	results, err := contract.Check(ctx, wrapper.NewHandler(Options(cfg)))
	if err != nil {
		return err
	}
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			_, _ = fmt.Fprintf(stdout, "FAIL %s %s -> %d: %v\n", r.Method, r.Path, r.Status, r.Err)
			continue
		}
		_, _ = fmt.Fprintf(stdout, "ok   %s %s -> %d\n", r.Method, r.Path, r.Status)
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d responses", ErrCheckFailed, failed, len(results))
	}
	return nil
}
