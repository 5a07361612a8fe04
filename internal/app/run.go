// Package app wires configuration, logging, metrics and the status server of
// one wrapper process.
package app

import (
	"context"
	"net"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gaspardpetit/mcpwrap/internal/config"
	"github.com/gaspardpetit/mcpwrap/internal/logx"
	"github.com/gaspardpetit/mcpwrap/internal/metrics"
	"github.com/gaspardpetit/mcpwrap/internal/wrapper"
)

// BuildInfo identifies the binary.
type BuildInfo struct {
	Version string
	SHA     string
	Date    string
}

// Instance is a started wrapper process.
type Instance struct {
	ID          string
	Addr        net.Addr
	MetricsAddr net.Addr
	Server      *wrapper.Server

	g *errgroup.Group
}

// Wait blocks until every listener of the instance has stopped.
func (i *Instance) Wait() error { return i.g.Wait() }

// Options builds the status handler options of cfg.
func Options(cfg config.WrapperConfig) wrapper.Options {
	return wrapper.Options{
		Descriptor: wrapper.Descriptor{
			Name: cfg.ServiceName,
			Note: cfg.ServiceNote,
		},
		AllowedOrigins: cfg.AllowedOrigins,
	}
}

// Start binds every listener of cfg and serves until ctx is done. A bind
// failure is returned as a *wrapper.BindError and nothing is left listening.
func Start(ctx context.Context, cfg config.WrapperConfig, build BuildInfo) (*Instance, error) {
	id := uuid.NewString()
	logger := logx.Log.With().Str("profile", cfg.Profile).Str("instance_id", id).Logger()

	ln, err := wrapper.Listen(cfg.Addr())
	if err != nil {
		return nil, err
	}
	inst := &Instance{
		ID:     id,
		Addr:   ln.Addr(),
		Server: wrapper.New(Options(cfg), &logger),
	}

	var mln net.Listener
	var mh http.Handler
	if cfg.MetricsEnabled() {
		mln, err = wrapper.Listen(cfg.MetricsAddr)
		if err != nil {
			_ = ln.Close()
			return nil, err
		}
		inst.MetricsAddr = mln.Addr()
		mh = metricsHandler(cfg, build)
	}

	g, gctx := errgroup.WithContext(ctx)
	inst.g = g
	g.Go(func() error {
		return inst.Server.Serve(gctx, ln, cfg.ShutdownTimeout)
	})
	if mln != nil {
		g.Go(func() error {
			logger.Info().Str("addr", mln.Addr().String()).Msg("metrics listening")
			return wrapper.ServeUntilContext(gctx, mln, mh, cfg.ShutdownTimeout)
		})
	}
	return inst, nil
}

// Run configures logging, starts the wrapper described by cfg and blocks until
// ctx is done.
func Run(ctx context.Context, cfg config.WrapperConfig, build BuildInfo) error {
	logx.Configure(cfg.LogLevel)
	logStartup(logx.Log, cfg, build)
	inst, err := Start(ctx, cfg, build)
	if err != nil {
		return err
	}
	return inst.Wait()
}

func metricsHandler(cfg config.WrapperConfig, build BuildInfo) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics.Register(reg)
	metrics.SetBuildInfo(cfg.Profile, build.Version, build.SHA, build.Date)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}

func logStartup(l zerolog.Logger, cfg config.WrapperConfig, build BuildInfo) {
	ev := l.Debug().
		Str("profile", cfg.Profile).
		Str("version", build.Version).
		Str("service", cfg.ServiceName).
		Str("addr", cfg.Addr())
	if cfg.MetricsEnabled() {
		ev = ev.Str("metrics_addr", cfg.MetricsAddr)
	}
	if len(cfg.AllowedOrigins) > 0 {
		ev = ev.Strs("allowed_origins", cfg.AllowedOrigins)
	}
	ev.Msg("wrapper starting")
}
