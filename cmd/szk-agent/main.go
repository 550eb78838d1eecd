// Command szk-agent keeps account balances fresh and serves them over gRPC.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/and161185/suizk/internal/app"
	"github.com/and161185/suizk/internal/config"
	"github.com/and161185/suizk/internal/metrics"
	grpcserver "github.com/and161185/suizk/internal/server/grpc"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main parses configuration, wires the session store and runs the refresher,
// the gRPC server and the metrics endpoint until a signal arrives.
func main() {
	fs := flag.NewFlagSet("szk-agent", flag.ExitOnError)
	dev := fs.Bool("dev", false, "enable server reflection (dev only)")
	topUpBelow := fs.Uint64("auto-faucet-below", 0, "request faucet funds for accounts under this many MIST (0 disables)")
	cfg, err := config.Parse(fs, os.Args[1:], os.LookupEnv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("network", cfg.Network),
		zap.String("addr", cfg.AgentAddr),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger, nil)
	if err != nil {
		logger.Fatal("wire", zap.Error(err))
	}
	defer a.Close()

	if err := serve(ctx, a, *dev, *topUpBelow); err != nil {
		logger.Error("agent stopped", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func serve(ctx context.Context, a *app.App, dev bool, topUpBelow uint64) error {
	log := a.Log
	cfg := a.Config

	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpcserver.RecoverUnary(log),
			grpcserver.LoggingUnary(log),
			grpcserver.ErrorsUnary(),
		),
	)
	var faucet grpcserver.Faucet
	if a.Faucet != nil {
		faucet = a.Faucet
	}
	grpcserver.RegisterAgentServer(s, grpcserver.New(a.Accounts, a.Refresher, faucet))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	if dev {
		reflection.Register(s)
	}

	lis, err := net.Listen("tcp", cfg.AgentAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	ms := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Refresher.Run(gctx, a.Addresses)
	})
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.AgentAddr))
		return s.Serve(lis)
	})
	g.Go(func() error {
		log.Info("metrics", zap.String("addr", cfg.MetricsAddr))
		if err := ms.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if topUpBelow > 0 && a.Faucet != nil {
		g.Go(func() error {
			autoFaucet(gctx, a, topUpBelow)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		hs.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = ms.Shutdown(shutdownCtx)

		done := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-shutdownCtx.Done():
			s.Stop()
		}
		return nil
	})
	return g.Wait()
}

// autoFaucet tops up accounts whose cached balance is under threshold. The
// faucet limiter keeps repeated requests for one address apart.
func autoFaucet(ctx context.Context, a *app.App, threshold uint64) {
	t := time.NewTicker(a.Config.RefreshInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		for addr, mist := range a.Refresher.Cache().Snapshot() {
			if mist >= threshold {
				continue
			}
			done := a.Faucet.RequestAsync(ctx, addr, 30*time.Second)
			go func() {
				if err := <-done; err != nil {
					a.Log.Debug("auto faucet", zap.String("address", addr), zap.Error(err))
					return
				}
				a.Log.Info("auto faucet requested", zap.String("address", addr))
			}()
		}
	}
}
