// Command bb-server runs the Beat Battle HTTP API, the gRPC ops listener and
// the battle resolver.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/credentials"

	"github.com/and161185/beatbattle/internal/auth"
	"github.com/and161185/beatbattle/internal/config"
	"github.com/and161185/beatbattle/internal/limiter"
	"github.com/and161185/beatbattle/internal/migrate"
	"github.com/and161185/beatbattle/internal/repository/postgres"
	"github.com/and161185/beatbattle/internal/resolver"
	grpcserver "github.com/and161185/beatbattle/internal/server/grpc"
	httpserver "github.com/and161185/beatbattle/internal/server/http"
	"github.com/and161185/beatbattle/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	cfg, err := config.LoadApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	logger, err := cfg.Log.Logger()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// run wires the process and blocks until ctx is cancelled or a component fails.
func run(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) error {
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("http", cfg.Server.HTTPAddr),
		zap.String("ops", cfg.Server.OpsAddr),
	)

	if err := migrate.Up(ctx, cfg.Server.PostgresDSN, logger); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	db, err := postgres.New(ctx, cfg.Server.PostgresDSN)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	// Repositories
	wallets := postgres.NewWalletRepo(db)
	battleRepo := postgres.NewBattleRepo(db)
	voteRepo := postgres.NewVoteRepo(db)
	requestRepo := postgres.NewRequestRepo(db)

	// Services
	rules := cfg.Economy.Rules()
	battles := service.NewBattleService(battleRepo, wallets, rules)
	votes := service.NewVoteService(voteRepo)
	challenges := service.NewChallengeService(requestRepo, wallets, rules)
	ledger := service.NewLedgerService(wallets, rules.StartingCoins)
	res := resolver.New(battles, challenges, cfg.Resolver.Interval, cfg.Resolver.Batch, logger.Named("resolver"))

	router := httpserver.NewRouter(httpserver.Deps{
		Battles:      battles,
		Votes:        votes,
		Challenges:   challenges,
		Ledger:       ledger,
		Resolver:     res,
		DB:           db,
		Verifier:     auth.NewVerifier([]byte(cfg.Server.JWTSignKey)),
		AdminKey:     cfg.Server.AdminAPIKey,
		AdminLimiter: limiter.NewPG(db.Pool, 15*time.Minute, 5, 15*time.Minute),
		Log:          logger.Named("http"),
	})
	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var creds credentials.TransportCredentials
	if cfg.Server.TLSCert != "" {
		if creds, err = credentials.NewServerTLSFromFile(cfg.Server.TLSCert, cfg.Server.TLSKey); err != nil {
			return fmt.Errorf("load TLS cert/key: %w", err)
		}
	}
	ops := grpcserver.NewOps(grpcserver.Options{Creds: creds, Reflection: cfg.Server.GRPCReflection}, logger.Named("grpc"))
	lis, err := net.Listen("tcp", cfg.Server.OpsAddr)
	if err != nil {
		return fmt.Errorf("listen ops: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening (http)", zap.String("addr", cfg.Server.HTTPAddr), zap.Bool("tls", creds != nil))
		var err error
		if creds != nil {
			err = httpSrv.ListenAndServeTLS(cfg.Server.TLSCert, cfg.Server.TLSKey)
		} else {
			err = httpSrv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		logger.Info("listening (grpc ops)", zap.String("addr", cfg.Server.OpsAddr))
		return ops.Server.Serve(lis)
	})
	g.Go(func() error { return ops.Watch(gctx, db, 10*time.Second) })
	g.Go(func() error { return res.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		shutdown(httpSrv, ops, cfg.Server.ShutdownTimeout, logger)
		return nil
	})
	return g.Wait()
}

// shutdown drains both listeners, forcing the gRPC server down when the
// timeout elapses.
func shutdown(httpSrv *http.Server, ops *grpcserver.Ops, timeout time.Duration, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}

	done := make(chan struct{})
	go func() {
		ops.Server.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		ops.Server.Stop()
	}
}
