// Package grpcserver runs the operational gRPC listener: health checks and,
// in development, server reflection.
package grpcserver

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service key reported alongside the overall "" key.
const ServiceName = "beatbattle.Engine"

type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	// Creds enables TLS; nil serves plaintext.
	Creds      credentials.TransportCredentials
	Reflection bool
}

// Ops bundles the gRPC server with its health state.
type Ops struct {
	Server *grpc.Server
	Health *health.Server
	log    *zap.Logger
}

func NewOps(opts Options, log *zap.Logger) *Ops {
	var so []grpc.ServerOption
	if opts.Creds != nil {
		so = append(so, grpc.Creds(opts.Creds))
	}
	so = append(so,
		grpc.ChainUnaryInterceptor(RecoverUnary(log), LoggingUnary(log)),
		grpc.ChainStreamInterceptor(RecoverStream(log), LoggingStream(log)),
	)
	s := grpc.NewServer(so...)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	if opts.Reflection {
		reflection.Register(s)
	}
	return &Ops{Server: s, Health: hs, log: log}
}

// Check pings the database once and publishes the result.
func (o *Ops) Check(ctx context.Context, db Pinger) healthpb.HealthCheckResponse_ServingStatus {
	st := healthpb.HealthCheckResponse_SERVING
	if err := db.Ping(ctx); err != nil {
		st = healthpb.HealthCheckResponse_NOT_SERVING
		o.log.Warn("health: db ping failed", zap.Error(err))
	}
	o.Health.SetServingStatus("", st)
	o.Health.SetServingStatus(ServiceName, st)
	return st
}

// Watch re-checks the database every interval until ctx ends, then marks
// everything NOT_SERVING so load balancers drain before shutdown.
func (o *Ops) Watch(ctx context.Context, db Pinger, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		pctx, cancel := context.WithTimeout(ctx, interval)
		o.Check(pctx, db)
		cancel()
		select {
		case <-ctx.Done():
			o.Health.Shutdown()
			return nil
		case <-t.C:
		}
	}
}
