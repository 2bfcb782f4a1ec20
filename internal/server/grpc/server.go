// Package grpc is the server's gRPC front end. It maps rpc messages onto the
// services, enforces access tokens and per-peer rate limits, and streams the
// live user snapshot.
package grpc

import (
	"context"
	"net"

	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/resdex/resdex/internal/logging"
	"github.com/resdex/resdex/internal/profile"
	"github.com/resdex/resdex/internal/rpc"
	"github.com/resdex/resdex/internal/server/metrics"
	"github.com/resdex/resdex/internal/server/models"
	"github.com/resdex/resdex/internal/server/services"
)

type UserService interface {
	Register(ctx context.Context, username, fullName string, salt, verifier []byte) (*models.User, error)
	GetSalt(ctx context.Context, username string) ([]byte, error)
	Login(ctx context.Context, username string, verifier []byte) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, userID string) error
	ValidateAccessToken(token string) (string, error)
}

type ProfileService interface {
	ResolveHandle(ctx context.Context, handle string) (string, error)
	GetProfile(ctx context.Context, userID string) (*profile.UserProfile, error)
	UpdateProfile(ctx context.Context, actorID, userID string, patch profile.Patch) error
	DeleteObject(ctx context.Context, actorID, key string) error
	Snapshot(ctx context.Context, limit int) ([]profile.UserProfile, error)
}

// Hub hands out change signals for WatchUsers streams.
type Hub interface {
	Subscribe(clientID string) (<-chan struct{}, func(), error)
}

type Options struct {
	Address   string
	Users     UserService
	Profiles  ProfileService
	Hub       Hub
	Metrics   metrics.Recorder
	Logger    logging.Logger
	RateLimit rate.Limit
	RateBurst int
}

type GRPCServer struct {
	address  string
	users    UserService
	profiles ProfileService
	hub      Hub
	metrics  metrics.Recorder
	limiter  *peerLimiter
	logger   logging.Logger
}

func NewGRPCServer(o Options) *GRPCServer {
	if o.Metrics == nil {
		o.Metrics = metrics.Nop{}
	}
	return &GRPCServer{
		address:  o.Address,
		users:    o.Users,
		profiles: o.Profiles,
		hub:      o.Hub,
		metrics:  o.Metrics,
		limiter:  newPeerLimiter(o.RateLimit, o.RateBurst),
		logger:   o.Logger.With("module", "grpc_server"),
	}
}

// newServer builds the grpc.Server with the interceptor chains, the ResdexService
// and the standard health service.
func (s *GRPCServer) newServer() (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			s.loggingInterceptor,
			s.metricsInterceptor,
			s.rateLimitInterceptor,
			s.accessTokenInterceptor,
		),
		grpc.ChainStreamInterceptor(
			s.streamLoggingInterceptor,
			s.streamRateLimitInterceptor,
		),
	)

	rpc.RegisterResdexServer(srv, s)

	hs := health.NewServer()
	hs.SetServingStatus(rpc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	return srv, hs
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv, hs := s.newServer()

	stopLimiter := s.limiter.start()
	defer stopLimiter()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		hs.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	return srv.Serve(lis)
}
