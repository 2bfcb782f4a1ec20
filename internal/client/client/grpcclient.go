package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/resdex/resdex/internal/common"
	"github.com/resdex/resdex/internal/profile"
	"github.com/resdex/resdex/internal/rpc"
)

const saltTimeout = 12 * time.Second

// rpcClient is the subset of *rpc.Client used here.
type rpcClient interface {
	Register(ctx context.Context, in *rpc.RegisterRequest, opts ...grpc.CallOption) (*rpc.RegisterResponse, error)
	GetSalt(ctx context.Context, in *rpc.GetSaltRequest, opts ...grpc.CallOption) (*rpc.GetSaltResponse, error)
	Login(ctx context.Context, in *rpc.LoginRequest, opts ...grpc.CallOption) (*rpc.TokenResponse, error)
	RefreshToken(ctx context.Context, in *rpc.RefreshTokenRequest, opts ...grpc.CallOption) (*rpc.TokenResponse, error)
	Logout(ctx context.Context, in *rpc.LogoutRequest, opts ...grpc.CallOption) (*rpc.LogoutResponse, error)
	ResolveHandle(ctx context.Context, in *rpc.ResolveHandleRequest, opts ...grpc.CallOption) (*rpc.ResolveHandleResponse, error)
	GetProfile(ctx context.Context, in *rpc.GetProfileRequest, opts ...grpc.CallOption) (*rpc.GetProfileResponse, error)
	UpdateProfile(ctx context.Context, in *rpc.UpdateProfileRequest, opts ...grpc.CallOption) (*rpc.UpdateProfileResponse, error)
	DeleteObject(ctx context.Context, in *rpc.DeleteObjectRequest, opts ...grpc.CallOption) (*rpc.DeleteObjectResponse, error)
	WatchUsers(ctx context.Context, in *rpc.WatchUsersRequest, opts ...grpc.CallOption) (rpc.WatchUsersClient, error)
}

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      rpcClient
	health      healthpb.HealthClient

	mu           sync.RWMutex
	userID       string
	accessToken  string
	refreshToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) tokens() (string, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken, s.refreshToken
}

func (s *GRPCClient) setTokens(userID, access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if userID != "" {
		s.userID = userID
	}
	s.accessToken = access
	s.refreshToken = refresh
}

func isTokenExpired(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == codes.Unauthenticated && st.Message() == common.ErrTokenExpired.Error()
}

// accessTokenInterceptor attaches the access token and, when the server says
// it has expired, redeems the refresh token once and retries the call.
func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	access, refresh := s.tokens()
	if access != "" {
		ctx = withAccessToken(ctx, access)
	}

	err := invoker(ctx, method, req, reply, cc, opts...)
	if err == nil || !isTokenExpired(err) || refresh == "" {
		return err
	}

	resp, rerr := s.client.RefreshToken(ctx, &rpc.RefreshTokenRequest{RefreshToken: refresh})
	if rerr != nil {
		return rerr
	}
	s.setTokens(resp.UserID, resp.AccessToken, resp.RefreshToken)

	return invoker(withAccessToken(ctx, resp.AccessToken), method, req, reply, cc, opts...)
}

func NewGRPCClient(endpointURL string) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	if err := c.init(grpc.WithTransportCredentials(insecure.NewCredentials())); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) init(opts ...grpc.DialOption) error {
	opts = append(opts, grpc.WithUnaryInterceptor(s.accessTokenInterceptor))
	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = rpc.NewClient(conn)
	s.health = healthpb.NewHealthClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

// UserID is the id of the logged-in account, or "".
func (s *GRPCClient) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *GRPCClient) Register(ctx context.Context, username, fullName string, salt, verifier []byte) (string, error) {
	resp, err := s.client.Register(ctx, &rpc.RegisterRequest{Username: username, FullName: fullName, Salt: salt, Verifier: verifier})
	if err != nil {
		return "", mapError(err)
	}
	return resp.UserID, nil
}

func (s *GRPCClient) GetSalt(ctx context.Context, username string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, saltTimeout)
	defer cancel()

	resp, err := s.client.GetSalt(ctx, &rpc.GetSaltRequest{Username: username})
	if err != nil {
		return nil, mapError(err)
	}
	return resp.Salt, nil
}

func (s *GRPCClient) Login(ctx context.Context, username string, verifier []byte) (string, error) {
	resp, err := s.client.Login(ctx, &rpc.LoginRequest{Username: username, Verifier: verifier})
	if err != nil {
		return "", mapError(err)
	}
	s.setTokens(resp.UserID, resp.AccessToken, resp.RefreshToken)
	return resp.UserID, nil
}

// Logout revokes the session on the server and forgets the local tokens even
// when the server cannot be reached.
func (s *GRPCClient) Logout(ctx context.Context) error {
	if access, _ := s.tokens(); access == "" {
		return ErrNotLoggedIn
	}
	_, err := s.client.Logout(ctx, &rpc.LogoutRequest{})

	s.mu.Lock()
	s.userID, s.accessToken, s.refreshToken = "", "", ""
	s.mu.Unlock()

	return mapError(err)
}

// Ping asks the standard health service whether the ResDex service is serving.
func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.health.Check(ctx, &healthpb.HealthCheckRequest{Service: rpc.ServiceName})
	if err != nil {
		return mapError(err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return common.ErrorRemoteUnavailable
	}
	return nil
}

func (s *GRPCClient) ResolveHandle(ctx context.Context, handle string) (string, error) {
	resp, err := s.client.ResolveHandle(ctx, &rpc.ResolveHandleRequest{Handle: handle})
	if err != nil {
		return "", mapError(err)
	}
	if resp.UserID == "" {
		return "", common.ErrorNotFound
	}
	return resp.UserID, nil
}

func (s *GRPCClient) GetProfile(ctx context.Context, userID string) (*profile.UserProfile, error) {
	resp, err := s.client.GetProfile(ctx, &rpc.GetProfileRequest{UserID: userID})
	if err != nil {
		return nil, mapError(err)
	}
	if resp.Profile == nil {
		return nil, common.ErrorNotFound
	}
	return resp.Profile, nil
}

func (s *GRPCClient) UpdateProfile(ctx context.Context, userID string, patch profile.Patch) error {
	_, err := s.client.UpdateProfile(ctx, &rpc.UpdateProfileRequest{UserID: userID, Patch: patch})
	return mapError(err)
}

func (s *GRPCClient) DeleteObject(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &rpc.DeleteObjectRequest{Key: key})
	return mapError(err)
}

// WatchUsers streams snapshots until ctx is done or the stream fails. The
// channel is closed when the stream ends.
func (s *GRPCClient) WatchUsers(ctx context.Context, limit int) (<-chan []profile.UserProfile, error) {
	stream, err := s.client.WatchUsers(ctx, &rpc.WatchUsersRequest{Limit: limit})
	if err != nil {
		return nil, mapError(err)
	}

	out := make(chan []profile.UserProfile, 1)
	go func() {
		defer close(out)
		for {
			snap, err := stream.Recv()
			if err != nil {
				return
			}
			select {
			case out <- snap.Users:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// mapError turns a gRPC status into the matching sentinel from internal/common.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) {
		return common.ErrorRemoteUnavailable
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("rpc error: %w", err)
	}
	switch st.Code() {
	case codes.NotFound:
		return common.ErrorNotFound
	case codes.PermissionDenied:
		return common.ErrorPermissionDenied
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", common.ErrorValidation, st.Message())
	case codes.AlreadyExists:
		return common.ErrorAlreadyExists
	case codes.Unauthenticated:
		if st.Message() == common.ErrRefreshTokenExpired.Error() {
			return fmt.Errorf("%w: %w", common.ErrorUnauthorized, common.ErrRefreshTokenExpired)
		}
		return common.ErrorUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", common.ErrorRemoteUnavailable, st.Message())
	case codes.ResourceExhausted:
		return ErrRateLimited
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
