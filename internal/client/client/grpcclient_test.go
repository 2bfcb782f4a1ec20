package client

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/resdex/resdex/internal/common"
	"github.com/resdex/resdex/internal/profile"
	"github.com/resdex/resdex/internal/rpc"
)

// fakeServer answers like the real server but keeps its state in memory.
type fakeServer struct {
	mu          sync.Mutex
	validAccess string
	refreshes   int
	lastPatch   profile.Patch
	deleteErr   error
	snapshots   [][]profile.UserProfile
}

func (f *fakeServer) token(ctx context.Context) string {
	md, _ := metadata.FromIncomingContext(ctx)
	if v := md.Get(common.AccessTokenHeaderName); len(v) > 0 {
		return v[0]
	}
	return ""
}

func (f *fakeServer) checkAccess(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.token(ctx) {
	case f.validAccess:
		return nil
	case "stale":
		return status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
	}
	return status.Error(codes.Unauthenticated, "unauthorized")
}

func (f *fakeServer) Register(_ context.Context, req *rpc.RegisterRequest) (*rpc.RegisterResponse, error) {
	if req.Username == "taken" {
		return nil, status.Error(codes.AlreadyExists, "already exists")
	}
	return &rpc.RegisterResponse{UserID: "u1"}, nil
}

func (f *fakeServer) GetSalt(context.Context, *rpc.GetSaltRequest) (*rpc.GetSaltResponse, error) {
	return &rpc.GetSaltResponse{Salt: []byte("salt")}, nil
}

func (f *fakeServer) Login(_ context.Context, req *rpc.LoginRequest) (*rpc.TokenResponse, error) {
	if string(req.Verifier) != "ok" {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}
	return &rpc.TokenResponse{UserID: "u1", AccessToken: "stale", RefreshToken: "r1"}, nil
}

func (f *fakeServer) RefreshToken(_ context.Context, req *rpc.RefreshTokenRequest) (*rpc.TokenResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if req.RefreshToken != "r1" {
		return nil, status.Error(codes.Unauthenticated, common.ErrRefreshTokenExpired.Error())
	}
	f.refreshes++
	f.validAccess = "fresh"
	return &rpc.TokenResponse{UserID: "u1", AccessToken: "fresh", RefreshToken: "r2"}, nil
}

func (f *fakeServer) Logout(ctx context.Context, _ *rpc.LogoutRequest) (*rpc.LogoutResponse, error) {
	if err := f.checkAccess(ctx); err != nil {
		return nil, err
	}
	return &rpc.LogoutResponse{}, nil
}

func (f *fakeServer) ResolveHandle(_ context.Context, req *rpc.ResolveHandleRequest) (*rpc.ResolveHandleResponse, error) {
	if req.Handle == "ada" {
		return &rpc.ResolveHandleResponse{UserID: "u1"}, nil
	}
	return nil, status.Error(codes.NotFound, "not found")
}

func (f *fakeServer) GetProfile(_ context.Context, req *rpc.GetProfileRequest) (*rpc.GetProfileResponse, error) {
	if req.UserID == "u1" {
		return &rpc.GetProfileResponse{Profile: &profile.UserProfile{ID: "u1", Username: "ada", Contributions: 3}}, nil
	}
	return nil, status.Error(codes.NotFound, "not found")
}

func (f *fakeServer) UpdateProfile(ctx context.Context, req *rpc.UpdateProfileRequest) (*rpc.UpdateProfileResponse, error) {
	if err := f.checkAccess(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.lastPatch = req.Patch
	f.mu.Unlock()
	return &rpc.UpdateProfileResponse{}, nil
}

func (f *fakeServer) DeleteObject(ctx context.Context, _ *rpc.DeleteObjectRequest) (*rpc.DeleteObjectResponse, error) {
	if err := f.checkAccess(ctx); err != nil {
		return nil, err
	}
	return &rpc.DeleteObjectResponse{}, f.deleteErr
}

func (f *fakeServer) WatchUsers(_ *rpc.WatchUsersRequest, stream rpc.WatchUsersServer) error {
	for _, s := range f.snapshots {
		if err := stream.Send(&rpc.UsersSnapshot{Users: s}); err != nil {
			return err
		}
	}
	return nil
}

func newTestClient(t *testing.T, fs *fakeServer, hs *health.Server) *GRPCClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	rpc.RegisterResdexServer(srv, fs)
	if hs != nil {
		healthpb.RegisterHealthServer(srv, hs)
	}
	go func() { _ = srv.Serve(lis) }()

	c := &GRPCClient{endpointURL: "passthrough:///bufnet"}
	err := c.init(
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = c.Close()
		srv.Stop()
	})
	return c
}

func TestLogin_SetsTokensAndUserID(t *testing.T) {
	c := newTestClient(t, &fakeServer{}, nil)

	id, err := c.Login(context.Background(), "ada", []byte("ok"))
	require.NoError(t, err)
	assert.Equal(t, "u1", id)
	assert.Equal(t, "u1", c.UserID())

	access, refresh := c.tokens()
	assert.Equal(t, "stale", access)
	assert.Equal(t, "r1", refresh)

	_, err = c.Login(context.Background(), "ada", []byte("bad"))
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestInterceptor_RefreshesExpiredTokenOnce(t *testing.T) {
	fs := &fakeServer{}
	c := newTestClient(t, fs, nil)

	_, err := c.Login(context.Background(), "ada", []byte("ok"))
	require.NoError(t, err)

	about := "hello"
	require.NoError(t, c.UpdateProfile(context.Background(), "u1", profile.Patch{About: &about}))

	assert.Equal(t, 1, fs.refreshes)
	require.NotNil(t, fs.lastPatch.About)
	assert.Equal(t, "hello", *fs.lastPatch.About)

	access, refresh := c.tokens()
	assert.Equal(t, "fresh", access)
	assert.Equal(t, "r2", refresh)
}

func TestInterceptor_RefreshFailureIsReturned(t *testing.T) {
	c := newTestClient(t, &fakeServer{}, nil)
	c.setTokens("u1", "stale", "gone")

	err := c.DeleteObject(context.Background(), "k")
	assert.ErrorIs(t, err, common.ErrRefreshTokenExpired)
}

func TestInterceptor_NoRefreshWithoutRefreshToken(t *testing.T) {
	fs := &fakeServer{}
	c := newTestClient(t, fs, nil)
	c.setTokens("u1", "stale", "")

	err := c.DeleteObject(context.Background(), "k")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
	assert.Zero(t, fs.refreshes)
}

func TestRegister_MapsAlreadyExists(t *testing.T) {
	c := newTestClient(t, &fakeServer{}, nil)

	id, err := c.Register(context.Background(), "ada", "Ada", []byte("s"), []byte("v"))
	require.NoError(t, err)
	assert.Equal(t, "u1", id)

	_, err = c.Register(context.Background(), "taken", "", nil, nil)
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestResolveAndGetProfile(t *testing.T) {
	c := newTestClient(t, &fakeServer{}, nil)
	ctx := context.Background()

	id, err := c.ResolveHandle(ctx, "ada")
	require.NoError(t, err)

	p, err := c.GetProfile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Contributions)

	_, err = c.ResolveHandle(ctx, "nobody")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	salt, err := c.GetSalt(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, []byte("salt"), salt)
}

func TestLogout_ClearsTokens(t *testing.T) {
	fs := &fakeServer{validAccess: "fresh"}
	c := newTestClient(t, fs, nil)

	assert.ErrorIs(t, c.Logout(context.Background()), ErrNotLoggedIn)

	c.setTokens("u1", "fresh", "r2")
	require.NoError(t, c.Logout(context.Background()))
	assert.Empty(t, c.UserID())
}

func TestDeleteObject_Unavailable(t *testing.T) {
	fs := &fakeServer{validAccess: "fresh", deleteErr: status.Error(codes.Unavailable, "storage unavailable")}
	c := newTestClient(t, fs, nil)
	c.setTokens("u1", "fresh", "r2")

	assert.ErrorIs(t, c.DeleteObject(context.Background(), "k"), common.ErrorRemoteUnavailable)
}

func TestWatchUsers_DeliversSnapshotsThenCloses(t *testing.T) {
	fs := &fakeServer{snapshots: [][]profile.UserProfile{
		{{ID: "u1"}},
		{{ID: "u1"}, {ID: "u2"}},
	}}
	c := newTestClient(t, fs, nil)

	ch, err := c.WatchUsers(context.Background(), 50)
	require.NoError(t, err)

	var got []int
	timeout := time.After(2 * time.Second)
	for done := false; !done; {
		select {
		case s, ok := <-ch:
			if !ok {
				done = true
				break
			}
			got = append(got, len(s))
		case <-timeout:
			t.Fatal("stream did not close")
		}
	}
	assert.Equal(t, []int{1, 2}, got)
}

func TestPing(t *testing.T) {
	hs := health.NewServer()
	hs.SetServingStatus(rpc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	c := newTestClient(t, &fakeServer{}, hs)

	require.NoError(t, c.Ping(context.Background()))

	hs.SetServingStatus(rpc.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	assert.ErrorIs(t, c.Ping(context.Background()), common.ErrorRemoteUnavailable)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		in   error
		want error
	}{
		{status.Error(codes.NotFound, "x"), common.ErrorNotFound},
		{status.Error(codes.PermissionDenied, "x"), common.ErrorPermissionDenied},
		{status.Error(codes.InvalidArgument, "x"), common.ErrorValidation},
		{status.Error(codes.AlreadyExists, "x"), common.ErrorAlreadyExists},
		{status.Error(codes.Unauthenticated, "x"), common.ErrorUnauthorized},
		{status.Error(codes.Unauthenticated, common.ErrRefreshTokenExpired.Error()), common.ErrRefreshTokenExpired},
		{status.Error(codes.Unavailable, "x"), common.ErrorRemoteUnavailable},
		{status.Error(codes.DeadlineExceeded, "x"), common.ErrorRemoteUnavailable},
		{status.Error(codes.ResourceExhausted, "x"), ErrRateLimited},
	}
	for _, tt := range tests {
		assert.ErrorIs(t, mapError(tt.in), tt.want, "code %s", status.Code(tt.in))
	}

	assert.NoError(t, mapError(nil))

	plain := errors.New("plain")
	assert.ErrorIs(t, mapError(plain), plain)
}
