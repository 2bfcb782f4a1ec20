// Package rpc describes the ResDex gRPC service by hand: request and response
// messages, a JSON codec, the grpc.ServiceDesc used by the server, and a typed
// client. All calls use the "json" content subtype.
package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "resdex.v1.ResdexService"

const (
	MethodRegister      = "/" + ServiceName + "/Register"
	MethodGetSalt       = "/" + ServiceName + "/GetSalt"
	MethodLogin         = "/" + ServiceName + "/Login"
	MethodRefreshToken  = "/" + ServiceName + "/RefreshToken"
	MethodLogout        = "/" + ServiceName + "/Logout"
	MethodResolveHandle = "/" + ServiceName + "/ResolveHandle"
	MethodGetProfile    = "/" + ServiceName + "/GetProfile"
	MethodUpdateProfile = "/" + ServiceName + "/UpdateProfile"
	MethodDeleteObject  = "/" + ServiceName + "/DeleteObject"
	MethodWatchUsers    = "/" + ServiceName + "/WatchUsers"
)

// ResdexServer is implemented by the gRPC front end of the server.
type ResdexServer interface {
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	GetSalt(context.Context, *GetSaltRequest) (*GetSaltResponse, error)
	Login(context.Context, *LoginRequest) (*TokenResponse, error)
	RefreshToken(context.Context, *RefreshTokenRequest) (*TokenResponse, error)
	Logout(context.Context, *LogoutRequest) (*LogoutResponse, error)
	ResolveHandle(context.Context, *ResolveHandleRequest) (*ResolveHandleResponse, error)
	GetProfile(context.Context, *GetProfileRequest) (*GetProfileResponse, error)
	UpdateProfile(context.Context, *UpdateProfileRequest) (*UpdateProfileResponse, error)
	DeleteObject(context.Context, *DeleteObjectRequest) (*DeleteObjectResponse, error)
	WatchUsers(*WatchUsersRequest, WatchUsersServer) error
}

type WatchUsersServer interface {
	Send(*UsersSnapshot) error
	grpc.ServerStream
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ResdexServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: unaryHandler(MethodRegister, ResdexServer.Register)},
		{MethodName: "GetSalt", Handler: unaryHandler(MethodGetSalt, ResdexServer.GetSalt)},
		{MethodName: "Login", Handler: unaryHandler(MethodLogin, ResdexServer.Login)},
		{MethodName: "RefreshToken", Handler: unaryHandler(MethodRefreshToken, ResdexServer.RefreshToken)},
		{MethodName: "Logout", Handler: unaryHandler(MethodLogout, ResdexServer.Logout)},
		{MethodName: "ResolveHandle", Handler: unaryHandler(MethodResolveHandle, ResdexServer.ResolveHandle)},
		{MethodName: "GetProfile", Handler: unaryHandler(MethodGetProfile, ResdexServer.GetProfile)},
		{MethodName: "UpdateProfile", Handler: unaryHandler(MethodUpdateProfile, ResdexServer.UpdateProfile)},
		{MethodName: "DeleteObject", Handler: unaryHandler(MethodDeleteObject, ResdexServer.DeleteObject)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "WatchUsers", Handler: watchUsersHandler, ServerStreams: true},
	},
	Metadata: "resdex/v1/resdex",
}

func RegisterResdexServer(s grpc.ServiceRegistrar, srv ResdexServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unaryHandler[Req, Resp any](method string, call func(ResdexServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ResdexServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ResdexServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchUsersHandler(srv any, stream grpc.ServerStream) error {
	in := new(WatchUsersRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ResdexServer).WatchUsers(in, &watchUsersServer{stream})
}

type watchUsersServer struct {
	grpc.ServerStream
}

func (x *watchUsersServer) Send(m *UsersSnapshot) error {
	return x.ServerStream.SendMsg(m)
}
