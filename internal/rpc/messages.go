package rpc

import "github.com/resdex/resdex/internal/profile"

type RegisterRequest struct {
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Salt     []byte `json:"salt"`
	Verifier []byte `json:"verifier"`
}

type RegisterResponse struct {
	UserID string `json:"userId"`
}

type GetSaltRequest struct {
	Username string `json:"username"`
}

type GetSaltResponse struct {
	Salt []byte `json:"salt"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Verifier []byte `json:"verifier"`
}

type TokenResponse struct {
	UserID       string `json:"userId"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// LogoutRequest revokes every refresh token of the caller.
type LogoutRequest struct{}

type LogoutResponse struct{}

type ResolveHandleRequest struct {
	Handle string `json:"handle"`
}

type ResolveHandleResponse struct {
	UserID string `json:"userId"`
}

type GetProfileRequest struct {
	UserID string `json:"userId"`
}

type GetProfileResponse struct {
	Profile *profile.UserProfile `json:"profile"`
}

type UpdateProfileRequest struct {
	UserID string        `json:"userId"`
	Patch  profile.Patch `json:"patch"`
}

type UpdateProfileResponse struct{}

type DeleteObjectRequest struct {
	Key string `json:"key"`
}

type DeleteObjectResponse struct{}

type WatchUsersRequest struct {
	Limit int `json:"limit"`
}

// UsersSnapshot replaces the receiver's previous snapshot entirely.
type UsersSnapshot struct {
	Users []profile.UserProfile `json:"users"`
}
