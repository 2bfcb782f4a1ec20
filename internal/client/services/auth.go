// Package services holds the client's application services: accounts, the
// profile cache and sync session, and the live search filter.
package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/resdex/resdex/internal/common"
	"github.com/resdex/resdex/internal/cryptox"
	"github.com/resdex/resdex/internal/profile"
)

const saltSize = 32

// AuthClient is the account side of the remote API.
type AuthClient interface {
	Register(ctx context.Context, username, fullName string, salt, verifier []byte) (string, error)
	GetSalt(ctx context.Context, username string) ([]byte, error)
	Login(ctx context.Context, username string, verifier []byte) (string, error)
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
	UserID() string
}

// Identity reports who is acting. An empty id means nobody is logged in.
type Identity interface {
	CurrentUserID() string
}

type AuthService struct {
	client    AuthClient
	validator *profile.Validator

	mu       sync.RWMutex
	username string
}

func NewAuthService(client AuthClient) *AuthService {
	return &AuthService{client: client, validator: profile.NewValidator()}
}

// Register creates an account. It generates a random salt, derives the master
// key from the password and sends only the salt and the key's verifier.
func (a *AuthService) Register(ctx context.Context, username, fullName string, password []byte) error {
	username = strings.TrimSpace(username)
	if err := a.validator.Handle(username); err != nil {
		return err
	}
	if err := a.validator.FullName(fullName); err != nil {
		return err
	}

	salt := common.GenerateRandByteArray(saltSize)
	key := cryptox.DeriveMasterKey(password, salt)
	defer common.WipeByteArray(key)

	if _, err := a.client.Register(ctx, username, strings.TrimSpace(fullName), salt, cryptox.MakeVerifier(key)); err != nil {
		return fmt.Errorf("register error: %w", err)
	}
	return nil
}

// Login authenticates against the server. The client keeps the issued tokens.
func (a *AuthService) Login(ctx context.Context, username string, password []byte) error {
	username = strings.TrimSpace(username)

	salt, err := a.client.GetSalt(ctx, username)
	if err != nil {
		return fmt.Errorf("get salt error: %w", err)
	}

	key := cryptox.DeriveMasterKey(password, salt)
	defer common.WipeByteArray(key)

	if _, err := a.client.Login(ctx, username, cryptox.MakeVerifier(key)); err != nil {
		return fmt.Errorf("login error: %w", err)
	}

	a.mu.Lock()
	a.username = username
	a.mu.Unlock()
	return nil
}

func (a *AuthService) Logout(ctx context.Context) error {
	a.mu.Lock()
	a.username = ""
	a.mu.Unlock()
	return a.client.Logout(ctx)
}

func (a *AuthService) CurrentUserID() string {
	return a.client.UserID()
}

// Username is the handle used for the current login, or "".
func (a *AuthService) Username() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.username
}

func (a *AuthService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}
