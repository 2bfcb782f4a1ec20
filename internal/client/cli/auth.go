package cli

import (
	"context"

	"github.com/resdex/resdex/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for a handle, a display name and a password and creates
// the account. The password is wiped before returning.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter handle", a.out)
	if err != nil {
		return err
	}
	fullName, err := getSimpleText(a.reader, "Enter full name", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.auth.Register(ctx, userName, fullName, password); err != nil {
		a.logger.Warn(ctx, "register failed", "handle", userName, "error", err)
		printlnFn(describeError(err))
		return err
	}

	printlnFn("Success! You can log in now.")
	return nil
}

// Login prompts for credentials and authenticates. A successful login marks
// the client online.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter handle", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.auth.Login(ctx, userName, password); err != nil {
		a.logger.Warn(ctx, "login failed", "handle", userName, "error", err)
		printlnFn(describeError(err))
		return err
	}

	printlnFn("Login successful")
	a.setMode(ModeOnline)
	return nil
}

// Logout drops the session tokens. An open profile stays open read-only.
func (a *App) Logout(ctx context.Context) error {
	if err := a.auth.Logout(ctx); err != nil {
		printlnFn(describeError(err))
		return err
	}
	printlnFn("Logged out")
	return nil
}
