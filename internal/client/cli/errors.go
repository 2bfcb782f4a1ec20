package cli

import (
	"errors"

	"github.com/resdex/resdex/internal/client/client"
	"github.com/resdex/resdex/internal/client/services"
	"github.com/resdex/resdex/internal/common"
)

var (
	errNoProfile = errors.New("no profile open")
	errCancelled = errors.New("cancelled")
)

// describeError turns a service error into the line shown to the user.
func describeError(err error) string {
	switch {
	case errors.Is(err, errNoProfile):
		return "Open a profile first: profile <handle>"
	case errors.Is(err, errCancelled):
		return "Cancelled."
	case errors.Is(err, services.ErrSessionClosed):
		return "The profile was closed. Open it again."
	case errors.Is(err, client.ErrNotLoggedIn):
		return "Not logged in."
	case errors.Is(err, common.ErrorPermissionDenied):
		return "Only the profile owner can do that."
	case errors.Is(err, common.ErrorValidation):
		return "Invalid input: " + err.Error()
	case errors.Is(err, common.ErrorAlreadyExists):
		return "Already exists."
	case errors.Is(err, common.ErrorNotFound):
		return "Not found."
	case errors.Is(err, common.ErrorUnauthorized):
		return "Wrong credentials or session expired. Please log in."
	case errors.Is(err, client.ErrRateLimited):
		return "Too many requests, slow down."
	case errors.Is(err, common.ErrorRemoteUnavailable):
		return "Server unavailable, try again later."
	default:
		return "Error: " + err.Error()
	}
}
