package client

import (
	"errors"
	"fmt"

	"github.com/resdex/resdex/internal/common"
)

var (
	ErrRateLimited = fmt.Errorf("%w: rate limited", common.ErrorRemoteUnavailable)
	ErrNotLoggedIn = errors.New("not logged in")
)
