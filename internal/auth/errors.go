package auth

import (
	"errors"
	"fmt"
)

// ErrAuthenticationFailed is the umbrella error for every failure to obtain
// the initial token. The CLI maps it to exit status 1.
var ErrAuthenticationFailed = errors.New("auth: authentication failed")

// Specific causes of ErrAuthenticationFailed. Use errors.Is to check.
var (
	ErrInvalidCredentials = fmt.Errorf("%w: bad username or password", ErrAuthenticationFailed)
	ErrIdentityProviderUnreachable = fmt.Errorf(
		"%w: failed to connect, make sure you have a certified IP or are connected on a valid VPN",
		ErrAuthenticationFailed)
	ErrNoPassword = fmt.Errorf("%w: no password available", ErrAuthenticationFailed)
)

// ErrRefreshFailed is returned when the refresh grant does not yield a new
// access token. The request that triggered the refresh fails with it.
var ErrRefreshFailed = errors.New("auth: token refresh failed")

// ErrNoTerminal is returned by ReadSecret when there is no terminal to
// prompt on.
var ErrNoTerminal = errors.New("auth: no terminal available for password prompt")
