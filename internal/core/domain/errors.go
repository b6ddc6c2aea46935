package domain

import (
	"errors"
	"fmt"
)

// ErrUnauthenticated is the root of every credential failure. Callers only
// ever see a generic 401 for anything wrapping it.
var ErrUnauthenticated = errors.New("unauthenticated")

var (
	ErrMalformedToken    = fmt.Errorf("%w: malformed token", ErrUnauthenticated)
	ErrSignatureMismatch = fmt.Errorf("%w: signature mismatch", ErrUnauthenticated)
	ErrTokenExpired      = fmt.Errorf("%w: token expired", ErrUnauthenticated)
)

var ErrForbidden = errors.New("access forbidden")
var ErrInvalidInput = errors.New("invalid input")
var ErrConflict = errors.New("resource was modified concurrently")
