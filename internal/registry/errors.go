package registry

import (
	"errors"
	"fmt"

	"github.com/mvishiu11/WIND/internal/wire"
)

// Sentinel errors for the registry half of the taxonomy in spec.md §7.
// ErrInvalidPattern wraps wire.ErrProtocol so callers can match it with
// errors.Is against either the specific or the general cause;
// ErrServiceNotFound and ErrAddressMismatch are standalone sentinels.
var (
	ErrServiceNotFound  = errors.New("registry: service not found")
	ErrAddressMismatch  = errors.New("registry: address mismatch on renewal")
	ErrInvalidPattern   = fmt.Errorf("registry: invalid pattern: %w", wire.ErrProtocol)
)
