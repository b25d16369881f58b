package wire

import "errors"

// Sentinel errors for the taxonomy in spec.md §7. A component-specific error
// may wrap one of these with fmt.Errorf("...: %w") (e.g.
// registry.ErrInvalidPattern wraps ErrProtocol) so callers can match with
// errors.Is regardless of which layer raised it.
var (
	ErrSerialization  = errors.New("wire: malformed frame")
	ErrProtocol       = errors.New("wire: unexpected message variant")
	ErrFrameTooLarge  = errors.New("wire: frame exceeds maximum size")
	ErrSchema         = errors.New("wire: schema violation")
	ErrTypeMismatch   = errors.New("wire: value does not satisfy expected shape")
)
