package client

import "errors"

// Sentinel errors for the client half of the taxonomy in spec.md §7.
var (
	ErrServiceNotFound = errors.New("client: service not found")
	ErrTimeout         = errors.New("client: rpc call timed out")
	ErrConnection      = errors.New("client: exceeded reconnect budget")
)
