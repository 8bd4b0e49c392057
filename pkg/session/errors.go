package session

import "github.com/cockroachdb/errors"

var (
	ErrSessionNotFound = errors.New("session: not found")
	ErrNotConnected    = errors.New("session: not connected")
)
