package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrJobTerminal     = errors.New("job already in a terminal state")
	ErrInvalidBrief    = errors.New("brief length out of bounds")
	ErrNoPlatforms     = errors.New("at least one target platform is required")
	ErrUnknownPlatform = errors.New("unknown target platform")
	ErrInvalidDuration = errors.New("duration out of bounds")
)
