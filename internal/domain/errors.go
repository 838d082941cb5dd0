package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrInvalidOutcome     = errors.New("outcome must be YES or NO")
	ErrInvalidSide        = errors.New("side must be BUY or SELL")
	ErrMarketNotActive    = errors.New("market is not active")
	ErrInsufficientTokens = errors.New("insufficient outcome tokens")
	ErrAlreadyResolved    = errors.New("market already resolved")
	ErrAlreadySettled     = errors.New("market already settled")
	ErrDuplicateEvent     = errors.New("duplicate on-chain event")
	ErrInvalidEvent       = errors.New("malformed on-chain event")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrLockHeld           = errors.New("lock already held")
)
