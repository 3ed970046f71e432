package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidAmount       = errors.New("invalid loan amount")
	ErrUnknownStrategy     = errors.New("unknown strategy")
	ErrProviderUnavailable = errors.New("wallet provider unavailable")
	ErrUserRejected        = errors.New("request rejected by wallet owner")
	ErrDerivationFailed    = errors.New("counterpart address derivation failed")
	ErrWrongNetwork        = errors.New("wallet connected to wrong network")
	ErrNotConnected        = errors.New("no wallet session")
	ErrConnectInFlight     = errors.New("connect already in progress")
	ErrBusy                = errors.New("loan execution already in progress")
	ErrRateLimited         = errors.New("rate limited")
	ErrEncodingFailed      = errors.New("instruction encoding failed")
)
