package ledger

import "errors"

var (
	ErrNilState                  = errors.New("ledger: state not configured")
	ErrInsufficientBalance       = errors.New("ledger: insufficient available balance")
	ErrInsufficientLockedBalance = errors.New("ledger: insufficient locked balance")
	ErrBalanceOverflow           = errors.New("ledger: balance overflow")
	ErrSupplyOverflow            = errors.New("ledger: supply overflow")
	ErrSupplyUnderflow           = errors.New("ledger: supply underflow")
)
