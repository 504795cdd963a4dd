package ledger

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid dana number/password pair")
	ErrBelowMinimum       = errors.New("amount is below the minimum withdrawal")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrWithdrawalNotFound = errors.New("withdrawal request not found")
	ErrAlreadyResolved    = errors.New("withdrawal request already resolved")
)
