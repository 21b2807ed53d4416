package contracts

import "errors"

// Validation failures.
var (
	ErrSelfTarget   = errors.New("cannot target yourself")
	ErrInvalidPrice = errors.New("price must be a positive number")
)

// Resource failures.
var (
	ErrTargetNotFound         = errors.New("target user not found")
	ErrContractNotFound       = errors.New("contract not found")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrInsufficientBlackcoins = errors.New("insufficient black coins")
)

// State conflicts. ErrContractExpired is special: the expiry transition it
// reports has already been committed by the time the caller sees it.
var (
	ErrContractNotOpen      = errors.New("contract is not open")
	ErrContractNotFulfilled = errors.New("contract not fulfilled yet")
	ErrContractExpired      = errors.New("contract has expired")
	ErrForbiddenParty       = errors.New("cannot fulfill your own contract or one targeting you")
	ErrAlreadyFulfilled     = errors.New("contract already fulfilled")
	ErrNotContractAssassin  = errors.New("you are not the assassin for this contract")
	ErrNoFightResult        = errors.New("no fight result found for this contract")
)
