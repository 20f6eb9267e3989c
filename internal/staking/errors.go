package staking

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is the root of every input rejection. Specific validation
	// failures wrap it so callers can match with errors.Is.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientPoolBalance indicates the pool cannot fund a reward or payout.
	ErrInsufficientPoolBalance = errors.New("insufficient pool balance")

	// ErrTransferFailure indicates the value-transfer collaborator rejected a movement.
	ErrTransferFailure = errors.New("value transfer failed")

	// ErrReentrantCall is returned when a mutating operation is invoked while
	// another mutating operation is still in flight on the same call chain.
	ErrReentrantCall = errors.New("re-entrant call rejected")

	// ErrEngineBusy is returned when the mutation guard stays held past the
	// engine's lock wait, for example by an operation whose callback re-entered.
	ErrEngineBusy = errors.New("engine busy")

	// ErrUnknownUser is returned by read queries for identities that never registered.
	ErrUnknownUser = errors.New("unknown user")
)

var (
	ErrNonPositiveAmount  = fmt.Errorf("%w: amount must be positive", ErrValidation)
	ErrAlreadyRegistered  = fmt.Errorf("%w: identity already registered", ErrValidation)
	ErrSelfReferral       = fmt.Errorf("%w: referrer must differ from registrant", ErrValidation)
	ErrUnknownReferrer    = fmt.Errorf("%w: referrer is not registered", ErrValidation)
	ErrAlreadyReferred    = fmt.Errorf("%w: identity already has a referrer", ErrValidation)
	ErrEmptyIdentity      = fmt.Errorf("%w: identity is required", ErrValidation)
	ErrNotRegistered      = fmt.Errorf("%w: identity is not registered", ErrValidation)
	ErrArithmeticOverflow = fmt.Errorf("%w: amount overflows", ErrValidation)
	ErrEmptyGroup         = fmt.Errorf("%w: payout group is empty", ErrValidation)
)
