package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid db execution context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrCorruptState       = errors.New("conversation state holds more than one flow")
	ErrLockNotAcquired    = errors.New("lock is held by someone else")
	ErrNoResource         = errors.New("subscriber has no assigned resource")
	ErrClientDataNotFound = errors.New("client data unavailable")
	ErrUnknownPaymentGate = errors.New("unknown payment method")
	ErrUnauthorized       = errors.New("admin rights required")

	// Flow classification. A flow operation returns one of these (wrapped in FlowError).
	ErrPrecondition = errors.New("flow precondition not met")
	ErrInvalidInput = errors.New("invalid input")
	ErrBusiness     = errors.New("business rule rejected the request")

	// Flow causes.
	ErrNoPlan           = errors.New("no plan for this device count")
	ErrNoServerCapacity = errors.New("no server capacity")
	ErrNotSubscribed    = errors.New("channel subscription required")
)
