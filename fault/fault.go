// Package fault holds the error classes shared by the ledger, the stores and
// the HTTP layer. Single instances allow comparison with errors.Is and the
// Is* helpers classify wrapped errors.
package fault

import (
	"errors"
	"fmt"
)

// error base
type GenericError string

// to allow for different classes of errors
type ValidationError GenericError
type DuplicateError GenericError
type NotFoundError GenericError
type UnavailableError GenericError

// common errors - keep in alphabetic order
var (
	ErrAppendQueueFull      = UnavailableError("vote queue is full")
	ErrCandidateNameMissing = ValidationError("candidate name missing")
	ErrCandidateNotFound    = NotFoundError("candidate not found")
	ErrDuplicateVote        = DuplicateError("voter has already cast a vote")
	ErrDuplicateVoter       = DuplicateError("voter is already registered")
	ErrGatewayNotConfigured = UnavailableError("notification gateway is not configured")
	ErrInvalidCandidateID   = ValidationError("invalid candidate id")
	ErrLedgerStopped        = UnavailableError("ledger is stopped")
	ErrMirrorUnavailable    = UnavailableError("mirror store is not available")
	ErrMobileMissing        = ValidationError("mobile number missing")
	ErrNameAndPartyMissing  = ValidationError("name and party are required")
	ErrUnknownDatabaseType  = ValidationError("unknown database type")
	ErrUnknownMirrorType    = ValidationError("unknown mirror type")
	ErrVoterIDMissing       = ValidationError("voter ID missing")
	ErrVoterNotFound        = NotFoundError("voter not found")
)

// the error interface base method
func (e GenericError) Error() string { return string(e) }

// the error interface methods
func (e ValidationError) Error() string  { return string(e) }
func (e DuplicateError) Error() string   { return string(e) }
func (e NotFoundError) Error() string    { return string(e) }
func (e UnavailableError) Error() string { return string(e) }

// StoreError reports a failed primary store operation. It is fatal to the
// request that caused it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store: %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError wraps err as a StoreError, nil stays nil.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// GatewayError reports a failed notification dispatch.
type GatewayError struct {
	Provider string
	Err      error
}

func (e *GatewayError) Error() string { return fmt.Sprintf("gateway %s: %v", e.Provider, e.Err) }
func (e *GatewayError) Unwrap() error { return e.Err }

// determine the class of an error
func IsErrValidation(e error) bool {
	var v ValidationError
	return errors.As(e, &v)
}

func IsErrDuplicate(e error) bool {
	var d DuplicateError
	return errors.As(e, &d)
}

func IsErrNotFound(e error) bool {
	var n NotFoundError
	return errors.As(e, &n)
}

func IsErrUnavailable(e error) bool {
	var u UnavailableError
	return errors.As(e, &u)
}

func IsErrStore(e error) bool {
	var s *StoreError
	return errors.As(e, &s)
}

func IsErrGateway(e error) bool {
	var g *GatewayError
	return errors.As(e, &g)
}
