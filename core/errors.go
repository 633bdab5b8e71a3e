package core

import (
	"errors"
	"fmt"
)

// Server side errors
var (
	ErrTokenExpired     = errors.New("token has expired")
	ErrTokenInvalidated = errors.New("token has been invalidated")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidChallenge = errors.New("invalid challenge")
	ErrInvalidAddress   = errors.New("invalid ethereum address")
	ErrUserExists       = errors.New("wallet already registered")
	ErrUserNotFound     = errors.New("user not found")
	ErrChainUnavailable = errors.New("chain rpc not configured")
	ErrInvalidUsername  = errors.New("invalid username")
)

// Wallet login flow errors. Each maps to one Reason.
var (
	ErrProviderUnavailable = errors.New("no wallet provider available")
	ErrUserRejected        = errors.New("user rejected the request")
	ErrRequestPending      = errors.New("wallet request already pending")
	ErrNetwork             = errors.New("network error")
	ErrServer              = errors.New("server error")
	ErrEmptyChallenge      = fmt.Errorf("empty login message: %w", ErrServer)
	ErrSignRejected        = errors.New("signature request rejected")
	ErrAuthRejected        = errors.New("authentication rejected")
	ErrStorage             = errors.New("session storage failed")

	// ErrAlreadyInProgress is returned when the re-entrancy guard is held
	ErrAlreadyInProgress = fmt.Errorf("wallet flow already in progress: %w", ErrRequestPending)

	// ErrStrategyUnsupported marks a signing call shape the provider does not offer
	ErrStrategyUnsupported = errors.New("signing method not supported by provider")
)

// Reason tags the cause of a failed login attempt
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonProviderUnavailable Reason = "ProviderUnavailable"
	ReasonUserRejected        Reason = "UserRejected"
	ReasonRequestPending      Reason = "RequestPending"
	ReasonNetworkError        Reason = "NetworkError"
	ReasonServerError         Reason = "ServerError"
	ReasonEmptyChallenge      Reason = "EmptyChallenge"
	ReasonSignRejected        Reason = "SignRejected"
	ReasonAuthRejected        Reason = "AuthRejected"
	ReasonStorageError        Reason = "StorageError"
)

// Order matters: EmptyChallenge wraps ErrServer and must be matched first.
var reasons = []struct {
	err    error
	reason Reason
}{
	{ErrProviderUnavailable, ReasonProviderUnavailable},
	{ErrRequestPending, ReasonRequestPending},
	{ErrUserRejected, ReasonUserRejected},
	{ErrSignRejected, ReasonSignRejected},
	{ErrEmptyChallenge, ReasonEmptyChallenge},
	{ErrAuthRejected, ReasonAuthRejected},
	{ErrNetwork, ReasonNetworkError},
	{ErrServer, ReasonServerError},
	{ErrStorage, ReasonStorageError},
}

// ReasonOf classifies err. Unknown errors are reported as ServerError.
func ReasonOf(err error) Reason {
	if err == nil {
		return ReasonNone
	}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return ReasonServerError
}

// Recoverable reports whether the user can retry after a failure with this reason
func (r Reason) Recoverable() bool {
	return r != ReasonProviderUnavailable && r != ReasonNone
}

// ServerMessageError carries a message the server returned with a failure
type ServerMessageError struct {
	Kind    error
	Status  int
	Message string
}

func (e *ServerMessageError) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

func (e *ServerMessageError) Unwrap() error {
	return e.Kind
}

// ServerMessage extracts the server-provided message from err, if any
func ServerMessage(err error) string {
	var sme *ServerMessageError
	if errors.As(err, &sme) {
		return sme.Message
	}
	return ""
}
