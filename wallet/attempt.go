package wallet

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/walletgate/core"
)

// Stage is a step of a login attempt
type Stage string

const (
	StageNotStarted        Stage = "NOT_STARTED"
	StageConnecting        Stage = "CONNECTING"
	StageFetchingChallenge Stage = "FETCHING_CHALLENGE"
	StageSigning           Stage = "SIGNING"
	StageSubmitting        Stage = "SUBMITTING"
	StageSucceeded         Stage = "SUCCEEDED"
	StageFailed            Stage = "FAILED"
)

// Terminal reports whether no further transition can happen
func (s Stage) Terminal() bool {
	return s == StageSucceeded || s == StageFailed
}

// Attempt records the progress of one flow invocation
type Attempt struct {
	ID        string
	Stage     Stage
	Reason    core.Reason
	Message   string
	Account   core.Account
	Session   *core.ClientSession
	StartedAt time.Time
	EndedAt   time.Time
}

func newAttempt() *Attempt {
	return &Attempt{
		ID:        uuid.New().String(),
		Stage:     StageNotStarted,
		StartedAt: time.Now(),
	}
}

// FlowError is returned by flow operations. Message is safe to show to the user.
type FlowError struct {
	Stage   Stage
	Reason  core.Reason
	Message string
	Err     error
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("wallet %s failed at %s: %v", e.Reason, e.Stage, e.Err)
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

var userMessages = map[core.Reason]string{
	core.ReasonProviderUnavailable: "No wallet provider found. Install a wallet to continue.",
	core.ReasonRequestPending:      "A wallet request is already being processed. Finish it in your wallet or try again later.",
	core.ReasonUserRejected:        "The wallet connection was rejected.",
	core.ReasonSignRejected:        "The signature request was rejected.",
	core.ReasonNetworkError:        "Login failed, please check your network connection.",
	core.ReasonServerError:         "The server could not process the login. Try again later.",
	core.ReasonEmptyChallenge:      "The server returned an empty login message. Try again later.",
	core.ReasonAuthRejected:        "Login was rejected by the server.",
	core.ReasonStorageError:        "Login succeeded but the session could not be saved.",
}

// fail moves the attempt to FAILED and builds the error surfaced to the caller
func (a *Attempt) fail(err error) *FlowError {
	reason := core.ReasonOf(err)
	message := core.ServerMessage(err)
	if message == "" {
		message = userMessages[reason]
	}

	flowErr := &FlowError{
		Stage:   a.Stage,
		Reason:  reason,
		Message: message,
		Err:     err,
	}

	a.Stage = StageFailed
	a.Reason = reason
	a.Message = message
	a.EndedAt = time.Now()
	return flowErr
}

func (a *Attempt) succeed(session *core.ClientSession) {
	a.Stage = StageSucceeded
	a.Session = session
	a.EndedAt = time.Now()
}
