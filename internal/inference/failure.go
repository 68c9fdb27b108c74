package inference

import (
	"errors"
	"fmt"
)

// FailureKind separates an unreachable service from one that answered badly.
type FailureKind int

const (
	Transport FailureKind = iota + 1
	Application
)

func (k FailureKind) String() string {
	switch k {
	case Transport:
		return "transport"
	case Application:
		return "application"
	}
	return "unknown"
}

// Failure is returned for every unsuccessful classifier call. Message is
// safe to show to the player.
type Failure struct {
	Kind    FailureKind
	Status  int
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("classifier %s failure: %s: %v", f.Kind, f.Message, f.Err)
	}
	return fmt.Sprintf("classifier %s failure: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error { return f.Err }

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool {
	var f *Failure
	return errors.As(err, &f) && f.Kind == Transport
}

// Message extracts the player-facing message from err.
func Message(err error) string {
	var f *Failure
	if errors.As(err, &f) {
		return f.Message
	}
	return "Vui lòng đảm bảo backend đang chạy."
}

func transportFailure(err error) *Failure {
	return &Failure{Kind: Transport, Message: "classifier unreachable", Err: err}
}

func applicationFailure(status int, msg string) *Failure {
	return &Failure{Kind: Application, Status: status, Message: msg}
}
