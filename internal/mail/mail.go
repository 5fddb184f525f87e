package mail

import (
	"context"
	"errors"
)

type Kind string

const (
	KindVerification  Kind = "verification"
	KindPasswordReset Kind = "password_reset"
)

var ErrCircuitOpen = errors.New("mail circuit breaker open")

// Message carries everything a template needs. Code expires after CodeTTLMinutes.
type Message struct {
	Kind           Kind
	To             string
	FirstName      string
	Code           string
	CodeTTLMinutes int
}

type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}
