package exchange

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an adapter failure so callers can react without parsing
// exchange-specific messages.
type Kind int

const (
	// KindAuthentication: credentials missing, wrong, or signature refused.
	KindAuthentication Kind = iota + 1
	// KindRejected: the exchange understood the request and said no
	// (insufficient funds, unknown market, nonce too small, ...).
	KindRejected
	// KindTransport: the request never produced a usable response.
	KindTransport
	// KindUnsupported: the exchange does not offer the operation.
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "AuthenticationError"
	case KindRejected:
		return "ExchangeRejected"
	case KindTransport:
		return "TransportError"
	case KindUnsupported:
		return "UnsupportedOperation"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is returned by every adapter operation that fails.
type Error struct {
	Kind     Kind
	Exchange string
	Op       string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return fmt.Sprintf("%s %s: %s: %s", e.Exchange, e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

func NewAuthenticationError(exchange, op, msg string) error {
	return &Error{Kind: KindAuthentication, Exchange: exchange, Op: op, Message: msg}
}

func NewRejectedError(exchange, op, msg string) error {
	return &Error{Kind: KindRejected, Exchange: exchange, Op: op, Message: msg}
}

func NewTransportError(exchange, op string, err error) error {
	return &Error{Kind: KindTransport, Exchange: exchange, Op: op, Err: err}
}

func NewUnsupportedError(exchange, op string) error {
	return &Error{Kind: KindUnsupported, Exchange: exchange, Op: op, Message: "not available from exchange"}
}

// KindOf digs through wrapped errors for an *Error and returns its kind, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsAuthentication(err error) bool { return KindOf(err) == KindAuthentication }
func IsRejected(err error) bool       { return KindOf(err) == KindRejected }
func IsTransport(err error) bool      { return KindOf(err) == KindTransport }
func IsUnsupported(err error) bool    { return KindOf(err) == KindUnsupported }
