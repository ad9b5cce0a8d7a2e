package errs

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/withstack"
)

// PublicError is an error that, when caught by error handler, should return a user-friendly error response to the user. Responses vary between each protocol (http, grpc, etc.).
type PublicError struct {
	err     error
	message string
	code    string // code is optional, it can be used to identify the error type
}

func (p PublicError) Error() string {
	return p.err.Error()
}

func (p PublicError) Message() string {
	return p.message
}

func (p PublicError) Code() string {
	return p.code
}

func (p PublicError) Unwrap() error {
	return p.err
}

func NewPublicError(message string) error {
	return withstack.WithStackDepth(&PublicError{err: errors.Mark(errors.New(message), InvalidArgument), message: message}, 1)
}

func NewPublicErrorWithCode(message string, code string) error {
	return withstack.WithStackDepth(&PublicError{err: errors.Mark(errors.New(message), InvalidArgument), message: message, code: code}, 1)
}

// WithPublicMessage marks err as safe to show to the caller, prefixed by prefix.
// The error kind of err is kept, so errors.Is still reports e.g. NotFound or UpstreamRejected.
func WithPublicMessage(err error, prefix string) error {
	if err == nil {
		return nil
	}
	return withstack.WithStackDepth(&PublicError{err: err, message: publicMessage(err, prefix)}, 1)
}

func WithPublicMessageCode(err error, prefix string, code string) error {
	if err == nil {
		return nil
	}
	return withstack.WithStackDepth(&PublicError{err: err, message: publicMessage(err, prefix), code: code}, 1)
}

func publicMessage(err error, prefix string) string {
	if prefix == "" {
		return err.Error()
	}
	return fmt.Sprintf("%s: %s", prefix, err.Error())
}

// ConflictError reports an idempotency collision. Result holds the response recorded by the
// request that owns the key, when there is one.
type ConflictError struct {
	Message string
	Result  json.RawMessage
}

func NewConflictError(message string, result json.RawMessage) error {
	return withstack.WithStackDepth(&ConflictError{Message: message, Result: result}, 1)
}

func (c *ConflictError) Error() string {
	return c.Message
}

func (c *ConflictError) Unwrap() error {
	return Conflict
}
