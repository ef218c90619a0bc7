package lookup

import (
	"errors"

	jsoniter "github.com/json-iterator/go"
)

// ErrorKind tags a classified request failure.
type ErrorKind string

const (
	// KindTransport covers connection, TLS, timeout and body read failures.
	KindTransport ErrorKind = "transport"
	// KindStatus is an unexpected status with a well-formed error envelope.
	KindStatus ErrorKind = "status"
	// KindMalformedError is an unexpected status whose body is not an error envelope.
	KindMalformedError ErrorKind = "malformed_error"
	// KindDecode is a 200 response that is not usable JSON.
	KindDecode ErrorKind = "decode"
)

const detailTransport = "HTTP Request Error"

// ErrNoData is returned by OnDetails for a result that carries no data.
var ErrNoData = errors.New("lookup result has no data")

// RequestError is a failed registry exchange.
type RequestError struct {
	Kind   ErrorKind
	Detail string
	Entity Entity
	Status int
	Body   jsoniter.RawMessage
	Err    error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return e.Detail + ": " + e.Err.Error()
	}
	return e.Detail
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
