package apiclient

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionExpired is returned when the backend answers 401 or the
	// session token is already past its expiry.
	ErrSessionExpired = errors.New("session expired")

	// ErrMalformedResponse is returned when a 2xx body does not have the
	// expected shape.
	ErrMalformedResponse = errors.New("malformed response")
)

// NetworkError is a transport-level failure: DNS, refused connection,
// timeout, truncated body.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error on %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// RequestFailedError is a failure reported by the backend itself.
type RequestFailedError struct {
	Status  int
	Message string
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("request failed (%d): %s", e.Status, e.Message)
}

// IsNetwork reports whether err is or wraps a *NetworkError.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsRequestFailed reports whether err is or wraps a *RequestFailedError.
func IsRequestFailed(err error) bool {
	var rf *RequestFailedError
	return errors.As(err, &rf)
}

// Message returns the text to show a user for err. Backend messages are
// passed through verbatim.
func Message(err error) string {
	var rf *RequestFailedError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &rf):
		return rf.Message
	case errors.Is(err, ErrSessionExpired):
		return "Сессия истекла, перезагружаем приложение"
	case IsNetwork(err):
		return "Нет соединения с сервером, попробуйте ещё раз"
	case errors.Is(err, ErrMalformedResponse):
		return "Сервер вернул некорректный ответ"
	default:
		return err.Error()
	}
}
