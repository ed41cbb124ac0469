package actions

import (
	"errors"
	"fmt"
)

var (
	// ErrConfirmationRequired is returned by a destructive action the user
	// has not confirmed.
	ErrConfirmationRequired = errors.New("confirmation required")

	// ErrWishNotFound is returned when an action names a wish that is not
	// in the current state.
	ErrWishNotFound = errors.New("wish not found")

	// ErrRequestNotFound is returned when there is no invitation or
	// friendship to act on.
	ErrRequestNotFound = errors.New("friend request not found")
)

// ValidationError rejects input before any request is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is a client-side rejection.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) ||
		errors.Is(err, ErrConfirmationRequired) ||
		errors.Is(err, ErrWishNotFound) ||
		errors.Is(err, ErrRequestNotFound)
}

// userMessage is the notice text for a client-side rejection.
func userMessage(err error) string {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Message
	case errors.Is(err, ErrConfirmationRequired):
		return "Подтвердите удаление"
	case errors.Is(err, ErrWishNotFound):
		return "Желание не найдено"
	case errors.Is(err, ErrRequestNotFound):
		return "Заявка не найдена"
	default:
		return err.Error()
	}
}
