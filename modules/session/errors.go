package session

import "errors"

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrMessageNotFound = errors.New("message not found")

	// ErrRoomCodeExhausted is returned when no free room code was found
	// within MaxCodeAttempts.
	ErrRoomCodeExhausted = errors.New("room code space exhausted")

	// ErrInvalidInput wraps validation failures that crossed a service boundary.
	ErrInvalidInput = errors.New("invalid input")
)

// Validation errors
var (
	ErrUsernameEmpty   = errors.New("username cannot be empty")
	ErrUsernameTooLong = errors.New("username exceeds maximum length")
	ErrUsernameInvalid = errors.New("username contains invalid characters")
	ErrRoomNameEmpty   = errors.New("room name cannot be empty")
	ErrRoomNameTooLong = errors.New("room name exceeds maximum length")
	ErrRoomNameInvalid = errors.New("room name contains invalid characters")
	ErrMessageEmpty    = errors.New("message content cannot be empty")
	ErrMessageTooLong  = errors.New("message exceeds maximum length")
	ErrMessageInvalid  = errors.New("message contains invalid characters")
	ErrStatusInvalid   = errors.New("unknown status")
)

func isValidationError(err error) bool {
	for _, target := range []error{
		ErrUsernameEmpty, ErrUsernameTooLong, ErrUsernameInvalid,
		ErrRoomNameEmpty, ErrRoomNameTooLong, ErrRoomNameInvalid,
		ErrMessageEmpty, ErrMessageTooLong, ErrMessageInvalid,
		ErrStatusInvalid,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
