package moments

import "errors"

var (
	// ErrInvalidInput matches every validation error through errors.Is.
	ErrInvalidInput = errors.New("invalid input")

	ErrEmptyDescription   = invalid("description is required")
	ErrDescriptionTooLong = invalid("description exceeds 500 characters")
	ErrContextTooLong     = invalid("user context exceeds 500 characters")
	ErrInvalidSource      = invalid("source must be 'manual' or 'calendar'")
	ErrInvalidEventType   = invalid("unknown event type")
	ErrInvalidStatus      = invalid("invalid status transition")
	ErrInvalidThought     = invalid("thought content must be 1-500 characters with a context tag")
	ErrMissingUser        = invalid("user id is required")

	// ErrNotFound means the moment or thought does not exist for the user.
	ErrNotFound = errors.New("not found")

	// ErrMatchNotFound means the thought was never matched to the moment.
	ErrMatchNotFound = errors.New("match not found")

	// ErrPersistMoment means the moment could not be stored; nothing was matched.
	ErrPersistMoment = errors.New("failed to persist moment")
)

type validationError struct {
	msg string
}

func invalid(msg string) error {
	return &validationError{msg: msg}
}

func (e *validationError) Error() string {
	return e.msg
}

func (e *validationError) Is(target error) bool {
	return target == ErrInvalidInput
}
