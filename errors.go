package gate

import "errors"

var (
	// ErrBuilderUsed is returned when Build is called twice on one Builder.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrStoreRequired is returned by Build when no token store was supplied.
	ErrStoreRequired = errors.New("token store required")
	// ErrNavigatorRequired is returned by Build when no navigator was supplied.
	ErrNavigatorRequired = errors.New("navigator required")
	// ErrClientRequired is returned by Login when the gate was built without an API client.
	ErrClientRequired = errors.New("api client required")
	// ErrGateClosed is returned by operations on a closed gate.
	ErrGateClosed = errors.New("gate closed")
	// ErrLoginInputInvalid is returned by Login when the email or password fails the form check.
	ErrLoginInputInvalid = errors.New("enter a valid email and a password of at least 6 characters")
	// ErrInvalidConfig wraps every Config.Validate failure.
	ErrInvalidConfig = errors.New("invalid gate config")
)
