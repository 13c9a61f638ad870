package config

import "fmt"

// Kind classifies a failure that happens before any external call.
type Kind int

const (
	// KindConfiguration is a required setting that is missing or unusable.
	KindConfiguration Kind = iota + 1
	// KindValidation is a user supplied value that is malformed.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindValidation:
		return "validation"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

type Error struct {
	Kind  Kind
	Field string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
