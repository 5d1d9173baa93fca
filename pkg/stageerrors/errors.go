// Package stageerrors defines the typed, fatal error kinds the
// intermediate-state computation can raise, plus Is* predicate
// helpers built on errors.As, following the APIError/SecretError
// shape used elsewhere in this codebase for structured error values.
package stageerrors

import (
	"errors"
	"fmt"
)

// MissingInputError is returned when one or more required stage
// inputs are absent. Fatal to the stage.
type MissingInputError struct {
	Fields []string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("missing required stage input(s): %v", e.Fields)
}

// NewMissingInputError constructs a MissingInputError naming the
// missing fields.
func NewMissingInputError(fields ...string) *MissingInputError {
	return &MissingInputError{Fields: fields}
}

// MissingControllerVersionError is returned when the controller has
// no declared version. Fatal.
type MissingControllerVersionError struct {
	ControllerID string
}

func (e *MissingControllerVersionError) Error() string {
	return fmt.Sprintf("controller %q has no declared version", e.ControllerID)
}

// IncompatibleVersionError is returned when a live participant's
// primary version is incompatible with the controller's. Fatal.
type IncompatibleVersionError struct {
	ControllerID      string
	ControllerVersion string
	ParticipantID     string
	ParticipantVersion string
}

func (e *IncompatibleVersionError) Error() string {
	return fmt.Sprintf(
		"participant %q version %q is incompatible with controller %q version %q",
		e.ParticipantID, e.ParticipantVersion, e.ControllerID, e.ControllerVersion,
	)
}

// IsMissingInput reports whether err is (or wraps) a MissingInputError.
func IsMissingInput(err error) bool {
	var target *MissingInputError
	return errors.As(err, &target)
}

// IsMissingControllerVersion reports whether err is (or wraps) a
// MissingControllerVersionError.
func IsMissingControllerVersion(err error) bool {
	var target *MissingControllerVersionError
	return errors.As(err, &target)
}

// IsIncompatibleVersion reports whether err is (or wraps) an
// IncompatibleVersionError.
func IsIncompatibleVersion(err error) bool {
	var target *IncompatibleVersionError
	return errors.As(err, &target)
}

// ParticipantVersionWarning is not an error: it is a logged
// diagnostic value describing an instance whose version is absent,
// for which the compatibility check was skipped rather than failed.
type ParticipantVersionWarning struct {
	ParticipantID string
}

func (w ParticipantVersionWarning) String() string {
	return fmt.Sprintf("participant %q has no declared version, skipping compatibility check", w.ParticipantID)
}
