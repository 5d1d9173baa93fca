package stageerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMissingInputError(t *testing.T) {
	err := NewMissingInputError("currentState", "bestPossible")
	assert.Contains(t, err.Error(), "currentState")
	assert.Contains(t, err.Error(), "bestPossible")
	assert.True(t, IsMissingInput(err))
	assert.False(t, IsMissingControllerVersion(err))
}

func TestMissingInputError_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("stage failed: %w", NewMissingInputError("clusterCache"))
	assert.True(t, IsMissingInput(wrapped))
}

func TestMissingControllerVersionError(t *testing.T) {
	err := &MissingControllerVersionError{ControllerID: "controller-1"}
	assert.Contains(t, err.Error(), "controller-1")
	assert.True(t, IsMissingControllerVersion(err))
	assert.False(t, IsIncompatibleVersion(err))
}

func TestIncompatibleVersionError(t *testing.T) {
	err := &IncompatibleVersionError{
		ControllerID:       "controller-1",
		ControllerVersion:  "0.4.0.0",
		ParticipantID:      "participant-1",
		ParticipantVersion: "0.3.0.0",
	}
	msg := err.Error()
	assert.Contains(t, msg, "controller-1")
	assert.Contains(t, msg, "participant-1")
	assert.Contains(t, msg, "0.4.0.0")
	assert.Contains(t, msg, "0.3.0.0")
	assert.True(t, IsIncompatibleVersion(err))
}

func TestIsHelpers_UnrelatedError(t *testing.T) {
	err := errors.New("something else")
	assert.False(t, IsMissingInput(err))
	assert.False(t, IsMissingControllerVersion(err))
	assert.False(t, IsIncompatibleVersion(err))
}

func TestParticipantVersionWarning(t *testing.T) {
	w := ParticipantVersionWarning{ParticipantID: "participant-2"}
	assert.Contains(t, w.String(), "participant-2")
	assert.Contains(t, w.String(), "skipping")
}
