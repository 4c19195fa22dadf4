package protocol

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLifecycleEvent_LoggedOut(t *testing.T) {
	loggedOut := StatusLoggedOut
	other := 408

	tests := []struct {
		name string
		ev   LifecycleEvent
		want bool
	}{
		{"close with logout code", LifecycleEvent{State: StateClosed, Code: &loggedOut}, true},
		{"close with other code", LifecycleEvent{State: StateClosed, Code: &other}, false},
		{"close without code", LifecycleEvent{State: StateClosed}, false},
		{"open with logout code", LifecycleEvent{State: StateOpen, Code: &loggedOut}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ev.LoggedOut())
		})
	}
}

func TestErrorClassification(t *testing.T) {
	base := errors.New("stream errored")

	transient := Transient("read", base)
	assert.True(t, IsTransient(transient))
	assert.False(t, IsUnauthorized(transient))
	assert.ErrorIs(t, transient, base)

	unauthorized := Unauthorized("dial", base)
	assert.True(t, IsUnauthorized(unauthorized))
	assert.False(t, IsTransient(unauthorized))

	fatal := Fatal("dial", base)
	assert.False(t, IsTransient(fatal))
	assert.False(t, IsUnauthorized(fatal))

	// Classification survives wrapping.
	wrapped := fmt.Errorf("attempt 3: %w", transient)
	assert.True(t, IsTransient(wrapped))

	assert.False(t, IsTransient(base))
	assert.False(t, IsTransient(nil))
}

func TestVersionString(t *testing.T) {
	v := Version{Major: 2, Minor: 3000, Patch: 7}
	assert.Equal(t, "2.3000.7", v.String())
}
