package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNoActiveFile(t *testing.T) {
	wrapped := Wrap(ErrNoActiveFile, "reval:reload-current-file")

	assert.True(t, IsNoActiveFile(wrapped))
	assert.False(t, IsNoActiveFile(New("other")))
	assert.False(t, IsNoActiveFile(nil))
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"no hint", New("boom"), "boom"},
		{"hint", WithHint(ErrNoActiveFile, "Please save the file before using reval."), "Please save the file before using reval."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err))
		})
	}
}
