package registryerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", NewValidation("bad path", nil), Validation},
		{"not found", NewNotFound("missing", nil), NotFound},
		{"wrapped", fmtWrap(NewAlreadyExists("dup", nil)), AlreadyExists},
		{"plain error", errors.New("boom"), Unexpected},
		{"nil", nil, Unexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func fmtWrap(err error) error {
	return errWrapper{err}
}

type errWrapper struct{ inner error }

func (e errWrapper) Error() string { return "wrapped: " + e.inner.Error() }
func (e errWrapper) Unwrap() error { return e.inner }

func TestErrorMessageIncludesCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := NewBackendUnavailable("mongo connect failed", cause)
	assert.Contains(t, err.Error(), "dial tcp: refused")
	assert.Contains(t, err.Error(), "backend_unavailable")
}

func TestWithDetail(t *testing.T) {
	err := NewValidation("bad rating", nil).WithDetail(map[string]int{"rating": 9})
	assert.Equal(t, map[string]int{"rating": 9}, err.Detail)
}
