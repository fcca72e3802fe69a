package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", NotFound("Diagnosis not found"), http.StatusNotFound},
		{"forbidden", Forbidden("Unauthorized"), http.StatusForbidden},
		{"invalid", InvalidInput("bad"), http.StatusBadRequest},
		{"unauthenticated", Unauthenticated("login"), http.StatusUnauthorized},
		{"conflict", Conflict("taken"), http.StatusConflict},
		{"wrapped", fmt.Errorf("rate: %w", NotFound("Treatment not found")), http.StatusNotFound},
		{"internal", errors.New("redis down"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Status(tc.err))
		})
	}
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "Diagnosis not found", Message(NotFound("Diagnosis not found")))
	assert.Equal(t, "Treatment not found", Message(fmt.Errorf("rate: %w", NotFound("Treatment not found"))))
	assert.Equal(t, "Server error", Message(errors.New("dial tcp: refused")))
	assert.Equal(t, "not found", Message(ErrNotFound))
}

func TestErrorIsKind(t *testing.T) {
	err := Forbidden("Unauthorized")
	assert.True(t, errors.Is(err, ErrForbidden))
	assert.False(t, errors.Is(err, ErrNotFound))
}
