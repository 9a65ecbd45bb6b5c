package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsCode(t *testing.T) {
	base := InvalidInput("age out of range")
	wrapped := Wrap(fmt.Errorf("form: %w", base), "prediction rejected")

	assert.Equal(t, CodeInvalidInput, GetCode(wrapped))
	assert.Equal(t, "prediction rejected: form: age out of range", wrapped.Error())
	assert.ErrorIs(t, wrapped, base)
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "ignored"))
	assert.NoError(t, Wrapf(nil, "ignored %d", 1))
}

func TestWrapPlainError(t *testing.T) {
	err := Wrap(fmt.Errorf("boom"), "query failed")
	assert.Equal(t, CodeInternalError, GetCode(err))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{InvalidInput("bad"), http.StatusBadRequest},
		{NotSubmitted("form"), http.StatusBadRequest},
		{NotFound("table"), http.StatusNotFound},
		{ExternalServiceError("scoring", fmt.Errorf("down")), http.StatusBadGateway},
		{DatabaseError("conn"), http.StatusInternalServerError},
		{fmt.Errorf("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}
