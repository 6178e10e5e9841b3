package apperr

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusByKind(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", New(KindValidation, "address is required"), http.StatusBadRequest},
		{"provider unavailable", New(KindProviderUnavailable, "missing api key"), http.StatusServiceUnavailable},
		{"upstream", New(KindUpstream, "directory returned 502"), http.StatusInternalServerError},
		{"parse", New(KindParse, "missing Message marker"), http.StatusInternalServerError},
		{"uncategorized", eris.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}

func TestKindOfSurvivesWrapping(t *testing.T) {
	inner := New(KindValidation, "demands are required")
	wrapped := fmt.Errorf("handler: %w", inner)
	assert.Equal(t, KindValidation, KindOf(wrapped))
}

func TestRetriable(t *testing.T) {
	assert.True(t, Retriable(New(KindUpstream, "503 from provider")))
	assert.False(t, Retriable(New(KindValidation, "bad input")))
	assert.False(t, Retriable(New(KindParse, "bad shape")))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(eris.New("read tcp: connection reset by peer")))
	assert.True(t, IsTransient(eris.New("dial tcp: i/o timeout")))
	assert.False(t, IsTransient(eris.New("invalid request body")))
	assert.False(t, IsTransient(nil))
}
