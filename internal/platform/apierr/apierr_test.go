package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	domainerrors "github.com/yungbote/dreamworld-backend/internal/pkg/errors"
)

func TestFromErrorMapsDomainKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domainerrors.Validation("create_dream", "cycle must be >= 1"), http.StatusBadRequest, "validation_error"},
		{fmt.Errorf("patch: %w", domainerrors.NotFound("location", 9)), http.StatusNotFound, "not_found"},
		{domainerrors.Persistence("apply", errors.New("connection refused")), http.StatusServiceUnavailable, "persistence_error"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		got := FromError(tc.err)
		assert.Equal(t, tc.status, got.Status, tc.err.Error())
		assert.Equal(t, tc.code, got.Code)
	}
}

func TestFromErrorKeepsExplicitAPIError(t *testing.T) {
	in := New(http.StatusConflict, "busy", errors.New("busy"))
	assert.Same(t, in, FromError(fmt.Errorf("wrapped: %w", in)))
	assert.Nil(t, FromError(nil))
}
