package errutil

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBaseError(t *testing.T) {
	cause := errors.New("row locked")
	err := Conflict("stock adjustment rejected", cause)

	base, ok := err.(BaseError)
	require.True(t, ok)
	require.Equal(t, StatusConflict, base.Code)
	require.ErrorIs(t, err, cause)
	require.Equal(t, "[CONFLICT] stock adjustment rejected: row locked", err.Error())
}

func TestBaseErrorDetails(t *testing.T) {
	err := ValidationFailed("invalid payout request", nil,
		WithDetails(Detail{Field: "scope", Message: "unknown scope"}))

	base := err.(BaseError)
	require.Len(t, base.Details, 1)
	require.Equal(t, "scope", base.Details[0].Field)
}

func TestHTTPStatus(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, StatusBadRequest.HTTPStatus())
	require.Equal(t, http.StatusNotFound, StatusNotFound.HTTPStatus())
	require.Equal(t, http.StatusConflict, StatusConflict.HTTPStatus())
	require.Equal(t, http.StatusUnprocessableEntity, StatusUnprocessableEntity.HTTPStatus())
	require.Equal(t, 499, StatusClientClosedRequest.HTTPStatus())
	require.Equal(t, http.StatusInternalServerError, CoreStatus("BOGUS").HTTPStatus())
}
